package sampleprocessor

import (
	"math"
	"sync/atomic"
)

// Gain multiplies every sample by a scalar. It exists mainly as a
// reference Processor implementation and a building block tests can chain
// alongside a Clip; per-source volume is applied directly by each
// source's render pipeline, not through a chained Gain.
type Gain struct {
	factor  atomic.Uint32 // math.Float32bits
	enabled atomic.Bool
}

// NewGain creates a Gain processor, enabled, at the given factor.
func NewGain(factor float32) *Gain {
	g := &Gain{}
	g.SetFactor(factor)
	g.enabled.Store(true)
	return g
}

func (g *Gain) SetFactor(f float32) { g.factor.Store(math.Float32bits(f)) }
func (g *Gain) Factor() float32     { return math.Float32frombits(g.factor.Load()) }
func (g *Gain) SetEnabled(v bool)   { g.enabled.Store(v) }
func (g *Gain) IsEnabled() bool     { return g.enabled.Load() }
func (g *Gain) Reset()              {}

func (g *Gain) Process(block []float32) {
	f := g.Factor()
	for i := range block {
		block[i] *= f
	}
}

// Clip hard-limits every sample to [-1, 1]. It mirrors the final clamp
// step the mixer applies to the master mix, offered here so a per-source
// chain can apply the same limiting before the mix stage.
type Clip struct {
	enabled atomic.Bool
}

// NewClip creates an enabled Clip processor.
func NewClip() *Clip {
	c := &Clip{}
	c.enabled.Store(true)
	return c
}

func (c *Clip) SetEnabled(v bool) { c.enabled.Store(v) }
func (c *Clip) IsEnabled() bool   { return c.enabled.Load() }
func (c *Clip) Reset()            {}

func (c *Clip) Process(block []float32) {
	for i, s := range block {
		if s > 1 {
			block[i] = 1
		} else if s < -1 {
			block[i] = -1
		}
	}
}
