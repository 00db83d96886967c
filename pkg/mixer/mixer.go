// Package mixer implements the per-callback summation at the center of
// the engine: for every block the device backend requests, it renders
// each enabled source into a rented scratch buffer, sums them into an
// accumulator, runs the master processor chain, and clamps the result to
// [-1, 1] before handing it to the backend.
package mixer

import (
	"sync/atomic"

	"github.com/drgolem/mixengine/pkg/bufferpool"
	"github.com/drgolem/mixengine/pkg/sampleprocessor"
	"github.com/drgolem/mixengine/pkg/source"
)

// Mixer owns the active source set and the master processor chain. The
// active set is swapped atomically by the engine whenever a source is
// added or removed, so Render (running on the hard-real-time device
// callback thread) never takes a lock.
type Mixer struct {
	channels int
	active   atomic.Pointer[[]source.Source]
	master   *sampleprocessor.Chain
	pool     *bufferpool.Pool
}

// New creates a Mixer producing interleaved audio at the given channel
// count, renting scratch buffers from pool.
func New(channels int, pool *bufferpool.Pool) *Mixer {
	m := &Mixer{
		channels: channels,
		master:   sampleprocessor.NewChain(),
		pool:     pool,
	}
	empty := []source.Source{}
	m.active.Store(&empty)
	return m
}

// MasterChain returns the processor chain applied to the summed mix,
// after every per-source chain and before the final clamp.
func (m *Mixer) MasterChain() *sampleprocessor.Chain {
	return m.master
}

// SetSources atomically replaces the active source set. A source added
// mid-stream takes effect on the next Render call, never mid-callback.
func (m *Mixer) SetSources(sources []source.Source) {
	snapshot := append([]source.Source(nil), sources...)
	m.active.Store(&snapshot)
}

// Render is the device backend's on_render callback: it fills out
// (interleaved, m.channels) with the summed, processed, clamped mix of
// every currently-enabled source.
func (m *Mixer) Render(out []float32) {
	for i := range out {
		out[i] = 0
	}

	sources := *m.active.Load()
	if len(sources) == 0 {
		m.master.Process(out)
		clamp(out)
		return
	}

	scratch := m.pool.Rent(len(out))
	defer m.pool.Return(scratch)

	for _, src := range sources {
		if src.State() != source.StatePlaying {
			continue
		}

		for i := range scratch {
			scratch[i] = 0
		}
		src.Render(scratch)

		for i := range out {
			out[i] += scratch[i]
		}
	}

	m.master.Process(out)
	clamp(out)
}

func clamp(block []float32) {
	for i, s := range block {
		if s > 1 {
			block[i] = 1
		} else if s < -1 {
			block[i] = -1
		}
	}
}
