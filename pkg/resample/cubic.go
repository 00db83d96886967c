// Package resample implements the per-source sample-rate conversion and
// tempo/pitch stage described by the mixing engine's source contract:
// every source is pulled at its native rate and converted to the engine's
// fixed output rate and channel count before it reaches the mix.
package resample

import "math"

// cubicInterpolate evaluates a Catmull-Rom spline through four control
// points at fractional position x in [0, 1), matching the classic
// four-point cubic Hermite form.
func cubicInterpolate(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1
	return a0*x*x*x + a1*x*x + a2*x + a3
}

// Cubic resamples a single channel of audio from one sample rate to
// another using Catmull-Rom cubic interpolation over a four-sample
// sliding window, plus an optional one-pole low-pass filter applied
// ahead of downsampling to reduce aliasing. State (the window and filter
// history) persists across calls to ReadFrom so a source can be pulled
// incrementally, one mixer callback at a time; Reset discards it.
type Cubic struct {
	ratio       float64 // srcRate / dstRate
	pos         float64 // next output sample's absolute position, in src samples
	nPushed     int64   // total source samples pushed so far
	window      [4]float32
	lowpass     bool
	filterState float32
	filterAlpha float32
}

// NewCubic creates a resampler converting from srcRate to dstRate.
func NewCubic(srcRate, dstRate int) *Cubic {
	c := &Cubic{
		ratio:       float64(srcRate) / float64(dstRate),
		filterAlpha: 0.5,
	}
	c.lowpass = c.ratio > 1.0
	return c
}

// SetRates reconfigures the conversion ratio without discarding the
// window; used when tempo/pitch math needs to retune the internal rate
// every block.
func (c *Cubic) SetRates(srcRate, dstRate int) {
	c.ratio = float64(srcRate) / float64(dstRate)
	c.lowpass = c.ratio > 1.0
}

// Reset discards the sliding window and filter history. Call this when a
// source seeks or loops so the next output sample isn't interpolated
// against audio from a different position in the stream.
func (c *Cubic) Reset() {
	c.pos = 0
	c.nPushed = 0
	c.filterState = 0
	for i := range c.window {
		c.window[i] = 0
	}
}

// push feeds one new source sample into the sliding window, applying the
// anti-aliasing low-pass first when downsampling. After push, window[3]
// holds the sample at index nPushed-1.
func (c *Cubic) push(sample float32) {
	if c.lowpass {
		c.filterState += c.filterAlpha * (sample - c.filterState)
		sample = c.filterState
	}
	c.window[0] = c.window[1]
	c.window[1] = c.window[2]
	c.window[2] = c.window[3]
	c.window[3] = sample
	c.nPushed++
}

// Process reads source samples from src (one channel, already
// deinterleaved) and writes len(dst) resampled output values, returning
// the number of src samples actually consumed. If src runs out before
// dst is full, the remainder of dst is left untouched and the returned
// produced count reflects only what was written; the caller
// (source.Base) is responsible for treating the shortfall as an
// underrun.
//
// Interpolating the output sample at fractional position p requires
// source samples at floor(p)-1 .. floor(p)+2 (the four Catmull-Rom
// control points); the window is kept aligned to that by pushing until
// nPushed-1 reaches floor(p)+2 before every output sample.
func (c *Cubic) Process(dst []float32, src []float32) (consumed int, produced int) {
	srcIdx := 0

	for produced < len(dst) {
		target := int64(math.Floor(c.pos)) + 2
		for c.nPushed-1 < target {
			if srcIdx >= len(src) {
				return srcIdx, produced
			}
			c.push(src[srcIdx])
			srcIdx++
		}

		frac := float32(c.pos - math.Floor(c.pos))
		dst[produced] = cubicInterpolate(c.window[0], c.window[1], c.window[2], c.window[3], frac)
		produced++
		c.pos += c.ratio
	}

	return srcIdx, produced
}
