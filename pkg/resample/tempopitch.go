package resample

import "math"

// hann returns the Hann window coefficient at fractional position x in
// [0, 1).
func hann(x float64) float32 {
	return float32(0.5 - 0.5*math.Cos(2*math.Pi*x))
}

const (
	olaGrain = 1024 // analysis/synthesis window length, in native-rate samples
	olaHop   = 512  // synthesis hop, 50% overlap
)

// channelOLA is the per-channel overlap-add state for one TempoPitchShifter.
type channelOLA struct {
	// pending holds input samples not yet consumed by an analysis grain.
	pending []float32
	// analysisPos is the fractional read offset into pending, in samples.
	analysisPos float64
	// tail holds the overlap carried from the previous synthesis hop.
	tail [olaGrain]float32
	tailLen int
	window  [olaGrain]float32
}

func newChannelOLA() *channelOLA {
	c := &channelOLA{}
	for i := range c.window {
		c.window[i] = hann(float64(i) / float64(olaGrain-1))
	}
	return c
}

func (c *channelOLA) reset() {
	c.pending = c.pending[:0]
	c.analysisPos = 0
	c.tailLen = 0
	for i := range c.tail {
		c.tail[i] = 0
	}
}

// grainAt reads a Hann-windowed grain of olaGrain samples starting at a
// fractional sample offset, using linear interpolation between whole
// samples (the OLA stretch runs ahead of the cubic resampler stage, so a
// cheaper interpolation here is enough).
func (c *channelOLA) grainAt(pos float64, out *[olaGrain]float32) bool {
	base := int(pos)
	if base+olaGrain+1 > len(c.pending) {
		return false
	}
	frac := float32(pos - float64(base))
	for i := 0; i < olaGrain; i++ {
		a := c.pending[base+i]
		b := c.pending[base+i+1]
		out[i] = (a + (b-a)*frac) * c.window[i]
	}
	return true
}

// TempoPitchShifter time-stretches audio by a fixed-grain overlap-add
// technique: a synthesis hop advances the output at a constant rate while
// the analysis hop (which may be fractional) advances the read position
// by the synthesis hop divided by the stretch factor, preserving pitch while changing
// duration. Combined with a downstream Cubic resample run at
// nativeRate*pitchRatio -> engineRate, this decouples tempo (duration)
// from pitch: see the engine design notes for the ratio algebra.
type TempoPitchShifter struct {
	channels     int
	chans        []*channelOLA
	stretch      float64 // output_len / input_len at native rate
	pitchRatio   float64
	tempoRatio   float64
}

// NewTempoPitchShifter creates a shifter for the given channel count.
func NewTempoPitchShifter(channels int) *TempoPitchShifter {
	t := &TempoPitchShifter{channels: channels, tempoRatio: 1, pitchRatio: 1, stretch: 1}
	t.chans = make([]*channelOLA, channels)
	for i := range t.chans {
		t.chans[i] = newChannelOLA()
	}
	return t
}

// SetParams configures the shifter from the source's tempo (percent
// change, 0 = unity) and pitch (semitones, 0 = unity) controls.
func (t *TempoPitchShifter) SetParams(tempoPercent, pitchSemitones float64) {
	t.tempoRatio = 1 + tempoPercent/100
	t.pitchRatio = math.Pow(2, pitchSemitones/12)
	t.stretch = t.pitchRatio / t.tempoRatio
}

// PitchRatio reports the resample ratio the caller must apply downstream
// (nativeRate*PitchRatio -> engineRate) to complete the pitch shift.
func (t *TempoPitchShifter) PitchRatio() float64 { return t.pitchRatio }

// Bypass reports whether tempo and pitch are both at unity, in which case
// the caller should skip this stage entirely and copy through.
func (t *TempoPitchShifter) Bypass() bool {
	return t.tempoRatio == 1 && t.pitchRatio == 1
}

// Reset discards all pending input and overlap state, for seeks and loops.
func (t *TempoPitchShifter) Reset() {
	for _, c := range t.chans {
		c.reset()
	}
}

// Process appends src (interleaved, t.channels) to each channel's pending
// buffer and writes as many stretched output frames as are available into
// dst (interleaved, t.channels), returning the number of frames produced.
// Fewer frames than requested may be produced if there isn't enough
// buffered input yet; the caller should treat the shortfall like any
// other source underrun.
func (t *TempoPitchShifter) Process(dst []float32, src []float32) (producedFrames int) {
	srcFrames := len(src) / t.channels
	dstFrames := len(dst) / t.channels

	var grain [olaGrain]float32
	for ch := 0; ch < t.channels; ch++ {
		c := t.chans[ch]
		for i := 0; i < srcFrames; i++ {
			c.pending = append(c.pending, src[i*t.channels+ch])
		}

		produced := 0
		for produced < dstFrames {
			if !c.grainAt(c.analysisPos, &grain) {
				break
			}
			for i := 0; i < olaHop && produced < dstFrames; i++ {
				sum := grain[i]
				if i < c.tailLen {
					sum += c.tail[i]
				}
				dst[produced*t.channels+ch] = sum
				produced++
			}
			// carry the non-overlapped remainder of this grain into tail
			newTailLen := olaGrain - olaHop
			for i := 0; i < newTailLen; i++ {
				v := grain[olaHop+i]
				if olaHop+i < c.tailLen {
					v += c.tail[olaHop+i]
				}
				c.tail[i] = v
			}
			c.tailLen = newTailLen
			c.analysisPos += float64(olaHop) / t.stretch
		}

		if produced > producedFrames {
			producedFrames = produced
		}

		// drop consumed prefix of pending once analysisPos has moved far
		// enough past it to never be revisited.
		drop := int(c.analysisPos) - olaGrain
		if drop > 0 && drop < len(c.pending) {
			c.pending = c.pending[drop:]
			c.analysisPos -= float64(drop)
		}
	}

	return producedFrames
}
