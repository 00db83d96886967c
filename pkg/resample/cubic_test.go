package resample

import "testing"

func TestCubicInterpolateMatchesCatmullRom(t *testing.T) {
	got := cubicInterpolate(1, 2, 5, 3, 0.5)
	want := float32(3.6875)
	if diff := got - want; diff > 1e-4 || diff < -1e-4 {
		t.Fatalf("cubicInterpolate(1,2,5,3,0.5) = %v, want %v", got, want)
	}
}

func TestCubicPassthroughRatioOne(t *testing.T) {
	c := NewCubic(48000, 48000)
	src := make([]float32, 64)
	for i := range src {
		src[i] = float32(i)
	}
	dst := make([]float32, 64)

	consumed, produced := c.Process(dst, src)
	if consumed == 0 || produced == 0 {
		t.Fatalf("expected forward progress, got consumed=%d produced=%d", consumed, produced)
	}
	// At unity ratio the interpolated value at an integer position should
	// closely track the source value two samples behind the write head
	// (the window hasn't been primed before that).
	if produced < 4 {
		t.Fatalf("produced too few samples to check: %d", produced)
	}
	for i := 0; i < produced; i++ {
		if dst[i] != src[i] {
			t.Fatalf("dst[%d] = %v, want %v (unity ratio passes samples through)", i, dst[i], src[i])
		}
	}
}

func TestCubicConsumesOnlyWhatItNeeds(t *testing.T) {
	c := NewCubic(44100, 44100)
	src := make([]float32, 1000)
	dst := make([]float32, 10)

	consumed, produced := c.Process(dst, src)
	if produced != 10 {
		t.Fatalf("produced = %d, want 10", produced)
	}
	if consumed >= len(src) {
		t.Fatalf("consumed = %d, should stop well short of src len %d for only 10 outputs", consumed, len(src))
	}
}

func TestCubicReturnsShortfallWhenSrcExhausted(t *testing.T) {
	c := NewCubic(48000, 48000)
	src := make([]float32, 2)
	dst := make([]float32, 10)

	consumed, produced := c.Process(dst, src)
	if consumed != len(src) {
		t.Fatalf("consumed = %d, want %d (all of src)", consumed, len(src))
	}
	if produced >= 10 {
		t.Fatalf("produced = %d, expected underrun with only 2 src samples", produced)
	}
}

func TestCubicResetClearsState(t *testing.T) {
	c := NewCubic(48000, 24000)
	src := make([]float32, 16)
	for i := range src {
		src[i] = 1
	}
	dst := make([]float32, 4)
	c.Process(dst, src)

	c.Reset()
	if c.pos != 0 || c.nPushed != 0 {
		t.Fatalf("Reset did not clear pos/nPushed: pos=%v nPushed=%v", c.pos, c.nPushed)
	}
	for _, w := range c.window {
		if w != 0 {
			t.Fatalf("Reset did not clear window: %v", c.window)
		}
	}
}

func TestAdaptChannelsMonoToStereo(t *testing.T) {
	dst := make([]float32, 2)
	AdaptChannels(dst, []float32{0.5}, 2, 1)
	if dst[0] != 0.5 || dst[1] != 0.5 {
		t.Fatalf("dst = %v, want [0.5 0.5]", dst)
	}
}

func TestAdaptChannelsStereoToMono(t *testing.T) {
	dst := make([]float32, 1)
	AdaptChannels(dst, []float32{1, 0}, 1, 2)
	if dst[0] != 0.5 {
		t.Fatalf("dst[0] = %v, want 0.5", dst[0])
	}
}

func TestAdaptChannelsPassthrough(t *testing.T) {
	dst := make([]float32, 2)
	AdaptChannels(dst, []float32{0.1, 0.2}, 2, 2)
	if dst[0] != 0.1 || dst[1] != 0.2 {
		t.Fatalf("dst = %v, want [0.1 0.2]", dst)
	}
}

func TestAdaptChannelsOddLayoutRoundRobinsWithSilentRemainder(t *testing.T) {
	dst := make([]float32, 4)
	AdaptChannels(dst, []float32{1, 2, 3}, 4, 3)
	want := []float32{1, 2, 3, 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}
