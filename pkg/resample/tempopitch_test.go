package resample

import "testing"

func TestTempoPitchShifterBypassAtUnity(t *testing.T) {
	s := NewTempoPitchShifter(1)
	s.SetParams(0, 0)
	if !s.Bypass() {
		t.Fatalf("Bypass() = false at tempo=0 pitch=0, want true")
	}
}

func TestTempoPitchShifterNotBypassedWhenTempoChanges(t *testing.T) {
	s := NewTempoPitchShifter(1)
	s.SetParams(20, 0)
	if s.Bypass() {
		t.Fatalf("Bypass() = true at tempo=20%%, want false")
	}
}

func TestTempoPitchShifterPitchRatioFromSemitones(t *testing.T) {
	s := NewTempoPitchShifter(1)
	s.SetParams(0, 12) // one octave up
	got := s.PitchRatio()
	if got < 1.99 || got > 2.01 {
		t.Fatalf("PitchRatio() = %v, want ~2.0 for +12 semitones", got)
	}
}

func TestTempoPitchShifterProducesBoundedOutput(t *testing.T) {
	s := NewTempoPitchShifter(1)
	s.SetParams(0, 0)

	src := make([]float32, olaGrain*4)
	for i := range src {
		src[i] = 1
	}
	dst := make([]float32, olaGrain)

	produced := s.Process(dst, src)
	if produced <= 0 {
		t.Fatalf("produced = %d, want > 0 once enough input is buffered", produced)
	}
	if produced > len(dst) {
		t.Fatalf("produced = %d exceeds dst capacity %d", produced, len(dst))
	}
}

func TestTempoPitchShifterResetClearsPendingState(t *testing.T) {
	s := NewTempoPitchShifter(1)
	src := make([]float32, olaGrain*2)
	dst := make([]float32, olaGrain)
	s.Process(dst, src)

	s.Reset()
	for _, c := range s.chans {
		if len(c.pending) != 0 || c.analysisPos != 0 || c.tailLen != 0 {
			t.Fatalf("Reset left channel state: pending=%d analysisPos=%v tailLen=%d",
				len(c.pending), c.analysisPos, c.tailLen)
		}
	}
}
