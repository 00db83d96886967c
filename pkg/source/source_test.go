package source

import (
	"context"
	"errors"
	"testing"

	"github.com/drgolem/mixengine/pkg/bufferpool"
	"github.com/drgolem/mixengine/pkg/musicerr"
)

func TestRealtimeSourceSubmitRejectsMisalignedFrame(t *testing.T) {
	pool := bufferpool.New(nil)
	s := NewRealtimeSource("s", "s", 48000, 2, 48000, 2, 64, pool)

	err := s.Submit([]float32{1, 2, 3})
	if err == nil {
		t.Fatalf("expected error for a sample count not divisible by channel count")
	}
	var me *musicerr.Error
	if !errors.As(err, &me) || me.Kind != musicerr.KindInvalidArgument {
		t.Fatalf("err = %v, want KindInvalidArgument", err)
	}
}

func TestRealtimeSourceSeekUnsupported(t *testing.T) {
	pool := bufferpool.New(nil)
	s := NewRealtimeSource("s", "s", 48000, 1, 48000, 1, 64, pool)
	err := s.Seek(0)
	var me *musicerr.Error
	if !errors.As(err, &me) || me.Kind != musicerr.KindIllegalState {
		t.Fatalf("err = %v, want KindIllegalState", err)
	}
}

func TestBaseRenderBypassPathPassesSamplesThrough(t *testing.T) {
	pool := bufferpool.New(nil)
	s := NewRealtimeSource("s", "s", 48000, 1, 48000, 1, 64, pool)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := s.Submit([]float32{0.25, 0.5}); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	dst := make([]float32, 2)
	n := s.Render(dst)
	if n != 2 {
		t.Fatalf("Render produced %d frames, want 2", n)
	}
	if dst[0] != 0.25 || dst[1] != 0.5 {
		t.Fatalf("dst = %v, want [0.25 0.5]", dst)
	}
}

func TestBaseRenderAppliesVolume(t *testing.T) {
	pool := bufferpool.New(nil)
	s := NewRealtimeSource("s", "s", 48000, 1, 48000, 1, 64, pool)
	s.Start(context.Background())
	s.SetVolume(0.5)
	s.Submit([]float32{1})

	dst := make([]float32, 1)
	s.Render(dst)
	if dst[0] != 0.5 {
		t.Fatalf("dst[0] = %v, want 0.5 after volume=0.5", dst[0])
	}
}

func TestBaseRenderZeroPadsUnderrun(t *testing.T) {
	pool := bufferpool.New(nil)
	s := NewRealtimeSource("s", "s", 48000, 1, 48000, 1, 64, pool)
	s.Start(context.Background())
	// no samples submitted

	dst := make([]float32, 4)
	for i := range dst {
		dst[i] = 9
	}
	n := s.Render(dst)
	if n != 0 {
		t.Fatalf("Render produced %d frames from an empty queue, want 0", n)
	}
	for i, v := range dst {
		if v != 0 {
			t.Fatalf("dst[%d] = %v, want 0 (zero-padded underrun)", i, v)
		}
	}
}

func TestBaseRenderChannelAdaptMonoToStereo(t *testing.T) {
	pool := bufferpool.New(nil)
	s := NewRealtimeSource("s", "s", 48000, 1, 48000, 2, 64, pool)
	s.Start(context.Background())
	// Channel adaptation runs through the cubic resampler, which needs two
	// samples of lookahead before it emits its first output frame.
	s.Submit([]float32{0.4, 0.4, 0.4})

	dst := make([]float32, 2)
	n := s.Render(dst)
	if n != 1 {
		t.Fatalf("Render produced %d frames, want 1", n)
	}
	if dst[0] != 0.4 || dst[1] != 0.4 {
		t.Fatalf("dst = %v, want [0.4 0.4] (mono duplicated to stereo)", dst)
	}
}

func TestVolumeNeverGoesNegative(t *testing.T) {
	pool := bufferpool.New(nil)
	s := NewRealtimeSource("s", "s", 48000, 1, 48000, 1, 64, pool)
	s.SetVolume(-1)
	if s.Volume() != 0 {
		t.Fatalf("Volume() = %v, want 0 (negative clamped)", s.Volume())
	}
}

func TestVolumeClampsToOne(t *testing.T) {
	pool := bufferpool.New(nil)
	s := NewRealtimeSource("s", "s", 48000, 1, 48000, 1, 64, pool)
	s.SetVolume(5)
	if s.Volume() != 1 {
		t.Fatalf("Volume() = %v, want 1 (above-range clamped)", s.Volume())
	}
}

func TestSetTempoClampsToRange(t *testing.T) {
	pool := bufferpool.New(nil)
	s := NewRealtimeSource("s", "s", 48000, 1, 48000, 1, 64, pool)

	s.SetTempo(-100)
	if s.Tempo() != -20 {
		t.Fatalf("Tempo() = %v, want -20 (below-range clamped)", s.Tempo())
	}

	s.SetTempo(500)
	if s.Tempo() != 20 {
		t.Fatalf("Tempo() = %v, want 20 (above-range clamped)", s.Tempo())
	}
}

func TestSetPitchClampsToRange(t *testing.T) {
	pool := bufferpool.New(nil)
	s := NewRealtimeSource("s", "s", 48000, 1, 48000, 1, 64, pool)

	s.SetPitch(-50)
	if s.PitchSemitones() != -6 {
		t.Fatalf("PitchSemitones() = %v, want -6 (below-range clamped)", s.PitchSemitones())
	}

	s.SetPitch(50)
	if s.PitchSemitones() != 6 {
		t.Fatalf("PitchSemitones() = %v, want 6 (above-range clamped)", s.PitchSemitones())
	}
}

func TestLastErrorDrainsOnce(t *testing.T) {
	pool := bufferpool.New(nil)
	s := NewRealtimeSource("s", "s", 48000, 1, 48000, 1, 64, pool)
	s.recordError(musicerr.KindDecodeError, errors.New("boom"))

	ev := s.LastError()
	if ev == nil || ev.Kind != musicerr.KindDecodeError {
		t.Fatalf("LastError() = %v, want a KindDecodeError event", ev)
	}
	if s.LastError() != nil {
		t.Fatalf("LastError() should return nil the second time (drains on read)")
	}
}
