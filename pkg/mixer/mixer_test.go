package mixer

import (
	"context"
	"testing"

	"github.com/drgolem/mixengine/pkg/bufferpool"
	"github.com/drgolem/mixengine/pkg/sampleprocessor"
	"github.com/drgolem/mixengine/pkg/source"
)

func newPlayingRealtimeSource(t *testing.T, id string, channels int, pool *bufferpool.Pool) *source.RealtimeSource {
	t.Helper()
	s := source.NewRealtimeSource(id, id, 48000, channels, 48000, channels, 64, pool)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func TestRenderSumsTwoSources(t *testing.T) {
	pool := bufferpool.New(nil)
	m := New(2, pool)

	a := newPlayingRealtimeSource(t, "a", 2, pool)
	b := newPlayingRealtimeSource(t, "b", 2, pool)
	m.SetSources([]source.Source{a, b})

	a.Submit([]float32{0.2, 0.2})
	b.Submit([]float32{0.3, 0.3})

	out := make([]float32, 2)
	m.Render(out)

	if out[0] < 0.49 || out[0] > 0.51 {
		t.Fatalf("out[0] = %v, want ~0.5 (0.2+0.3)", out[0])
	}
}

func TestRenderSkipsNonPlayingSources(t *testing.T) {
	pool := bufferpool.New(nil)
	m := New(1, pool)

	a := source.NewRealtimeSource("a", "a", 48000, 1, 48000, 1, 64, pool) // never Start()ed
	m.SetSources([]source.Source{a})

	out := []float32{9}
	m.Render(out)
	if out[0] != 0 {
		t.Fatalf("out[0] = %v, want 0 (source was never started)", out[0])
	}
}

func TestRenderClampsOverflow(t *testing.T) {
	pool := bufferpool.New(nil)
	m := New(1, pool)

	a := newPlayingRealtimeSource(t, "a", 1, pool)
	b := newPlayingRealtimeSource(t, "b", 1, pool)
	m.SetSources([]source.Source{a, b})

	a.Submit([]float32{0.9})
	b.Submit([]float32{0.9})

	out := make([]float32, 1)
	m.Render(out)
	if out[0] != 1 {
		t.Fatalf("out[0] = %v, want clamped to 1", out[0])
	}
}

func TestRenderWithNoSourcesZeroesOutput(t *testing.T) {
	pool := bufferpool.New(nil)
	m := New(2, pool)

	out := []float32{1, 1}
	m.Render(out)
	if out[0] != 0 || out[1] != 0 {
		t.Fatalf("out = %v, want [0 0]", out)
	}
}

func TestMasterChainAppliesAfterSum(t *testing.T) {
	pool := bufferpool.New(nil)
	m := New(1, pool)
	m.MasterChain().Add(sampleprocessor.NewGain(2))

	a := newPlayingRealtimeSource(t, "a", 1, pool)
	m.SetSources([]source.Source{a})
	a.Submit([]float32{0.1})

	out := make([]float32, 1)
	m.Render(out)
	if out[0] < 0.19 || out[0] > 0.21 {
		t.Fatalf("out[0] = %v, want ~0.2 (0.1 summed then master gain x2)", out[0])
	}
}
