package engine

import (
	"sync"
	"testing"

	"github.com/drgolem/mixengine/pkg/sampleprocessor"
	"github.com/drgolem/mixengine/pkg/source"
)

// fakeBackend is a DeviceBackend test double whose onRender is driven
// synchronously by renderOnce, rather than from a real hardware thread.
type fakeBackend struct {
	mu       sync.Mutex
	opened   bool
	started  bool
	onRender func([]float32)
	devices  []Device
}

func (f *fakeBackend) Initialize() error { return nil }
func (f *fakeBackend) Terminate() error  { return nil }
func (f *fakeBackend) EnumerateDevices() ([]Device, error) {
	return f.devices, nil
}
func (f *fakeBackend) Open(deviceIndex, sampleRate, channels, framesPerBuffer int, onRender func([]float32)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onRender = onRender
	f.opened = true
	return nil
}
func (f *fakeBackend) Start() error {
	f.mu.Lock()
	f.started = true
	f.mu.Unlock()
	return nil
}
func (f *fakeBackend) Stop() error {
	f.mu.Lock()
	f.started = false
	f.mu.Unlock()
	return nil
}
func (f *fakeBackend) Close() error {
	f.mu.Lock()
	f.opened = false
	f.mu.Unlock()
	return nil
}

// renderOnce drives one mixer callback directly, the way the real backend
// would from its hardware thread.
func (f *fakeBackend) renderOnce(out []float32) {
	f.mu.Lock()
	cb := f.onRender
	f.mu.Unlock()
	if cb != nil {
		cb(out)
	}
}

func newTestHandle(t *testing.T) (*Handle, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	cfg := Config{SampleRate: 48000, Channels: 1, FramesPerBuffer: 64}
	h, err := New(cfg, backend, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h, backend
}

func TestPlayOpensStreamOnlyOnce(t *testing.T) {
	h, backend := newTestHandle(t)
	defer h.Close()

	if err := h.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !backend.opened || !backend.started {
		t.Fatalf("backend not opened/started after Play")
	}
	if h.State() != StatePlaying {
		t.Fatalf("State() = %v, want StatePlaying", h.State())
	}

	if err := h.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := h.Play(); err != nil {
		t.Fatalf("second Play (resume): %v", err)
	}
	if h.State() != StatePlaying {
		t.Fatalf("State() = %v after resume, want StatePlaying", h.State())
	}
}

func TestAddRealtimeSourceDuplicateIDRejected(t *testing.T) {
	h, _ := newTestHandle(t)
	defer h.Close()

	if _, err := h.AddRealtimeSource("s1", "s1", 48000, 1); err != nil {
		t.Fatalf("AddRealtimeSource: %v", err)
	}
	if _, err := h.AddRealtimeSource("s1", "s1", 48000, 1); err == nil {
		t.Fatalf("expected error registering a duplicate source id")
	}
}

func TestSourceByNameFindsRegisteredSource(t *testing.T) {
	h, _ := newTestHandle(t)
	defer h.Close()

	rs, err := h.AddRealtimeSource("s1", "tone", 48000, 1)
	if err != nil {
		t.Fatalf("AddRealtimeSource: %v", err)
	}
	found, ok := h.SourceByName("tone")
	if !ok || found != rs {
		t.Fatalf("SourceByName(%q) = %v, %v, want the registered source", "tone", found, ok)
	}
	if _, ok := h.SourceByName("no-such-name"); ok {
		t.Fatalf("SourceByName found a match for a name that was never registered")
	}
}

func TestAggregateDurationAndPositionExcludeNonFileSources(t *testing.T) {
	h, _ := newTestHandle(t)
	defer h.Close()

	if _, err := h.AddRealtimeSource("s1", "s1", 48000, 1); err != nil {
		t.Fatalf("AddRealtimeSource: %v", err)
	}
	// RealtimeSource reports DurationFrames()==0 and isn't a file source,
	// so it never contributes to either aggregate.
	if got := h.AggregateDuration(); got != 0 {
		t.Fatalf("AggregateDuration() = %d, want 0 with no file sources registered", got)
	}
	if got := h.AggregatePosition(); got != 0 {
		t.Fatalf("AggregatePosition() = %d, want 0 with no file sources registered", got)
	}
}

func TestRemoveStopsAndDropsSource(t *testing.T) {
	h, _ := newTestHandle(t)
	defer h.Close()

	rs, err := h.AddRealtimeSource("s1", "s1", 48000, 1)
	if err != nil {
		t.Fatalf("AddRealtimeSource: %v", err)
	}
	rs.Start(nil)

	if err := h.Remove("s1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := h.Source("s1"); ok {
		t.Fatalf("source still registered after Remove")
	}
}

func TestResetDropsSourcesButKeepsMasterChain(t *testing.T) {
	h, _ := newTestHandle(t)
	defer h.Close()

	if _, err := h.AddRealtimeSource("s1", "s1", 48000, 1); err != nil {
		t.Fatalf("AddRealtimeSource: %v", err)
	}
	h.MasterChain().Add(sampleprocessor.NewGain(2))

	if err := h.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if _, ok := h.Source("s1"); ok {
		t.Fatalf("source still registered after Reset")
	}
	// Reset clears registered sources but only resets processor state on
	// the master chain, it doesn't remove the processors themselves.
	if h.MasterChain().Len() != 1 {
		t.Fatalf("MasterChain().Len() = %d after Reset, want 1 (processor retained)", h.MasterChain().Len())
	}
}

func TestPlayStartsRegisteredSources(t *testing.T) {
	h, backend := newTestHandle(t)
	defer h.Close()

	rs, err := h.AddRealtimeSource("s1", "s1", 48000, 1)
	if err != nil {
		t.Fatalf("AddRealtimeSource: %v", err)
	}
	if err := h.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if rs.State() != source.StatePlaying {
		t.Fatalf("source state = %v after Play, want StatePlaying", rs.State())
	}

	rs.Submit([]float32{0.5})
	out := make([]float32, 1)
	backend.renderOnce(out)
	if out[0] != 0.5 {
		t.Fatalf("out[0] = %v, want 0.5 from the submitted sample", out[0])
	}
}

func TestDefaultReturnsSameHandleAcrossCalls(t *testing.T) {
	backend := &fakeBackend{}
	cfg := Config{SampleRate: 48000, Channels: 1, FramesPerBuffer: 64}

	h1, err := Default(cfg, backend, nil)
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	h2, err := Default(Config{SampleRate: 1, Channels: 1, FramesPerBuffer: 1}, &fakeBackend{}, nil)
	if err != nil {
		t.Fatalf("Default (second call): %v", err)
	}
	if h1 != h2 {
		t.Fatalf("Default returned different handles across calls")
	}
}
