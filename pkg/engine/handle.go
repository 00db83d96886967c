package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/drgolem/mixengine/pkg/bufferpool"
	"github.com/drgolem/mixengine/pkg/mixer"
	"github.com/drgolem/mixengine/pkg/musicerr"
	"github.com/drgolem/mixengine/pkg/sampleprocessor"
	"github.com/drgolem/mixengine/pkg/source"
)

// State is the engine-wide playback state, distinct from (but driving)
// each source's own State.
type State int32

const (
	StateUninit State = iota
	StateStopped
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "uninit"
	}
}

// Handle is one playback engine instance: a mixer, a device backend, and
// the set of sources feeding it. Callers that want more than one engine
// in a process construct multiple Handles via New; Default wraps exactly
// one Handle behind a package-level singleton for everyone else.
type Handle struct {
	cfg     Config
	backend DeviceBackend
	mixer   *mixer.Mixer
	pool    *bufferpool.Pool
	logger  *slog.Logger

	mu      sync.Mutex
	sources map[string]source.Source
	state   atomic.Int32
	opened  bool
}

// New initializes backend and returns a Handle ready to have sources
// added. The device stream itself isn't opened until Play.
func New(cfg Config, backend DeviceBackend, logger *slog.Logger) (*Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := backend.Initialize(); err != nil {
		return nil, musicerr.New(musicerr.KindInitFailure, "", err)
	}

	pool := bufferpool.New(logger)
	h := &Handle{
		cfg:     cfg,
		backend: backend,
		mixer:   mixer.New(cfg.Channels, pool),
		pool:    pool,
		logger:  logger.With("component", "engine"),
		sources: make(map[string]source.Source),
	}
	h.state.Store(int32(StateStopped))
	return h, nil
}

// MasterChain returns the processor chain applied to the summed mix.
func (h *Handle) MasterChain() *sampleprocessor.Chain { return h.mixer.MasterChain() }

// State reports the engine's current playback state.
func (h *Handle) State() State { return State(h.state.Load()) }

// EnumerateDevices lists the backend's available output devices.
func (h *Handle) EnumerateDevices() ([]Device, error) {
	return h.backend.EnumerateDevices()
}

func (h *Handle) refreshActiveSources() {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := make([]source.Source, 0, len(h.sources))
	for _, s := range h.sources {
		list = append(list, s)
	}
	h.mixer.SetSources(list)
}

// AddFileSource opens fileName for decoding and registers it under id.
// The source is not started until Play (or, if the engine is already
// Playing, it starts immediately).
func (h *Handle) AddFileSource(id, name, fileName string) (*source.FileSource, error) {
	h.mu.Lock()
	if _, exists := h.sources[id]; exists {
		h.mu.Unlock()
		return nil, musicerr.New(musicerr.KindInvalidArgument, id, fmt.Errorf("source id already in use"))
	}
	h.mu.Unlock()

	fs, err := source.NewFileSource(id, name, fileName, h.cfg.SampleRate, h.cfg.Channels, h.cfg.FramesPerBuffer, h.cfg.stopBudget(), h.pool, h.logger)
	if err != nil {
		return nil, err
	}

	h.registerAndMaybeStart(id, fs)
	return fs, nil
}

// AddInputSource registers a live-capture source reading from backend.
func (h *Handle) AddInputSource(id, name string, backend source.CaptureBackend, nativeRate, nativeChannels int) (*source.InputSource, error) {
	h.mu.Lock()
	if _, exists := h.sources[id]; exists {
		h.mu.Unlock()
		return nil, musicerr.New(musicerr.KindInvalidArgument, id, fmt.Errorf("source id already in use"))
	}
	h.mu.Unlock()

	qcap := queueCapacityFrames(h.cfg, nativeRate)
	is := source.NewInputSource(id, name, backend, nativeRate, nativeChannels, h.cfg.SampleRate, h.cfg.Channels, qcap, h.pool, h.logger)
	h.registerAndMaybeStart(id, is)
	return is, nil
}

// AddRealtimeSource registers a source fed by application code via its
// Submit method.
func (h *Handle) AddRealtimeSource(id, name string, nativeRate, nativeChannels int) (*source.RealtimeSource, error) {
	h.mu.Lock()
	if _, exists := h.sources[id]; exists {
		h.mu.Unlock()
		return nil, musicerr.New(musicerr.KindInvalidArgument, id, fmt.Errorf("source id already in use"))
	}
	h.mu.Unlock()

	qcap := queueCapacityFrames(h.cfg, nativeRate)
	rs := source.NewRealtimeSource(id, name, nativeRate, nativeChannels, h.cfg.SampleRate, h.cfg.Channels, qcap, h.pool)
	h.registerAndMaybeStart(id, rs)
	return rs, nil
}

func (h *Handle) registerAndMaybeStart(id string, s source.Source) {
	h.mu.Lock()
	h.sources[id] = s
	playing := State(h.state.Load()) == StatePlaying
	h.mu.Unlock()

	h.refreshActiveSources()

	if playing {
		if err := s.Start(context.Background()); err != nil {
			h.logger.Error("failed to start source added during playback", "source_id", id, "error", err)
		}
	}
}

// Remove stops and drops the source registered under id.
func (h *Handle) Remove(id string) error {
	h.mu.Lock()
	s, ok := h.sources[id]
	if !ok {
		h.mu.Unlock()
		return musicerr.New(musicerr.KindInvalidArgument, id, fmt.Errorf("no such source"))
	}
	delete(h.sources, id)
	h.mu.Unlock()

	s.Stop()
	h.refreshActiveSources()
	return nil
}

// Source looks up a registered source by id.
func (h *Handle) Source(id string) (source.Source, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sources[id]
	return s, ok
}

// SourceByName looks up a registered source by its display name rather
// than its id. Names aren't required to be unique; the first match in
// map iteration order is returned.
func (h *Handle) SourceByName(name string) (source.Source, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sources {
		if s.Name() == name {
			return s, true
		}
	}
	return nil, false
}

// AggregateDuration reports the engine's overall duration: the longest
// DurationFrames among registered file sources, or 0 if none are
// registered (live/realtime sources report 0 and don't participate).
func (h *Handle) AggregateDuration() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	var max uint64
	for _, s := range h.sources {
		if s.Kind() != source.KindFile {
			continue
		}
		if d := s.DurationFrames(); d > max {
			max = d
		}
	}
	return max
}

// AggregatePosition reports the engine's overall playback position: the
// minimum PositionFrames among registered, non-looped file sources, so
// the reported position reflects whichever file will finish soonest.
// Looped sources never finish and are excluded; 0 if no file source
// qualifies.
func (h *Handle) AggregatePosition() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	var min uint64
	found := false
	for _, s := range h.sources {
		if s.Kind() != source.KindFile || s.Loop() {
			continue
		}
		p := s.PositionFrames()
		if !found || p < min {
			min = p
			found = true
		}
	}
	return min
}

// Duration reports a source's total length in native-rate frames.
func (h *Handle) Duration(id string) (uint64, error) {
	s, ok := h.Source(id)
	if !ok {
		return 0, musicerr.New(musicerr.KindInvalidArgument, id, fmt.Errorf("no such source"))
	}
	return s.DurationFrames(), nil
}

// Position reports a source's current playback position in native-rate
// frames.
func (h *Handle) Position(id string) (uint64, error) {
	s, ok := h.Source(id)
	if !ok {
		return 0, musicerr.New(musicerr.KindInvalidArgument, id, fmt.Errorf("no such source"))
	}
	return s.PositionFrames(), nil
}

// Seek requests a position change on a source, in native-rate frames.
func (h *Handle) Seek(id string, frames uint64) error {
	s, ok := h.Source(id)
	if !ok {
		return musicerr.New(musicerr.KindInvalidArgument, id, fmt.Errorf("no such source"))
	}
	return s.Seek(frames)
}

// Play opens (if needed) and starts the device stream, then starts every
// registered source that isn't already running. Transitions
// Uninit/Stopped/Paused -> Playing.
func (h *Handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.opened {
		if err := h.backend.Open(h.cfg.DeviceIndex, h.cfg.SampleRate, h.cfg.Channels, h.cfg.FramesPerBuffer, h.mixer.Render); err != nil {
			return musicerr.New(musicerr.KindDeviceError, "", err)
		}
		h.opened = true
	}

	wasPaused := State(h.state.Load()) == StatePaused
	for id, s := range h.sources {
		if wasPaused {
			continue // paused sources resume in place, not restarted
		}
		if s.State() == source.StateStopped {
			if err := s.Start(context.Background()); err != nil {
				h.logger.Error("failed to start source", "source_id", id, "error", err)
			}
		}
	}

	if err := h.backend.Start(); err != nil {
		return musicerr.New(musicerr.KindDeviceError, "", err)
	}
	h.state.Store(int32(StatePlaying))
	return nil
}

// Pause stops the device stream from advancing audible output without
// tearing down sources; Play resumes from the same position.
func (h *Handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.backend.Stop(); err != nil {
		return musicerr.New(musicerr.KindDeviceError, "", err)
	}
	h.state.Store(int32(StatePaused))
	return nil
}

// Stop halts the device stream and every source's producer, returning to
// Stopped. Sources remain registered; Play restarts them from the
// beginning (FileSource) or idle (Input/Realtime).
func (h *Handle) Stop() error {
	h.mu.Lock()
	sources := make([]source.Source, 0, len(h.sources))
	for _, s := range h.sources {
		sources = append(sources, s)
	}
	h.mu.Unlock()

	for _, s := range sources {
		s.Stop()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.opened {
		if err := h.backend.Stop(); err != nil {
			h.logger.Warn("backend stop failed", "error", err)
		}
	}
	h.state.Store(int32(StateStopped))
	return nil
}

// Reset drops every registered source and resets the master chain only;
// per-source chains are discarded along with their owning sources.
func (h *Handle) Reset() error {
	if err := h.Stop(); err != nil {
		return err
	}

	h.mu.Lock()
	h.sources = make(map[string]source.Source)
	h.mu.Unlock()

	h.refreshActiveSources()
	h.mixer.MasterChain().Reset()
	return nil
}

// Errors drains and returns the most recent error event from every
// registered source that has one pending.
func (h *Handle) Errors() []*musicerr.Event {
	h.mu.Lock()
	sources := make([]source.Source, 0, len(h.sources))
	for _, s := range h.sources {
		sources = append(sources, s)
	}
	h.mu.Unlock()

	var events []*musicerr.Event
	for _, s := range sources {
		if e := s.LastError(); e != nil {
			events = append(events, e)
		}
	}
	return events
}

// Close tears the engine all the way down: stops everything and
// terminates the backend. The Handle must not be used afterward.
func (h *Handle) Close() error {
	if err := h.Reset(); err != nil {
		h.logger.Warn("reset during close failed", "error", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.opened {
		if err := h.backend.Close(); err != nil {
			h.logger.Warn("backend close failed", "error", err)
		}
		h.opened = false
	}
	return h.backend.Terminate()
}
