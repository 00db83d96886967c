package source

import (
	"context"
	"log/slog"

	"github.com/drgolem/mixengine/pkg/bufferpool"
	"github.com/drgolem/mixengine/pkg/musicerr"
)

// CaptureBackend is the consumed interface for live microphone capture: a
// concrete adapter (e.g. over PortAudio's input stream) calls onCapture
// from its own callback thread for every block it receives.
type CaptureBackend interface {
	Start(onCapture func(frames []float32)) error
	Stop() error
}

// InputSource streams audio from a live capture backend. Unlike
// FileSource, overrun is handled by dropping the tail of an incoming
// block rather than blocking the capture callback, since that callback
// is itself hard-real-time on most backends.
type InputSource struct {
	*Base

	backend CaptureBackend
	logger  *slog.Logger
}

// NewInputSource creates an InputSource reading nativeChannels-channel
// audio at nativeRate from backend.
func NewInputSource(id, name string, backend CaptureBackend, nativeRate, nativeChannels, engineRate, engineChannels, queueCapFrames int, pool *bufferpool.Pool, logger *slog.Logger) *InputSource {
	base := NewBase(id, name, KindInput, nativeRate, nativeChannels, engineRate, engineChannels, queueCapFrames, pool)
	if logger == nil {
		logger = slog.Default()
	}
	return &InputSource{
		Base:    base,
		backend: backend,
		logger:  logger.With("source_id", id, "kind", "input"),
	}
}

func (s *InputSource) Start(ctx context.Context) error {
	if err := s.backend.Start(s.onCapture); err != nil {
		return musicerr.New(musicerr.KindDeviceError, s.ID(), err)
	}
	s.setState(StatePlaying)
	return nil
}

func (s *InputSource) Stop() {
	if err := s.backend.Stop(); err != nil {
		s.logger.Warn("capture backend stop failed", "error", err)
	}
	s.setState(StateStopped)
}

// Seek is not supported for live capture.
func (s *InputSource) Seek(frames uint64) error {
	return musicerr.New(musicerr.KindIllegalState, s.ID(), errUnsupported)
}

// onCapture is called by the capture backend's own thread, hard- or
// soft-real-time depending on the backend, for each block it produces.
// It must never block: falling behind drops the tail of the block and
// records an overrun instead of blocking the backend.
func (s *InputSource) onCapture(frames []float32) {
	if s.State() != StatePlaying {
		return
	}
	s.queue.PushDropTail(frames)
}

// OverrunCount reports how many frames have been dropped because the
// mixer wasn't draining the queue fast enough.
func (s *InputSource) OverrunCount() uint64 {
	return s.queue.OverrunCount()
}
