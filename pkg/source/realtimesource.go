package source

import (
	"context"

	"github.com/drgolem/mixengine/pkg/bufferpool"
	"github.com/drgolem/mixengine/pkg/musicerr"
)

// RealtimeSource accepts audio the application submits directly (e.g.
// synthesized tones, a network jitter buffer already decoded upstream).
// Unlike InputSource, overflow is surfaced to the caller as an error
// rather than silently dropped, since Submit is called from application
// code that can reasonably retry or back off.
type RealtimeSource struct {
	*Base
}

// NewRealtimeSource creates a RealtimeSource accepting nativeChannels-
// channel audio at nativeRate via Submit.
func NewRealtimeSource(id, name string, nativeRate, nativeChannels, engineRate, engineChannels, queueCapFrames int, pool *bufferpool.Pool) *RealtimeSource {
	base := NewBase(id, name, KindRealtime, nativeRate, nativeChannels, engineRate, engineChannels, queueCapFrames, pool)
	return &RealtimeSource{Base: base}
}

func (s *RealtimeSource) Start(ctx context.Context) error {
	s.setState(StatePlaying)
	return nil
}

func (s *RealtimeSource) Stop() {
	s.setState(StateStopped)
}

// Seek is not supported for application-submitted audio.
func (s *RealtimeSource) Seek(frames uint64) error {
	return musicerr.New(musicerr.KindIllegalState, s.ID(), errUnsupported)
}

// Submit pushes one block of interleaved, native-channel-count frames
// into the source's queue. Returns musicerr with KindInvalidArgument if
// samples isn't a whole number of frames, or KindOverrun if the queue
// doesn't have room for all of it; neither case writes any of samples.
func (s *RealtimeSource) Submit(samples []float32) error {
	channels := s.nativeChannels
	if len(samples)%channels != 0 {
		return musicerr.New(musicerr.KindInvalidArgument, s.ID(), errMisalignedFrame, "channels", channels, "len", len(samples))
	}
	return s.queue.PushReject(samples)
}
