package source

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/drgolem/mixengine/pkg/bufferpool"
	"github.com/drgolem/mixengine/pkg/musicerr"
)

const (
	fileDecodeChunkFrames = 4096
	fileStopBudget        = 250 * time.Millisecond
)

// FileSource decodes an audio file on a background worker goroutine and
// feeds decoded frames into the shared Base queue. Seeking and looping
// both reopen the underlying decoder and discard samples up to the
// target position, since the wav/mp3/flac decoders this engine wraps
// don't expose native seek support.
type FileSource struct {
	*Base

	decoder *fileDecoderAdapter

	stopBudget time.Duration
	stopCh     chan struct{}
	seekCh     chan uint64
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewFileSource creates a FileSource for fileName. The file is opened
// immediately so format (rate/channels) is known before Start; decoding
// itself begins on Start. framesPerBuffer is the engine's device block
// size, used (together with the file's native rate, once known) to size
// the queue as max(200ms, 4*framesPerBuffer). stopBudget bounds how long
// Stop waits for the decode worker to exit before detaching it; zero
// means fileStopBudget.
func NewFileSource(id, name, fileName string, engineRate, engineChannels, framesPerBuffer int, stopBudget time.Duration, pool *bufferpool.Pool, logger *slog.Logger) (*FileSource, error) {
	dec := newFileDecoderAdapter(fileName)
	if err := dec.open(); err != nil {
		return nil, musicerr.New(musicerr.KindDecodeError, id, err)
	}

	queueCapFrames := QueueCapacityFrames(dec.rate, framesPerBuffer)
	base := NewBase(id, name, KindFile, dec.rate, dec.channels, engineRate, engineChannels, queueCapFrames, pool)
	if logger == nil {
		logger = slog.Default()
	}
	if stopBudget <= 0 {
		stopBudget = fileStopBudget
	}
	return &FileSource{
		Base:       base,
		decoder:    dec,
		stopBudget: stopBudget,
		logger:     logger.With("source_id", id, "kind", "file"),
	}, nil
}

// Start launches the decode worker. Safe to call once per Stop/Start
// cycle.
func (f *FileSource) Start(ctx context.Context) error {
	if f.decoder.decoder == nil {
		// Stop closed the decoder; reopen it so playback restarts from
		// the beginning of the file.
		if err := f.decoder.open(); err != nil {
			return musicerr.New(musicerr.KindDecodeError, f.ID(), err)
		}
		f.positionFrames.Store(0)
		f.resetPipeline()
	}
	f.stopCh = make(chan struct{})
	f.seekCh = make(chan uint64, 1)
	f.setState(StateBuffering)

	f.wg.Add(1)
	go f.decodeLoop()
	return nil
}

// Stop signals the decode worker to exit and waits up to the source's
// stop budget (fileStopBudget unless configured) for it to do so; a
// worker that doesn't exit in time is detached and logged rather than
// blocking the caller indefinitely. Calling Stop again is a no-op.
func (f *FileSource) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
		return // already stopped
	default:
	}
	close(f.stopCh)
	if !waitDetach(&f.wg, f.stopBudget) {
		f.logger.Warn("file source decode worker did not exit within budget, detaching")
	}
	f.decoder.close()
	f.setState(StateStopped)
}

// Seek requests the decode worker reposition to the given native-rate
// frame offset. The request is picked up by the decode loop between
// chunks; the resample/tempo-pitch pipeline state is reset so
// interpolation never spans the discontinuity. Seeking an Errored source
// is rejected; seeking one at EndOfStream starts a new decode worker.
func (f *FileSource) Seek(frames uint64) error {
	if f.seekCh == nil {
		return musicerr.New(musicerr.KindIllegalState, f.ID(), errNotStarted)
	}
	if f.State() == StateErrored {
		return musicerr.New(musicerr.KindIllegalState, f.ID(), errors.New("source: seek on an errored source"))
	}
	select {
	case f.seekCh <- frames:
		if f.State() == StateEndOfStream {
			// The previous worker returned at end of stream; start one to
			// pick up the request.
			f.wg.Add(1)
			go f.decodeLoop()
		}
		return nil
	default:
		return musicerr.New(musicerr.KindIllegalState, f.ID(), errSeekPending)
	}
}

func (f *FileSource) decodeLoop() {
	defer f.wg.Done()

	chunk := make([]float32, fileDecodeChunkFrames*f.decoder.channels)

	for {
		select {
		case <-f.stopCh:
			return
		case target := <-f.seekCh:
			f.applySeek(target)
			continue
		default:
		}

		if f.State() == StatePaused {
			time.Sleep(5 * time.Millisecond)
			continue
		}

		n, eof, err := f.decoder.decodeFrames(chunk, fileDecodeChunkFrames)
		if err != nil {
			f.recordError(musicerr.KindDecodeError, err)
			f.setState(StateErrored)
			return
		}

		if n > 0 {
			if pushErr := f.queue.PushBlocking(chunk[:n*f.decoder.channels], f.stopCh); pushErr != nil {
				return
			}
			if f.State() == StateBuffering {
				f.setState(StatePlaying)
			}
		}

		if eof {
			if f.Loop() {
				f.applySeek(0)
				continue
			}
			f.setState(StateEndOfStream)
			return
		}
	}
}

// applySeek reopens the decoder and discards samples up to target,
// resetting the resample/tempo-pitch pipeline.
func (f *FileSource) applySeek(target uint64) {
	if err := f.decoder.reopen(); err != nil {
		f.recordError(musicerr.KindDecodeError, err)
		f.setState(StateErrored)
		return
	}

	discard := make([]float32, fileDecodeChunkFrames*f.decoder.channels)
	remaining := target
	for remaining > 0 {
		want := fileDecodeChunkFrames
		if uint64(want) > remaining {
			want = int(remaining)
		}
		n, eof, err := f.decoder.decodeFrames(discard, want)
		if err != nil {
			f.recordError(musicerr.KindDecodeError, err)
			f.setState(StateErrored)
			return
		}
		remaining -= uint64(n)
		if eof {
			break
		}
	}

	f.positionFrames.Store(target)
	f.resetPipeline()
	if f.State() == StateErrored || f.State() == StateEndOfStream {
		f.setState(StateBuffering)
	}
}
