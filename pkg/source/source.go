// Package source implements the three source variants (file, live input,
// application-submitted) that share one contract: each owns a bounded
// frame queue, a per-source processor chain, and atomically-updated
// scalar controls (volume, tempo, pitch, loop), and produces audio at the
// engine's fixed output format on demand from the mixer's render loop.
package source

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/drgolem/mixengine/pkg/bufferpool"
	"github.com/drgolem/mixengine/pkg/musicerr"
	"github.com/drgolem/mixengine/pkg/resample"
	"github.com/drgolem/mixengine/pkg/sampleprocessor"
	"github.com/drgolem/mixengine/pkg/sourcequeue"
)

// State is a source's playback state.
type State int32

const (
	StateIdle State = iota
	StateStopped
	StateBuffering
	StatePlaying
	StatePaused
	StateEndOfStream
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEndOfStream:
		return "end_of_stream"
	case StateErrored:
		return "errored"
	default:
		return "idle"
	}
}

// Kind identifies a source variant.
type Kind int

const (
	KindFile Kind = iota
	KindInput
	KindRealtime
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindInput:
		return "input"
	case KindRealtime:
		return "realtime"
	default:
		return "unknown"
	}
}

// Source is the contract the mixer renders against. FileSource,
// InputSource, and RealtimeSource all satisfy it via an embedded *Base.
type Source interface {
	ID() string
	Name() string
	Kind() Kind
	State() State
	Chain() *sampleprocessor.Chain

	// Render fills dst (interleaved, engine channel count) with the next
	// block of audio at the engine's output rate, applying resample and
	// tempo/pitch and the source's own volume. Returns the number of
	// frames produced; a return less than len(dst)/engineChannels means
	// underrun (queue ran dry and the source isn't looping, or this is
	// EOF for a non-looping FileSource).
	Render(dst []float32) int

	// PositionFrames reports playback position in native-rate frames.
	PositionFrames() uint64
	// DurationFrames reports the source's total length in native-rate
	// frames, or 0 if unknown. No variant determines a length (the
	// wrapped decoders expose none), so this is 0 for every source,
	// FileSource included.
	DurationFrames() uint64

	Volume() float32
	SetVolume(v float32)
	Loop() bool
	SetLoop(v bool)
	Tempo() float64
	SetTempo(percent float64)
	PitchSemitones() float64
	SetPitch(semitones float64)

	// Seek requests a position change, in native-rate frames. Returns
	// musicerr with KindIllegalState if the variant doesn't support
	// seeking (InputSource, RealtimeSource).
	Seek(frames uint64) error

	// Start/Stop manage the source's producer (decode worker, capture
	// registration). Called by SourceManager, never by the mixer.
	Start(ctx context.Context) error
	Stop()

	// LastError drains and clears the most recent error event, or nil.
	LastError() *musicerr.Event
}

// Base implements the shared mechanics of the Source contract. Each
// variant embeds it and supplies its own producer (Start/Stop) and, for
// FileSource, Seek.
type Base struct {
	id   string
	name string
	kind Kind

	nativeRate     int
	nativeChannels int
	engineRate     int
	engineChannels int

	state          atomic.Int32
	volumeBits     atomic.Uint32
	loop           atomic.Bool
	tempoBits      atomic.Uint64 // math.Float64bits
	pitchBits      atomic.Uint64
	positionFrames atomic.Uint64
	durationFrames atomic.Uint64

	chain *sampleprocessor.Chain
	queue *sourcequeue.Queue
	pool  *bufferpool.Pool

	stretch    *resample.TempoPitchShifter
	resamplers []*resample.Cubic
	leftover   [][]float32 // per native channel, deinterleaved unconsumed samples

	lastErr atomic.Pointer[musicerr.Event]

	mu sync.Mutex // guards resampler retuning against concurrent Render (mixer is single-threaded per callback, but Seek/reconfigure may race)
}

// NewBase constructs the shared state for a source. queueCapFrames is the
// native-rate frame capacity of the bounded queue sitting between the
// producer and Render.
func NewBase(id, name string, kind Kind, nativeRate, nativeChannels, engineRate, engineChannels int, queueCapFrames int, pool *bufferpool.Pool) *Base {
	b := &Base{
		id:             id,
		name:           name,
		kind:           kind,
		nativeRate:     nativeRate,
		nativeChannels: nativeChannels,
		engineRate:     engineRate,
		engineChannels: engineChannels,
		chain:          sampleprocessor.NewChain(),
		queue:          sourcequeue.New(queueCapFrames, nativeChannels),
		pool:           pool,
		stretch:        resample.NewTempoPitchShifter(nativeChannels),
	}
	b.volumeBits.Store(math.Float32bits(1.0))
	b.tempoBits.Store(math.Float64bits(0))
	b.pitchBits.Store(math.Float64bits(0))
	b.state.Store(int32(StateStopped))

	b.resamplers = make([]*resample.Cubic, nativeChannels)
	b.leftover = make([][]float32, nativeChannels)
	for i := range b.resamplers {
		b.resamplers[i] = resample.NewCubic(nativeRate, engineRate)
	}
	return b
}

func (b *Base) ID() string               { return b.id }
func (b *Base) Name() string             { return b.name }
func (b *Base) Kind() Kind               { return b.kind }
func (b *Base) State() State             { return State(b.state.Load()) }
func (b *Base) Chain() *sampleprocessor.Chain { return b.chain }
func (b *Base) PositionFrames() uint64   { return b.positionFrames.Load() }
func (b *Base) DurationFrames() uint64   { return b.durationFrames.Load() }

func (b *Base) Volume() float32 { return math.Float32frombits(b.volumeBits.Load()) }
func (b *Base) SetVolume(v float32) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	b.volumeBits.Store(math.Float32bits(v))
}

func (b *Base) Loop() bool      { return b.loop.Load() }
func (b *Base) SetLoop(v bool)  { b.loop.Store(v) }

func (b *Base) Tempo() float64 { return math.Float64frombits(b.tempoBits.Load()) }
func (b *Base) SetTempo(percent float64) {
	if percent < -20 {
		percent = -20
	}
	if percent > 20 {
		percent = 20
	}
	b.tempoBits.Store(math.Float64bits(percent))
}

func (b *Base) PitchSemitones() float64 { return math.Float64frombits(b.pitchBits.Load()) }
func (b *Base) SetPitch(semitones float64) {
	if semitones < -6 {
		semitones = -6
	}
	if semitones > 6 {
		semitones = 6
	}
	b.pitchBits.Store(math.Float64bits(semitones))
}

func (b *Base) LastError() *musicerr.Event {
	return b.lastErr.Swap(nil)
}

func (b *Base) recordError(kind musicerr.Kind, err error) {
	b.lastErr.Store(musicerr.NewEvent(kind, b.id, err))
}

func (b *Base) setState(s State) { b.state.Store(int32(s)) }

// resetPipeline discards resampler, stretch, and leftover state. Called
// on seek and on loop-around so interpolation never spans a discontinuity.
func (b *Base) resetPipeline() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stretch.Reset()
	for i, r := range b.resamplers {
		r.Reset()
		b.leftover[i] = b.leftover[i][:0]
	}
	b.queue.Reset()
}

// Render implements the shared rendering pipeline described by the
// engine's per-source contract: pop native-rate frames from the queue,
// apply tempo/pitch stretch (bypassed at unity), resample per channel to
// the engine rate, adapt channel layout, apply volume and the per-source
// chain. Returns the number of engine-rate frames written to dst.
func (b *Base) Render(dst []float32) int {
	wantFrames := len(dst) / b.engineChannels
	if wantFrames == 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	tempo := b.Tempo()
	pitch := b.PitchSemitones()
	b.stretch.SetParams(tempo, pitch)
	pitchRatio := b.stretch.PitchRatio()

	bypass := tempo == 0 && pitch == 0 && b.nativeRate == b.engineRate && b.nativeChannels == b.engineChannels
	for _, r := range b.resamplers {
		r.SetRates(int(float64(b.nativeRate)*pitchRatio), b.engineRate)
	}

	// Native frames needed is a generous upper bound; the resampler only
	// consumes what it needs and leftovers carry to the next call.
	ratio := float64(b.nativeRate) * pitchRatio / float64(b.engineRate)
	nativeWant := int(float64(wantFrames)*ratio) + 8
	if bypass {
		// The bypass path copies straight into dst and keeps no leftovers,
		// so it pops only what it can use.
		nativeWant = wantFrames
	}

	native := b.pool.Rent(nativeWant * b.nativeChannels)
	defer b.pool.Return(native)

	got := b.queue.Pop(native[:nativeWant*b.nativeChannels])
	native = native[:got*b.nativeChannels]
	b.positionFrames.Add(uint64(got))

	if bypass {
		produced := got
		if produced > wantFrames {
			produced = wantFrames
		}
		copy(dst[:produced*b.engineChannels], native[:produced*b.nativeChannels])
		b.applyVolumeAndChain(dst, produced)
		return b.finishRender(dst, produced, wantFrames)
	}

	preResample := native
	if !b.stretch.Bypass() {
		stretched := b.pool.Rent(len(native) * 2) // stretch.Process caps internally to dst len
		defer b.pool.Return(stretched)
		n := b.stretch.Process(stretched, native)
		preResample = stretched[:n*b.nativeChannels]
	}

	// Deinterleave into per-channel leftover buffers.
	frames := len(preResample) / b.nativeChannels
	for ch := 0; ch < b.nativeChannels; ch++ {
		for i := 0; i < frames; i++ {
			b.leftover[ch] = append(b.leftover[ch], preResample[i*b.nativeChannels+ch])
		}
	}

	resampledNative := b.pool.Rent(wantFrames * b.nativeChannels)
	defer b.pool.Return(resampledNative)
	chScratch := b.pool.Rent(wantFrames * b.nativeChannels)
	defer b.pool.Return(chScratch)

	producedFrames := 0
	for ch := 0; ch < b.nativeChannels; ch++ {
		chOut := chScratch[ch*wantFrames : (ch+1)*wantFrames]
		consumed, produced := b.resamplers[ch].Process(chOut, b.leftover[ch])
		b.leftover[ch] = b.leftover[ch][consumed:]
		for i := 0; i < produced; i++ {
			resampledNative[i*b.nativeChannels+ch] = chOut[i]
		}
		if ch == 0 || produced < producedFrames {
			producedFrames = produced
		}
	}

	for i := 0; i < producedFrames; i++ {
		resample.AdaptChannels(
			dst[i*b.engineChannels:(i+1)*b.engineChannels],
			resampledNative[i*b.nativeChannels:(i+1)*b.nativeChannels],
			b.engineChannels, b.nativeChannels,
		)
	}

	b.applyVolumeAndChain(dst, producedFrames)
	return b.finishRender(dst, producedFrames, wantFrames)
}

func (b *Base) applyVolumeAndChain(dst []float32, frames int) {
	vol := b.Volume()
	block := dst[:frames*b.engineChannels]
	for i := range block {
		block[i] *= vol
	}
	b.chain.Process(block)
}

// finishRender zero-pads any shortfall and reports whether looping should
// restart the underlying producer; actual loop restart is handled by each
// variant's producer, this only zero-fills dst so the mixer's sum is well
// defined.
func (b *Base) finishRender(dst []float32, produced, want int) int {
	if produced < want {
		for i := produced * b.engineChannels; i < want*b.engineChannels; i++ {
			dst[i] = 0
		}
	}
	return produced
}

// waitDetach waits up to budget for wg to finish, returning false if it
// timed out (the caller should log and detach rather than block Stop()).
func waitDetach(wg *sync.WaitGroup, budget time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
