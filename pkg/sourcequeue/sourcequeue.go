// Package sourcequeue implements the bounded SPSC frame queue that sits
// between a source's producer (decode worker, capture callback, or
// application Submit call) and the mixer's render callback.
//
// The ring buffer mechanics follow the usual byte-oriented SPSC ring
// buffer design: atomic read/write positions, power-of-2 sizing, no
// internal locking. Here the unit of storage is a frame (one sample per
// channel) rather than a byte, since the mixer consumes whole frames.
package sourcequeue

import (
	"sync/atomic"

	"github.com/drgolem/mixengine/pkg/musicerr"
)

// Queue is a lock-free single-producer single-consumer ring buffer of
// interleaved float32 frames.
type Queue struct {
	buffer   []float32 // capacityFrames * channels, power-of-2 frame count
	channels int
	frames   uint64 // capacity in frames, power of 2
	mask     uint64
	writePos atomic.Uint64
	readPos  atomic.Uint64

	overrunCount atomic.Uint64
}

// New creates a Queue sized to hold at least minFrames frames of audio
// with the given channel count; capacity is rounded up to the next power
// of 2.
func New(minFrames int, channels int) *Queue {
	frames := nextPowerOf2(uint64(minFrames))
	return &Queue{
		buffer:   make([]float32, frames*uint64(channels)),
		channels: channels,
		frames:   frames,
		mask:     frames - 1,
	}
}

// Capacity reports the queue's frame capacity.
func (q *Queue) Capacity() int { return int(q.frames) }

// AvailableWrite reports how many frames can be pushed without blocking.
func (q *Queue) AvailableWrite() int {
	return int(q.frames - (q.writePos.Load() - q.readPos.Load()))
}

// AvailableRead reports how many frames are ready to be popped.
func (q *Queue) AvailableRead() int {
	return int(q.writePos.Load() - q.readPos.Load())
}

// OverrunCount reports how many frames have been dropped by PushDropTail
// due to the queue being full.
func (q *Queue) OverrunCount() uint64 { return q.overrunCount.Load() }

// PushBlocking writes frames into the queue, spinning with a yield until
// there is room for all of them. It is used by producers (like a
// FileSource decode worker) that would rather wait than drop audio.
// stop, if non-nil and closed, aborts the wait and returns
// musicerr.KindIllegalState.
func (q *Queue) PushBlocking(frames []float32, stop <-chan struct{}) error {
	n := len(frames) / q.channels
	if n == 0 {
		return nil
	}
	for {
		if q.AvailableWrite() >= n {
			q.writeFrames(frames, n)
			return nil
		}
		select {
		case <-stop:
			return musicerr.New(musicerr.KindIllegalState, "", errQueueStopped)
		default:
		}
		spinWait()
	}
}

// PushDropTail writes as many frames as fit, and drops (does not buffer)
// whatever doesn't, incrementing the overrun counter by the number of
// dropped frames. Used by InputSource, where falling behind on capture
// must never block the audio callback that's feeding it.
func (q *Queue) PushDropTail(frames []float32) {
	n := len(frames) / q.channels
	avail := q.AvailableWrite()
	if n <= avail {
		q.writeFrames(frames, n)
		return
	}
	if avail > 0 {
		q.writeFrames(frames[:avail*q.channels], avail)
	}
	q.overrunCount.Add(uint64(n - avail))
}

// PushReject writes all of frames if they fit, and otherwise returns an
// error without writing anything. Used by RealtimeSource.Submit,
// where overflow must be surfaced to the caller rather than silently
// dropped or blocked on.
func (q *Queue) PushReject(frames []float32) error {
	n := len(frames) / q.channels
	if q.AvailableWrite() < n {
		return musicerr.New(musicerr.KindOverrun, "", errQueueFull)
	}
	q.writeFrames(frames, n)
	return nil
}

// Pop reads up to len(dst)/channels frames into dst, returning the number
// of frames actually read. Never blocks; returns 0 if the queue is empty.
func (q *Queue) Pop(dst []float32) int {
	want := len(dst) / q.channels
	avail := q.AvailableRead()
	n := want
	if avail < n {
		n = avail
	}
	if n == 0 {
		return 0
	}

	readPos := q.readPos.Load()
	for i := 0; i < n; i++ {
		srcStart := ((readPos + uint64(i)) & q.mask) * uint64(q.channels)
		copy(dst[i*q.channels:(i+1)*q.channels], q.buffer[srcStart:srcStart+uint64(q.channels)])
	}
	q.readPos.Store(readPos + uint64(n))
	return n
}

// Reset clears the queue and overrun counter, for seeks and loops.
func (q *Queue) Reset() {
	q.readPos.Store(0)
	q.writePos.Store(0)
	q.overrunCount.Store(0)
}

func (q *Queue) writeFrames(frames []float32, n int) {
	writePos := q.writePos.Load()
	for i := 0; i < n; i++ {
		dstStart := ((writePos + uint64(i)) & q.mask) * uint64(q.channels)
		copy(q.buffer[dstStart:dstStart+uint64(q.channels)], frames[i*q.channels:(i+1)*q.channels])
	}
	q.writePos.Store(writePos + uint64(n))
}

func nextPowerOf2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	n++
	return n
}
