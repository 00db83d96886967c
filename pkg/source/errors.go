package source

import "errors"

// QueueCapacityFrames sizes a source's queue to hold at least 200ms of
// native-rate audio, or 4 device blocks, whichever is larger.
func QueueCapacityFrames(nativeRate, framesPerBuffer int) int {
	byTime := nativeRate / 5
	byBlocks := 4 * framesPerBuffer
	if byTime > byBlocks {
		return byTime
	}
	return byBlocks
}

var (
	errNotStarted      = errors.New("source: not started")
	errSeekPending     = errors.New("source: a seek is already pending")
	errUnsupported     = errors.New("source: operation not supported by this source kind")
	errMisalignedFrame = errors.New("source: submitted sample count is not a whole number of frames")
)
