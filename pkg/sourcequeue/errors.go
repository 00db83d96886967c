package sourcequeue

import (
	"errors"
	"runtime"
)

var (
	errQueueStopped = errors.New("sourcequeue: push aborted, queue stopped")
	errQueueFull    = errors.New("sourcequeue: no room for submitted frames")
)

// spinWait yields the producer goroutine's timeslice while waiting for
// the consumer to free up space. PushBlocking runs on a decode worker
// thread, never the audio callback, so yielding here is safe.
func spinWait() {
	runtime.Gosched()
}
