// Package engine ties the mixer, the source set, and a device backend
// together behind a single explicit handle: Config configures one
// playback engine instance, New returns a *Handle wired to it, and a
// thin Default() wraps exactly one Handle behind a singleton for callers
// that don't need more than one engine in the process.
package engine

import (
	"time"

	"github.com/drgolem/mixengine/pkg/source"
)

// Config configures one engine instance.
type Config struct {
	// SampleRate is the engine's fixed output rate, in Hz. All sources
	// are resampled to this rate before mixing.
	SampleRate int
	// Channels is the engine's fixed output channel count. All sources
	// are channel-adapted to this count before mixing.
	Channels int
	// FramesPerBuffer is the device callback's block size, in frames.
	FramesPerBuffer int
	// DeviceIndex selects the output device; see Device/EnumerateDevices.
	DeviceIndex int
	// InputDeviceIndex selects the device a caller should use when
	// constructing a CaptureBackend for AddInputSource. The engine itself
	// never opens an input stream (CaptureBackend is supplied already
	// constructed), so this is advisory: a convenience place to carry the
	// chosen input device alongside the rest of the engine's config
	// rather than a separate out-of-band parameter.
	InputDeviceIndex int
	// OutputLatencySec and InputLatencySec are suggested stream latency
	// hints, in seconds, surfaced from Device.DefaultLowOutputLatency/
	// DefaultLowInputLatency (see EnumerateDevices) for a caller to pick
	// from. They aren't applied to the stream directly: the backend's
	// PaStreamParameters usage in this engine only sets DeviceIndex,
	// ChannelCount, and SampleFormat, with no suggested-latency field to
	// set, so these remain advisory config rather than a value this
	// package threads through Open.
	OutputLatencySec float64
	InputLatencySec  float64
	// QueueCapacityFrames overrides the default per-source queue sizing
	// (max(200ms at the source's native rate, 4*FramesPerBuffer)) when
	// non-zero.
	QueueCapacityFrames int
	// StopDetachBudget bounds how long Stop waits for a source's
	// producer goroutine to exit before detaching it and logging a
	// warning. Defaults to 250ms if zero.
	StopDetachBudget time.Duration
}

func (c Config) stopBudget() time.Duration {
	if c.StopDetachBudget > 0 {
		return c.StopDetachBudget
	}
	return 250 * time.Millisecond
}

func queueCapacityFrames(cfg Config, nativeRate int) int {
	if cfg.QueueCapacityFrames > 0 {
		return cfg.QueueCapacityFrames
	}
	return source.QueueCapacityFrames(nativeRate, cfg.FramesPerBuffer)
}
