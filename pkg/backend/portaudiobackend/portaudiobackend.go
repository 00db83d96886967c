// Package portaudiobackend implements engine.DeviceBackend over
// PortAudio's callback-mode stream, the same OpenCallback/StartStream/
// StopStream/Close sequence the file player uses, generalized from "one
// decoder's format" to whatever sample rate and channel count the engine
// is configured for.
package portaudiobackend

import (
	"fmt"
	"math"

	"github.com/drgolem/go-portaudio/portaudio"
	"github.com/drgolem/mixengine/pkg/engine"
)

// Backend adapts PortAudio to engine.DeviceBackend. One Backend wraps one
// PortAudio stream at a time; Open/Close may be called repeatedly across
// the lifetime of a single Initialize/Terminate pair.
type Backend struct {
	stream   *portaudio.PaStream
	channels int
	onRender func(out []float32)
}

// New creates an unopened Backend. Call Initialize before Open.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) Initialize() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio initialize: %w", err)
	}
	return nil
}

func (b *Backend) Terminate() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("portaudio terminate: %w", err)
	}
	return nil
}

// EnumerateDevices lists PortAudio's visible output devices.
//
// NOTE: the engine's retrieval corpus doesn't exercise PortAudio's device
// enumeration calls anywhere; every usage we grounded this backend on
// (file player, CLI play/playlist commands) takes a device index directly
// from a flag. This follows the conventional PortAudio binding shape
// (device count + per-index info) rather than a call confirmed in the
// corpus; see DESIGN.md.
func (b *Backend) EnumerateDevices() ([]engine.Device, error) {
	count, err := portaudio.DeviceCount()
	if err != nil {
		return nil, fmt.Errorf("portaudio device count: %w", err)
	}

	devices := make([]engine.Device, 0, count)
	for i := 0; i < count; i++ {
		info, err := portaudio.DeviceInfo(i)
		if err != nil {
			continue
		}
		devices = append(devices, engine.Device{
			Index:                    i,
			Name:                     info.Name,
			MaxOutputChannels:        info.MaxOutputChannels,
			MaxInputChannels:         info.MaxInputChannels,
			DefaultSampleRate:        info.DefaultSampleRate,
			DefaultLowOutputLatency:  info.DefaultLowOutputLatency,
			DefaultHighOutputLatency: info.DefaultHighOutputLatency,
			DefaultLowInputLatency:   info.DefaultLowInputLatency,
			DefaultHighInputLatency:  info.DefaultHighInputLatency,
		})
	}
	return devices, nil
}

func (b *Backend) Open(deviceIndex, sampleRate, channels, framesPerBuffer int, onRender func(out []float32)) error {
	b.channels = channels
	b.onRender = onRender

	params := portaudio.PaStreamParameters{
		DeviceIndex:  deviceIndex,
		ChannelCount: channels,
		SampleFormat: portaudio.SampleFmtFloat32,
	}

	stream, err := portaudio.NewStream(params, float64(sampleRate))
	if err != nil {
		return fmt.Errorf("portaudio new stream: %w", err)
	}

	if err := stream.OpenCallback(framesPerBuffer, b.audioCallback); err != nil {
		return fmt.Errorf("portaudio open callback: %w", err)
	}

	b.stream = stream
	return nil
}

// audioCallback is PortAudio's hard-real-time callback: it must fill
// output completely and never block. It converts the engine's float32
// mix directly into the output byte buffer (SampleFmtFloat32 is a raw
// little-endian float copy, so no PCM packing is needed here, unlike the
// integer-format file decoders).
func (b *Backend) audioCallback(input, output []byte, frameCount uint, timeInfo *portaudio.StreamCallbackTimeInfo, statusFlags portaudio.StreamCallbackFlags) portaudio.StreamCallbackResult {
	frames := int(frameCount) * b.channels
	mix := make([]float32, frames)
	b.onRender(mix)

	for i, s := range mix {
		bits := math.Float32bits(s)
		o := i * 4
		output[o] = byte(bits)
		output[o+1] = byte(bits >> 8)
		output[o+2] = byte(bits >> 16)
		output[o+3] = byte(bits >> 24)
	}

	return portaudio.Continue
}

func (b *Backend) Start() error {
	if b.stream == nil {
		return fmt.Errorf("portaudio backend: stream not open")
	}
	return b.stream.StartStream()
}

func (b *Backend) Stop() error {
	if b.stream == nil {
		return nil
	}
	return b.stream.StopStream()
}

func (b *Backend) Close() error {
	if b.stream == nil {
		return nil
	}
	err := b.stream.CloseCallback()
	b.stream = nil
	return err
}
