package engine

// Device describes one audio device, in the vocabulary PortAudio's own
// device-info struct already uses (DeviceIndex/ChannelCount show up the
// same way in the backend's stream parameters).
type Device struct {
	Index                    int
	Name                     string
	MaxOutputChannels        int
	MaxInputChannels         int
	DefaultSampleRate        float64
	DefaultLowOutputLatency  float64 // seconds
	DefaultHighOutputLatency float64
	DefaultLowInputLatency   float64
	DefaultHighInputLatency  float64
}

// DeviceBackend is the engine's sole consumed interface onto real audio
// hardware. A concrete adapter (backend/portaudiobackend) implements it
// against PortAudio's callback-mode stream; tests substitute a fake that
// drives onRender synchronously.
type DeviceBackend interface {
	// Initialize starts up the backend's underlying audio subsystem.
	// Must be called once before Open.
	Initialize() error
	// Terminate shuts the subsystem down. Safe to call after Close.
	Terminate() error
	// EnumerateDevices lists available output devices.
	EnumerateDevices() ([]Device, error)
	// Open configures a stream at the given rate/channels/block size and
	// registers onRender to be called once per block once Start runs.
	// onRender must fill its argument completely and must not block.
	Open(deviceIndex, sampleRate, channels, framesPerBuffer int, onRender func(out []float32)) error
	// Start begins invoking onRender.
	Start() error
	// Stop halts invocation of onRender; the stream remains open and can
	// be Start()ed again.
	Stop() error
	// Close releases the stream. The backend can be Open()ed again
	// afterward.
	Close() error
}
