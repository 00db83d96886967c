package source

import (
	"fmt"
	"strings"

	"github.com/drgolem/mixengine/pkg/decoders"
	"github.com/drgolem/mixengine/pkg/types"
)

// fileDecoderAdapter wraps a types.AudioDecoder (the wav/mp3/flac
// decoders, selected by extension) and converts its native integer PCM
// output to interleaved float32 in [-1, 1], which is the only format the
// rest of the pipeline understands.
type fileDecoderAdapter struct {
	fileName      string
	decoder       types.AudioDecoder
	rate          int
	channels      int
	bitsPerSample int
	scratch       []byte
}

func newFileDecoderAdapter(fileName string) *fileDecoderAdapter {
	return &fileDecoderAdapter{fileName: fileName}
}

func (a *fileDecoderAdapter) open() error {
	// decoders.NewDecoder already opens the file (it picks the decoder by
	// extension and calls Open itself), so there's no separate open step
	// here.
	d, err := decoders.NewDecoder(a.fileName)
	if err != nil {
		return fmt.Errorf("open %s: %w", a.fileName, err)
	}
	a.decoder = d
	a.rate, a.channels, a.bitsPerSample = d.GetFormat()
	return nil
}

func (a *fileDecoderAdapter) close() error {
	if a.decoder == nil {
		return nil
	}
	err := a.decoder.Close()
	a.decoder = nil
	return err
}

// reopen closes and reopens the underlying decoder, for seek-by-rescan
// and for loop-around (none of the wav/mp3/flac decoders expose a native
// seek API).
func (a *fileDecoderAdapter) reopen() error {
	a.close()
	return a.open()
}

// decodeFrames decodes up to wantFrames frames and converts them to
// interleaved float32 in dst (which must hold wantFrames*channels
// floats). Returns frames actually decoded and whether the stream ended
// (a short read also counts as the end); io.EOF-shaped errors from the
// underlying decoder are reported as (n, true, nil), signaling end of
// stream to the caller without it having to string-match error text.
// Any other decoder error is returned as (n, true, err).
func (a *fileDecoderAdapter) decodeFrames(dst []float32, wantFrames int) (int, bool, error) {
	bytesPerSample := a.bitsPerSample / 8
	need := wantFrames * a.channels * bytesPerSample
	if cap(a.scratch) < need {
		a.scratch = make([]byte, need)
	}
	buf := a.scratch[:need]

	n, err := a.decoder.DecodeSamples(wantFrames, buf)
	if n > 0 {
		unpackPCM(dst[:n*a.channels], buf[:n*a.channels*bytesPerSample], a.bitsPerSample)
	}
	if err != nil {
		// The wav/mp3/flac decoders don't expose a sentinel EOF error;
		// following the CLI transform path's own convention, end of
		// stream is recognized by message rather than treated as a
		// decode fault.
		if strings.Contains(err.Error(), "EOF") || strings.Contains(err.Error(), "done") {
			return n, true, nil
		}
		return n, true, fmt.Errorf("decode %s: %w", a.fileName, err)
	}
	return n, n < wantFrames, nil
}

// unpackPCM converts little-endian signed integer PCM at the given bit
// depth into float32 samples in [-1, 1].
func unpackPCM(dst []float32, src []byte, bitsPerSample int) {
	bytesPerSample := bitsPerSample / 8
	n := len(src) / bytesPerSample
	switch bitsPerSample {
	case 8:
		for i := 0; i < n; i++ {
			// 8-bit WAV PCM is unsigned, centered at 128.
			dst[i] = (float32(src[i]) - 128) / 128
		}
	case 16:
		for i := 0; i < n; i++ {
			v := int16(uint16(src[i*2]) | uint16(src[i*2+1])<<8)
			dst[i] = float32(v) / 32768
		}
	case 24:
		for i := 0; i < n; i++ {
			b0, b1, b2 := src[i*3], src[i*3+1], src[i*3+2]
			v := int32(b0) | int32(b1)<<8 | int32(b2)<<16
			if v&0x800000 != 0 {
				v |= -1 << 24 // sign extend
			}
			dst[i] = float32(v) / 8388608
		}
	case 32:
		for i := 0; i < n; i++ {
			v := int32(uint32(src[i*4]) | uint32(src[i*4+1])<<8 | uint32(src[i*4+2])<<16 | uint32(src[i*4+3])<<24)
			dst[i] = float32(v) / 2147483648
		}
	}
}
