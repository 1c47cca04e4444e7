// ABOUTME: PCM audio decoder
// ABOUTME: Decodes interleaved 16-bit and 24-bit little-endian PCM to float buffers
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/harperreed/backspeak/pkg/audio"
)

// PCMDecoder decodes raw interleaved PCM audio
type PCMDecoder struct {
	format audio.Format
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}

	if format.Channels < 1 || format.SampleRate < 1 {
		return nil, fmt.Errorf("invalid pcm layout: %dHz %dch", format.SampleRate, format.Channels)
	}

	return &PCMDecoder{
		format: format,
	}, nil
}

// Decode converts PCM bytes to a buffer. A trailing partial frame is dropped.
func (d *PCMDecoder) Decode(data []byte) (audio.Buffer, error) {
	bytesPerSample := d.format.BitDepth / 8
	numSamples := len(data) / bytesPerSample
	samples := make([]float32, numSamples)

	if d.format.BitDepth == 24 {
		// 24-bit PCM: 3 bytes per sample
		for i := 0; i < numSamples; i++ {
			b := [3]byte{data[i*3], data[i*3+1], data[i*3+2]}
			samples[i] = audio.IntToFloat(int(audio.SampleFrom24Bit(b)), 24)
		}
	} else {
		// 16-bit PCM: 2 bytes per sample (default)
		for i := 0; i < numSamples; i++ {
			sample16 := int16(binary.LittleEndian.Uint16(data[i*2:]))
			samples[i] = audio.Int16ToFloat(sample16)
		}
	}

	return deinterleave(samples, d.format.Channels, d.format.SampleRate), nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
