// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 audio to stereo float buffers
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/harperreed/backspeak/pkg/audio"
)

// go-mp3 always produces interleaved stereo int16
const mp3Channels = 2

// MP3Decoder decodes MP3 audio
type MP3Decoder struct{}

// NewMP3 creates a new MP3 decoder
func NewMP3() (Decoder, error) {
	return &MP3Decoder{}, nil
}

// Decode converts MP3 bytes to a buffer
func (d *MP3Decoder) Decode(data []byte) (audio.Buffer, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("%w: failed to create mp3 decoder: %v", ErrDecode, err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("%w: mp3 decode error: %v", ErrDecode, err)
	}

	// Convert bytes to int16 then to float
	numSamples := len(pcm) / 2
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		samples[i] = audio.Int16ToFloat(sample16)
	}

	return deinterleave(samples, mp3Channels, decoder.SampleRate()), nil
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}
