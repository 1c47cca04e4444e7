// ABOUTME: Audio type definitions
// ABOUTME: Defines decoded buffers, encoded payloads, formats and sample conversions
package audio

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// MediaTypeWAV labels 16-bit linear PCM RIFF/WAVE payloads
	MediaTypeWAV = "audio/wav"
)

// ErrInvalidBuffer is returned by Validate for malformed buffers
var ErrInvalidBuffer = errors.New("invalid audio buffer")

// Format describes a raw PCM stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Buffer represents decoded audio: one float32 sequence per channel,
// samples nominally in [-1.0, 1.0] but not guaranteed clamped.
type Buffer struct {
	SampleRate int
	Channels   [][]float32
}

// NewBuffer allocates a zeroed buffer
func NewBuffer(channels, frames, sampleRate int) Buffer {
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}
	return Buffer{
		SampleRate: sampleRate,
		Channels:   data,
	}
}

// NumChannels returns the channel count
func (b Buffer) NumChannels() int {
	return len(b.Channels)
}

// NumFrames returns the number of samples per channel
func (b Buffer) NumFrames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length of the buffer
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.NumFrames()) * time.Second / time.Duration(b.SampleRate)
}

// Validate checks the buffer is well formed. Transforms assume this already
// passed, so callers run it at the boundary (after decoding).
func (b Buffer) Validate() error {
	if len(b.Channels) == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidBuffer)
	}
	if len(b.Channels) > math.MaxUint16 {
		return fmt.Errorf("%w: %d channels", ErrInvalidBuffer, len(b.Channels))
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidBuffer, b.SampleRate)
	}
	frames := len(b.Channels[0])
	for ch, samples := range b.Channels {
		if len(samples) != frames {
			return fmt.Errorf("%w: channel %d has %d frames, channel 0 has %d",
				ErrInvalidBuffer, ch, len(samples), frames)
		}
	}
	return nil
}

// Encoded is an immutable encoded payload tagged with its media type
type Encoded struct {
	MediaType string
	Data      []byte
}

// Size returns the payload length in bytes
func (e Encoded) Size() int {
	return len(e.Data)
}

// QuantizeInt16 converts a float sample to signed 16-bit. The sample is
// clamped to [-1, 1]; negatives scale by 32768 and the rest by 32767 so both
// ends of the int16 range are reachable. NaN maps to silence.
func QuantizeInt16(sample float32) int16 {
	s := float64(sample)
	if math.IsNaN(s) {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(math.Round(s * 32768))
	}
	return int16(math.Round(s * 32767))
}

// Int16ToFloat converts a signed 16-bit sample to float in [-1, 1)
func Int16ToFloat(sample int16) float32 {
	return float32(sample) / 32768
}

// IntToFloat converts a signed integer sample of the given bit depth to float
func IntToFloat(sample int, bitDepth int) float32 {
	if bitDepth <= 0 {
		return 0
	}
	return float32(float64(sample) / float64(uint64(1)<<uint(bitDepth-1)))
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	// Reconstruct 24-bit value and sign-extend to 32-bit
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF // Set upper 8 bits to 1 for negative values
	}
	return val
}
