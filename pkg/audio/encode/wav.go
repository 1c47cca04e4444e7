// ABOUTME: WAV container encoder
// ABOUTME: Builds the 44-byte RIFF/WAVE header and wraps interleaved PCM data
package encode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/backspeak/pkg/audio"
)

const (
	// HeaderSize is the length of the canonical WAV header
	HeaderSize = 44

	// BitsPerSample is the only depth the encoder produces
	BitsPerSample = 16

	formatPCM = 1
)

// ErrInvalidHeader is returned when bytes are not a canonical PCM WAV header
var ErrInvalidHeader = errors.New("invalid wav header")

// Header is the canonical RIFF/WAVE header for linear PCM
type Header struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // 36 + Subchunk2Size
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // bytes of sample data
}

// NewHeader builds the header for dataSize bytes of 16-bit PCM
func NewHeader(channels, sampleRate, dataSize int) Header {
	blockAlign := uint16(channels * BytesPerSample)
	return Header{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + dataSize),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   formatPCM,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(blockAlign),
		BlockAlign:    blockAlign,
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(dataSize),
	}
}

// MarshalBinary packs the header into its 44-byte little-endian layout
func (h Header) MarshalBinary() ([]byte, error) {
	return h.appendTo(make([]byte, 0, HeaderSize)), nil
}

func (h Header) appendTo(b []byte) []byte {
	le := binary.LittleEndian
	b = append(b, h.ChunkID[:]...)
	b = le.AppendUint32(b, h.ChunkSize)
	b = append(b, h.Format[:]...)
	b = append(b, h.Subchunk1ID[:]...)
	b = le.AppendUint32(b, h.Subchunk1Size)
	b = le.AppendUint16(b, h.AudioFormat)
	b = le.AppendUint16(b, h.NumChannels)
	b = le.AppendUint32(b, h.SampleRate)
	b = le.AppendUint32(b, h.ByteRate)
	b = le.AppendUint16(b, h.BlockAlign)
	b = le.AppendUint16(b, h.BitsPerSample)
	b = append(b, h.Subchunk2ID[:]...)
	b = le.AppendUint32(b, h.Subchunk2Size)
	return b
}

// Duration returns the playback length of the data chunk
func (h Header) Duration() time.Duration {
	if h.BlockAlign == 0 || h.SampleRate == 0 {
		return 0
	}
	frames := time.Duration(h.Subchunk2Size / uint32(h.BlockAlign))
	return frames * time.Second / time.Duration(h.SampleRate)
}

// WAV encodes buf as a 16-bit PCM WAV container. Zero frames yields a
// header-only payload.
func WAV(buf audio.Buffer) audio.Encoded {
	samples := Interleave16(buf)
	header := NewHeader(buf.NumChannels(), buf.SampleRate, len(samples))

	data := make([]byte, 0, HeaderSize+len(samples))
	data = header.appendTo(data)
	data = append(data, samples...)

	return audio.Encoded{
		MediaType: audio.MediaTypeWAV,
		Data:      data,
	}
}

// ParseHeader reads a canonical 16-bit PCM header from the start of data
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: need at least %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(data))
	}

	le := binary.LittleEndian
	var h Header
	copy(h.ChunkID[:], data[0:4])
	h.ChunkSize = le.Uint32(data[4:8])
	copy(h.Format[:], data[8:12])
	copy(h.Subchunk1ID[:], data[12:16])
	h.Subchunk1Size = le.Uint32(data[16:20])
	h.AudioFormat = le.Uint16(data[20:22])
	h.NumChannels = le.Uint16(data[22:24])
	h.SampleRate = le.Uint32(data[24:28])
	h.ByteRate = le.Uint32(data[28:32])
	h.BlockAlign = le.Uint16(data[32:34])
	h.BitsPerSample = le.Uint16(data[34:36])
	copy(h.Subchunk2ID[:], data[36:40])
	h.Subchunk2Size = le.Uint32(data[40:44])

	switch {
	case string(h.ChunkID[:]) != "RIFF":
		return Header{}, fmt.Errorf("%w: missing RIFF header", ErrInvalidHeader)
	case string(h.Format[:]) != "WAVE":
		return Header{}, fmt.Errorf("%w: missing WAVE format", ErrInvalidHeader)
	case string(h.Subchunk1ID[:]) != "fmt ":
		return Header{}, fmt.Errorf("%w: missing fmt chunk", ErrInvalidHeader)
	case string(h.Subchunk2ID[:]) != "data":
		return Header{}, fmt.Errorf("%w: missing data chunk", ErrInvalidHeader)
	case h.AudioFormat != formatPCM:
		return Header{}, fmt.Errorf("%w: unsupported audio format %d", ErrInvalidHeader, h.AudioFormat)
	case h.BitsPerSample != BitsPerSample:
		return Header{}, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidHeader, h.BitsPerSample)
	case h.NumChannels == 0:
		return Header{}, fmt.Errorf("%w: zero channels", ErrInvalidHeader)
	}

	return h, nil
}
