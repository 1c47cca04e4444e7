// ABOUTME: Decoder interface definition and media type dispatch
// ABOUTME: Picks a decoder from a media type or from the payload's magic bytes
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/harperreed/backspeak/pkg/audio"
)

var (
	// ErrDecode wraps every failure to turn bytes into a buffer
	ErrDecode = errors.New("decode failed")

	// ErrUnsupportedMediaType is returned for containers no decoder handles
	ErrUnsupportedMediaType = fmt.Errorf("%w: unsupported media type", ErrDecode)
)

// Media types produced by Sniff and accepted by ForMediaType
const (
	MediaTypePCM  = "audio/pcm"
	MediaTypeWAV  = "audio/wav"
	MediaTypeMP3  = "audio/mpeg"
	MediaTypeFLAC = "audio/flac"
	MediaTypeOgg  = "audio/ogg"
)

// Decoder decodes a complete encoded payload to a buffer
type Decoder interface {
	// Decode converts encoded audio data to a decoded buffer
	Decode(data []byte) (audio.Buffer, error)

	// Close releases decoder resources
	Close() error
}

// ForMediaType returns a decoder for mediaType. Raw PCM takes its layout
// from parameters: audio/pcm;rate=48000;channels=1;bits=16
func ForMediaType(mediaType string) (Decoder, error) {
	base, params, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnsupportedMediaType, mediaType, err)
	}

	switch base {
	case MediaTypePCM:
		format, err := pcmFormat(params)
		if err != nil {
			return nil, err
		}
		dec, err := NewPCM(format)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedMediaType, err)
		}
		return dec, nil
	case MediaTypeWAV, "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return NewWAV()
	case MediaTypeMP3, "audio/mp3":
		return NewMP3()
	case MediaTypeFLAC, "audio/x-flac":
		return NewFLAC()
	case MediaTypeOgg, "audio/opus":
		if codecs, ok := params["codecs"]; ok && codecs != "opus" {
			return nil, fmt.Errorf("%w: ogg codec %q", ErrUnsupportedMediaType, codecs)
		}
		return NewOpus()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, base)
	}
}

// Supported reports whether ForMediaType can build a decoder for mediaType
func Supported(mediaType string) bool {
	dec, err := ForMediaType(mediaType)
	if err != nil {
		return false
	}
	dec.Close()
	return true
}

// Sniff guesses the container from magic bytes. Returns "" when unknown.
func Sniff(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return MediaTypeWAV
	case bytes.HasPrefix(data, []byte("fLaC")):
		return MediaTypeFLAC
	case bytes.HasPrefix(data, []byte("OggS")):
		return MediaTypeOgg
	case bytes.HasPrefix(data, []byte("ID3")):
		return MediaTypeMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return MediaTypeMP3
	default:
		return ""
	}
}

// Decode decodes data of the given media type and validates the result.
// An empty or generic media type falls back to Sniff.
func Decode(mediaType string, data []byte) (audio.Buffer, error) {
	if mediaType == "" || strings.HasPrefix(mediaType, "application/octet-stream") {
		mediaType = Sniff(data)
		if mediaType == "" {
			return audio.Buffer{}, fmt.Errorf("%w: unrecognized container", ErrUnsupportedMediaType)
		}
	}

	dec, err := ForMediaType(mediaType)
	if err != nil {
		return audio.Buffer{}, err
	}
	defer dec.Close()

	buf, err := dec.Decode(data)
	if err != nil {
		return audio.Buffer{}, err
	}

	if err := buf.Validate(); err != nil {
		return audio.Buffer{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return buf, nil
}

func pcmFormat(params map[string]string) (audio.Format, error) {
	format := audio.Format{
		Codec:    "pcm",
		Channels: 1,
		BitDepth: 16,
	}

	fields := []struct {
		key string
		dst *int
	}{
		{"rate", &format.SampleRate},
		{"channels", &format.Channels},
		{"bits", &format.BitDepth},
	}
	for _, f := range fields {
		v, ok := params[f.key]
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return audio.Format{}, fmt.Errorf("%w: invalid pcm %s %q", ErrUnsupportedMediaType, f.key, v)
		}
		*f.dst = n
	}

	if format.SampleRate == 0 {
		return audio.Format{}, fmt.Errorf("%w: pcm media type requires a rate parameter", ErrUnsupportedMediaType)
	}
	return format, nil
}

// deinterleave splits frame-major samples into per-channel sequences,
// dropping a trailing partial frame
func deinterleave(samples []float32, channels, sampleRate int) audio.Buffer {
	if channels < 1 {
		return audio.Buffer{SampleRate: sampleRate}
	}
	frames := len(samples) / channels
	buf := audio.NewBuffer(channels, frames, sampleRate)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			buf.Channels[ch][i] = samples[i*channels+ch]
		}
	}
	return buf
}
