// ABOUTME: Tests for media type dispatch and container sniffing
// ABOUTME: Verifies ForMediaType, Sniff and Decode error classification
package decode

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/harperreed/backspeak/pkg/audio"
	"github.com/harperreed/backspeak/pkg/audio/encode"
)

func TestForMediaType(t *testing.T) {
	tests := []struct {
		mediaType string
		want      string
	}{
		{"audio/pcm;rate=48000;channels=2;bits=16", "*decode.PCMDecoder"},
		{"audio/wav", "*decode.WAVDecoder"},
		{"audio/x-wav", "*decode.WAVDecoder"},
		{"audio/vnd.wave", "*decode.WAVDecoder"},
		{"audio/mpeg", "*decode.MP3Decoder"},
		{"audio/mp3", "*decode.MP3Decoder"},
		{"audio/flac", "*decode.FLACDecoder"},
		{"audio/ogg", "*decode.OpusDecoder"},
		{"audio/ogg; codecs=opus", "*decode.OpusDecoder"},
		{"audio/opus", "*decode.OpusDecoder"},
	}

	for _, tt := range tests {
		t.Run(tt.mediaType, func(t *testing.T) {
			dec, err := ForMediaType(tt.mediaType)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer dec.Close()

			if got := typeName(dec); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestForMediaTypeUnsupported(t *testing.T) {
	tests := []string{
		"audio/webm;codecs=opus",
		"video/mp4",
		"audio/ogg;codecs=vorbis",
		"audio/pcm",
		"audio/pcm;rate=abc",
		"audio/pcm;rate=48000;bits=8",
		"not a media type;;",
	}

	for _, mediaType := range tests {
		t.Run(mediaType, func(t *testing.T) {
			_, err := ForMediaType(mediaType)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("expected error to wrap ErrDecode, got %v", err)
			}
		})
	}
}

func TestSupported(t *testing.T) {
	if !Supported("audio/wav") {
		t.Error("expected audio/wav to be supported")
	}
	if Supported("audio/webm") {
		t.Error("expected audio/webm to be unsupported")
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"wav", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), MediaTypeWAV},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), MediaTypeFLAC},
		{"ogg", []byte("OggS\x00\x02"), MediaTypeOgg},
		{"id3", []byte("ID3\x04\x00"), MediaTypeMP3},
		{"mpeg sync", []byte{0xFF, 0xFB, 0x90, 0x00}, MediaTypeMP3},
		{"riff without wave", []byte("RIFF\x00\x00\x00\x00AVI "), ""},
		{"empty", nil, ""},
		{"text", []byte("hello"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.data); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecodeSniffsGenericMediaType(t *testing.T) {
	src := audio.Buffer{SampleRate: 8000, Channels: [][]float32{{0, 0.5, -0.5}}}
	wav := encode.WAV(src)

	for _, mediaType := range []string{"", "application/octet-stream"} {
		buf, err := Decode(mediaType, wav.Data)
		if err != nil {
			t.Fatalf("media type %q: unexpected error: %v", mediaType, err)
		}
		if buf.NumFrames() != 3 || buf.SampleRate != 8000 {
			t.Errorf("media type %q: expected 3 frames at 8000Hz, got %d at %d",
				mediaType, buf.NumFrames(), buf.SampleRate)
		}
	}
}

func TestDecodeUnrecognizedContainer(t *testing.T) {
	_, err := Decode("", []byte("definitely not audio"))
	if !errors.Is(err, ErrUnsupportedMediaType) {
		t.Errorf("expected ErrUnsupportedMediaType, got %v", err)
	}
}

func TestDecodeEmptyPCM(t *testing.T) {
	// Zero frames decode fine; the buffer is still valid with one channel
	buf, err := Decode("audio/pcm;rate=16000;channels=1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.NumFrames() != 0 {
		t.Errorf("expected 0 frames, got %d", buf.NumFrames())
	}
}

func TestDecodeCorruptPayload(t *testing.T) {
	tests := []string{"audio/wav", "audio/mpeg", "audio/flac", "audio/ogg"}

	for _, mediaType := range tests {
		t.Run(mediaType, func(t *testing.T) {
			_, err := Decode(mediaType, []byte{0x01, 0x02, 0x03, 0x04, 0x05})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
			if errors.Is(err, ErrUnsupportedMediaType) {
				t.Errorf("corrupt payload should not be reported as unsupported: %v", err)
			}
		})
	}
}

// flacHeaderOnly builds a FLAC stream with a STREAMINFO block and no frames
func flacHeaderOnly(sampleRate, channels, bitsPerSample int, totalSamples uint64) []byte {
	data := []byte("fLaC")
	// Last metadata block, type STREAMINFO, 34 bytes
	data = append(data, 0x80, 0x00, 0x00, 0x22)

	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:], 4096)
	binary.BigEndian.PutUint16(info[2:], 4096)
	packed := uint64(sampleRate)<<44 |
		uint64(channels-1)<<41 |
		uint64(bitsPerSample-1)<<36 |
		totalSamples&(1<<36-1)
	binary.BigEndian.PutUint64(info[10:], packed)

	return append(data, info...)
}

func TestDecodeFLACIgnoresHeaderSampleCount(t *testing.T) {
	data := flacHeaderOnly(44100, 2, 16, 1<<36-1)
	if len(data) != 42 {
		t.Fatalf("expected 42-byte stream, got %d", len(data))
	}

	buf, err := Decode("audio/flac", data)
	if err != nil {
		if !errors.Is(err, ErrDecode) {
			t.Fatalf("expected ErrDecode, got %v", err)
		}
		return
	}
	if buf.NumFrames() != 0 {
		t.Errorf("expected no frames from a header-only stream, got %d", buf.NumFrames())
	}
	for ch, samples := range buf.Channels {
		if cap(samples) > 0 {
			t.Errorf("channel %d allocated %d samples without any frames", ch, cap(samples))
		}
	}
}

func typeName(v interface{}) string {
	switch v.(type) {
	case *PCMDecoder:
		return "*decode.PCMDecoder"
	case *WAVDecoder:
		return "*decode.WAVDecoder"
	case *MP3Decoder:
		return "*decode.MP3Decoder"
	case *FLACDecoder:
		return "*decode.FLACDecoder"
	case *OpusDecoder:
		return "*decode.OpusDecoder"
	default:
		return "unknown"
	}
}
