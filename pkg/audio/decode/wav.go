// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE integer PCM of any common depth using go-audio/wav
package decode

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
	"github.com/harperreed/backspeak/pkg/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVDecoder decodes WAV containers
type WAVDecoder struct{}

// NewWAV creates a new WAV decoder
func NewWAV() (Decoder, error) {
	return &WAVDecoder{}, nil
}

// Decode converts WAV bytes to a buffer
func (d *WAVDecoder) Decode(data []byte) (audio.Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return audio.Buffer{}, fmt.Errorf("%w: invalid wav file: %v", ErrDecode, err)
		}
		return audio.Buffer{}, fmt.Errorf("%w: invalid wav file", ErrDecode)
	}

	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return audio.Buffer{}, fmt.Errorf("%w: unsupported wav format %d (only integer PCM)", ErrDecode, dec.WavAudioFormat)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("%w: wav pcm: %v", ErrDecode, err)
	}

	channels := pcm.Format.NumChannels
	bitDepth := int(dec.BitDepth)
	samples := make([]float32, len(pcm.Data))
	for i, v := range pcm.Data {
		if bitDepth == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = audio.IntToFloat(v, bitDepth)
	}

	return deinterleave(samples, channels, pcm.Format.SampleRate), nil
}

// Close releases decoder resources
func (d *WAVDecoder) Close() error {
	return nil
}
