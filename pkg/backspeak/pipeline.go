// ABOUTME: Stateless reverse pipeline
// ABOUTME: decode → validate → reverse → encode to 16-bit PCM WAV
package backspeak

import (
	"errors"
	"fmt"

	"github.com/harperreed/backspeak/pkg/audio"
	"github.com/harperreed/backspeak/pkg/audio/decode"
	"github.com/harperreed/backspeak/pkg/audio/encode"
	"github.com/harperreed/backspeak/pkg/audio/transform"
)

// Process decodes data, reverses it and encodes the result as WAV. It
// returns the encoded clip and the reversed buffer. A nil decodeFn uses
// decode.Decode.
func Process(mediaType string, data []byte, decodeFn DecodeFunc) (audio.Encoded, audio.Buffer, error) {
	if len(data) == 0 {
		return audio.Encoded{}, audio.Buffer{}, fmt.Errorf("%w: no audio captured", ErrDecode)
	}

	if decodeFn == nil {
		decodeFn = decode.Decode
	}

	buf, err := decodeFn(mediaType, data)
	if err != nil {
		if errors.Is(err, ErrDecode) {
			return audio.Encoded{}, audio.Buffer{}, err
		}
		return audio.Encoded{}, audio.Buffer{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if err := buf.Validate(); err != nil {
		return audio.Encoded{}, audio.Buffer{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	reversed := transform.Reverse(buf)
	return encode.WAV(reversed), reversed, nil
}
