// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC audio frame by frame to float buffers
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/harperreed/backspeak/pkg/audio"
	"github.com/mewkiz/flac"
)

// FLACDecoder decodes FLAC audio
type FLACDecoder struct{}

// NewFLAC creates a new FLAC decoder
func NewFLAC() (Decoder, error) {
	return &FLACDecoder{}, nil
}

// Decode converts FLAC bytes to a buffer
func (d *FLACDecoder) Decode(data []byte) (audio.Buffer, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("%w: failed to decode FLAC: %v", ErrDecode, err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	buf := audio.Buffer{
		SampleRate: int(info.SampleRate),
		Channels:   make([][]float32, channels),
	}

	// NSamples comes from the header and is not trusted for sizing
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return audio.Buffer{}, fmt.Errorf("%w: flac frame: %v", ErrDecode, err)
		}

		if len(frame.Subframes) != channels {
			return audio.Buffer{}, fmt.Errorf("%w: flac frame has %d subframes, stream has %d channels",
				ErrDecode, len(frame.Subframes), channels)
		}

		for ch, sub := range frame.Subframes {
			for _, sample := range sub.Samples[:frame.BlockSize] {
				buf.Channels[ch] = append(buf.Channels[ch], audio.IntToFloat(int(sample), bitDepth))
			}
		}
	}

	return buf, nil
}

// Close releases decoder resources
func (d *FLACDecoder) Close() error {
	return nil
}
