// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends and WAV playback helper
package output

import (
	"fmt"

	"github.com/harperreed/backspeak/pkg/audio"
	"github.com/harperreed/backspeak/pkg/audio/encode"
)

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write outputs interleaved S16LE PCM (blocks until written)
	Write(pcm []byte) error

	// Close releases output resources
	Close() error
}

// PlayWAV opens out with the clip's format and writes its sample data
func PlayWAV(out Output, enc audio.Encoded) error {
	header, err := encode.ParseHeader(enc.Data)
	if err != nil {
		return fmt.Errorf("cannot play clip: %w", err)
	}

	if err := out.Open(int(header.SampleRate), int(header.NumChannels)); err != nil {
		return fmt.Errorf("failed to open output: %w", err)
	}

	data := enc.Data[encode.HeaderSize:]
	if n := int(header.Subchunk2Size); n < len(data) {
		data = data[:n]
	}
	if err := out.Write(data); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	return nil
}
