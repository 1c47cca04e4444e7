// ABOUTME: PCM sample interleaving
// ABOUTME: Quantizes float channels into little-endian 16-bit interleaved bytes
package encode

import (
	"encoding/binary"

	"github.com/harperreed/backspeak/pkg/audio"
)

// BytesPerSample is the width of one encoded sample
const BytesPerSample = 2

// Interleave16 quantizes buf to 16-bit and interleaves it frame by frame:
// frame0ch0, frame0ch1, ..., frame1ch0, ...
func Interleave16(buf audio.Buffer) []byte {
	channels := buf.NumChannels()
	frames := buf.NumFrames()

	output := make([]byte, frames*channels*BytesPerSample)
	offset := 0
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			sample16 := audio.QuantizeInt16(buf.Channels[ch][i])
			binary.LittleEndian.PutUint16(output[offset:], uint16(sample16))
			offset += BytesPerSample
		}
	}
	return output
}
