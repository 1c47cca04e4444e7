// ABOUTME: Temporal reversal of decoded audio
// ABOUTME: Produces a new buffer with each channel's sample order inverted
package transform

import "github.com/harperreed/backspeak/pkg/audio"

// Reverse returns a copy of buf with every channel played backwards.
// Channel count and sample rate are preserved.
func Reverse(buf audio.Buffer) audio.Buffer {
	out := audio.Buffer{
		SampleRate: buf.SampleRate,
		Channels:   make([][]float32, len(buf.Channels)),
	}

	for ch, src := range buf.Channels {
		n := len(src)
		dst := make([]float32, n)
		for i, j := 0, n-1; i < n; i, j = i+1, j-1 {
			dst[i] = src[j]
		}
		out.Channels[ch] = dst
	}

	return out
}
