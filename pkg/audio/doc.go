// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Buffer, Encoded, Format types and sample conversion functions
// Package audio provides the fundamental audio types used by backspeak.
//
// This package defines core types used throughout the library:
//   - Buffer: decoded audio as per-channel float32 sample sequences
//   - Encoded: an immutable byte payload tagged with its media type
//   - Format: describes a raw PCM stream (codec, sample rate, channels, bit depth)
//
// It also provides utilities for converting between sample representations:
//   - float32 → int16 quantization with clamping
//   - int16 / 24-bit / N-bit integers → float32
//
// Example:
//
//	buf := audio.NewBuffer(2, 48000, 48000) // 1s of stereo silence
//	if err := buf.Validate(); err != nil {
//	    return err
//	}
//	s16 := audio.QuantizeInt16(buf.Channels[0][0])
package audio
