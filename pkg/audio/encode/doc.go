// ABOUTME: Audio encoder package for encoding decoded buffers to WAV
// ABOUTME: Provides 16-bit PCM interleaving and the canonical 44-byte RIFF header
// Package encode converts decoded audio buffers to 16-bit linear PCM WAV.
//
// Samples are clamped, quantized to signed 16-bit and interleaved
// frame-major, channel-minor. The result is prefixed with the canonical
// 44-byte RIFF/WAVE header, all integer fields little-endian.
//
// Example:
//
//	enc := encode.WAV(buf)
//	os.WriteFile("out.wav", enc.Data, 0644)
package encode
