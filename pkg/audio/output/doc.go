// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface, oto implementation and WAV playback
// Package output provides audio playback interfaces.
//
// Oto plays interleaved signed 16-bit little-endian PCM with software volume
// and mute. PlayWAV plays an encoded 16-bit WAV clip on any Output.
//
// Example:
//
//	out := output.NewOto()
//	err := output.PlayWAV(out, clip.Audio)
package output
