// ABOUTME: Audio transform package
// ABOUTME: Provides pure functions that derive new buffers from decoded audio
// Package transform provides pure transforms over decoded audio buffers.
//
// Transforms never modify their input; each call allocates a new buffer
// with no aliasing back to the source.
//
// Example:
//
//	reversed := transform.Reverse(buf)
package transform
