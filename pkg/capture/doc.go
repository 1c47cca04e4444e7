// ABOUTME: Microphone capture package
// ABOUTME: Streams raw PCM chunks from the default input device via malgo
// Package capture records audio from the default input device.
//
// Microphone delivers interleaved signed 16-bit little-endian chunks to a
// sink callback and reports the matching raw PCM media type, so the chunks
// can be concatenated and handed to decode.Decode.
//
// Example:
//
//	mic := capture.NewMicrophone(capture.Config{SampleRate: 48000, Channels: 1})
//	mediaType, err := mic.Open(ctx, func(chunk []byte) {
//	    chunks = append(chunks, chunk)
//	})
//	...
//	mic.Close()
package capture
