// ABOUTME: Audio decoder package for multiple container support
// ABOUTME: Provides Decoder interface and implementations for PCM, WAV, MP3, FLAC, Ogg Opus
// Package decode turns captured or uploaded audio bytes into audio.Buffer.
//
// Supports: raw PCM (16-bit and 24-bit), WAV, MP3, FLAC, Ogg-encapsulated Opus
//
// All decoders implement the Decoder interface, decode a whole payload at
// once and output float32 samples per channel. Every failure wraps ErrDecode.
//
// Example:
//
//	buf, err := decode.Decode("audio/ogg;codecs=opus", data)
//	if errors.Is(err, decode.ErrUnsupportedMediaType) {
//	    // ask the client for another format
//	}
package decode
