// ABOUTME: Collaborator interfaces and clip type for the recorder
// ABOUTME: Defines Source, Publisher, Clip and the recorder's sentinel errors
package backspeak

import (
	"context"
	"errors"
	"time"

	"github.com/harperreed/backspeak/pkg/audio"
	"github.com/harperreed/backspeak/pkg/audio/decode"
)

var (
	// ErrAcquisition means the capture source could not be opened
	ErrAcquisition = errors.New("audio acquisition failed")

	// ErrDecode means captured bytes could not be turned into audio
	ErrDecode = decode.ErrDecode

	// ErrBusy is returned for commands issued while a recording is processed
	ErrBusy = errors.New("recorder is processing")

	// ErrNotRecording is returned by Stop outside of a recording
	ErrNotRecording = errors.New("not recording")

	// ErrAlreadyRecording is returned by Start during a recording
	ErrAlreadyRecording = errors.New("already recording")

	// ErrTooLarge means a capture grew past RecorderConfig.MaxBytes
	ErrTooLarge = errors.New("recording exceeds size limit")

	// ErrClosed is returned once the recorder has been closed
	ErrClosed = errors.New("recorder closed")
)

// Source produces encoded audio chunks for one capture session
type Source interface {
	// Open starts capturing and returns the media type of the chunks
	Open(ctx context.Context, sink func(chunk []byte)) (mediaType string, err error)

	// Close stops capturing. No chunks are delivered after it returns.
	Close() error
}

// Publisher makes an encoded clip available under a revocable handle
type Publisher interface {
	// Publish stores the clip and returns its handle
	Publish(enc audio.Encoded) (Clip, error)

	// Release revokes the handle. Unknown ids are ignored.
	Release(id string)
}

// DecodeFunc decodes captured bytes of the given media type
type DecodeFunc func(mediaType string, data []byte) (audio.Buffer, error)

// Clip is a published reversed recording
type Clip struct {
	ID        string
	URL       string
	Audio     audio.Encoded
	Duration  time.Duration
	CreatedAt time.Time

	// ProcessingTime covers decode, reverse and encode
	ProcessingTime time.Duration
}

// UserMessage returns the text shown to a person for a recorder error
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAcquisition):
		return "Microphone access failed. Please allow mic permissions."
	case errors.Is(err, ErrDecode):
		return "Failed to process audio. Try again or use a different browser."
	case errors.Is(err, ErrBusy):
		return "Still processing the last recording."
	case errors.Is(err, ErrTooLarge):
		return "Recording is too long. Try a shorter one."
	default:
		return err.Error()
	}
}
