// ABOUTME: Backspeak websocket session message definitions
// ABOUTME: Defines the type/payload envelope and every message body
package protocol

import (
	"encoding/json"
	"fmt"
)

// Client → server message types
const (
	TypeCaptureStart = "capture/start"
	TypeCaptureStop  = "capture/stop"
	TypeClipRelease  = "clip/release"
)

// Server → client message types
const (
	TypeSessionState = "session/state"
	TypeSessionReady = "session/ready"
	TypeSessionError = "session/error"
)

// Error kinds reported in SessionError
const (
	ErrorKindAcquisition = "acquisition"
	ErrorKindDecode      = "decode"
	ErrorKindBusy        = "busy"
	ErrorKindTooLarge    = "too_large"
	ErrorKindProtocol    = "protocol"
	ErrorKindInternal    = "internal"
)

// Message is the top-level wrapper for all session messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Envelope is an incoming message with its payload left undecoded
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CaptureStart begins a recording; binary frames that follow are chunks
type CaptureStart struct {
	MediaType string `json:"media_type"`
}

// SessionState reports a recorder state transition
type SessionState struct {
	State string `json:"state"` // idle, recording, processing, ready
}

// SessionReady announces a published reversed clip
type SessionReady struct {
	ClipID     string `json:"clip_id"`
	URL        string `json:"url"`
	MediaType  string `json:"media_type"`
	Size       int    `json:"size"`
	DurationMs int64  `json:"duration_ms"`
}

// SessionError reports a failed command or capture attempt
type SessionError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Decode parses an envelope and unmarshals its payload into v.
// A nil v only parses the envelope.
func Decode(data []byte, v interface{}) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("invalid message: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("invalid message: missing type")
	}
	if v != nil && len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return env, fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
	}
	return env, nil
}
