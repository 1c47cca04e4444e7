// ABOUTME: Websocket capture source
// ABOUTME: Feeds binary frames from a browser session to the recorder
package server

import (
	"context"
	"errors"
	"sync"
)

// wsSource adapts a websocket session to backspeak.Source. Chunks pushed
// while the source is closed are dropped.
type wsSource struct {
	mu        sync.Mutex
	mediaType string
	sink      func([]byte)
}

// SetMediaType records the media type announced by capture/start
func (s *wsSource) SetMediaType(mediaType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mediaType = mediaType
}

// Open starts accepting chunks
func (s *wsSource) Open(ctx context.Context, sink func([]byte)) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mediaType == "" {
		return "", errors.New("capture/start is missing media_type")
	}
	s.sink = sink
	return s.mediaType, nil
}

// Push delivers a binary frame to the recorder, if recording
func (s *wsSource) Push(chunk []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sink == nil {
		return false
	}
	s.sink(chunk)
	return true
}

// Close stops accepting chunks
func (s *wsSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = nil
	return nil
}
