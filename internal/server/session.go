// ABOUTME: Websocket capture sessions
// ABOUTME: Runs one recorder per connection and reports its state to the client
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/backspeak/internal/protocol"
	"github.com/harperreed/backspeak/pkg/audio/decode"
	"github.com/harperreed/backspeak/pkg/backspeak"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeDeadline = 10 * time.Second
	pingInterval  = 30 * time.Second
	sendQueueSize = 32
)

var errProtocol = errors.New("protocol error")

// Session is one connected capture client
type Session struct {
	ID       string
	conn     *websocket.Conn
	recorder *backspeak.Recorder
	source   *wsSource
	sendChan chan interface{}
	log      zerolog.Logger

	// sendMu guards sendChan; recorder callbacks may fire after disconnect
	sendMu     sync.Mutex
	sendClosed bool

	ctx    context.Context
	cancel context.CancelFunc
}

// handleWebSocket upgrades the request and runs a capture session
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.shuttingDown() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	log.Info().Str("remote", r.RemoteAddr).Msg("New WebSocket connection")
	s.handleConnection(conn)
}

// handleConnection manages a session until the client disconnects
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()
	if s.config.MaxUploadBytes > 0 {
		conn.SetReadLimit(s.config.MaxUploadBytes)
	}

	session, err := s.newSession(conn)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		return
	}

	s.sessionsMu.Lock()
	s.sessions[session.ID] = session
	s.sessionsMu.Unlock()
	s.metrics.SessionOpened()

	defer func() {
		// Disconnect discards any recording and releases the session's clip
		if _, held := session.recorder.Clip(); held {
			s.metrics.RecordClipReleased()
		}
		session.recorder.Close()
		session.cancel()

		s.sessionsMu.Lock()
		delete(s.sessions, session.ID)
		s.sessionsMu.Unlock()
		s.metrics.SessionClosed()

		session.closeSend()
		session.log.Info().Msg("Session closed")
	}()

	// Start writer goroutine
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sessionWriter(session)
	}()

	session.send(protocol.TypeSessionState, protocol.SessionState{State: backspeak.StateIdle.String()})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				session.log.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if !session.source.Push(data) {
				session.log.Debug().Int("bytes", len(data)).Msg("dropping chunk outside of a recording")
			}
		case websocket.TextMessage:
			s.handleSessionMessage(session, data)
		}
	}
}

func (s *Server) newSession(conn *websocket.Conn) (*Session, error) {
	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())

	session := &Session{
		ID:       id,
		conn:     conn,
		source:   &wsSource{},
		sendChan: make(chan interface{}, sendQueueSize),
		log:      log.With().Str("session", id).Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}

	rec, err := backspeak.NewRecorder(backspeak.RecorderConfig{
		Source:    session.source,
		Publisher: s.store,
		MaxBytes:  int(s.config.MaxUploadBytes),
		OnStateChange: func(state backspeak.State) {
			session.send(protocol.TypeSessionState, protocol.SessionState{State: state.String()})
		},
		OnReady: func(clip backspeak.Clip) {
			s.metrics.RecordClip(clip.Audio.Size(), clip.Duration, clip.ProcessingTime)
			session.send(protocol.TypeSessionReady, protocol.SessionReady{
				ClipID:     clip.ID,
				URL:        clip.URL,
				MediaType:  clip.Audio.MediaType,
				Size:       clip.Audio.Size(),
				DurationMs: clip.Duration.Milliseconds(),
			})
		},
		OnError: func(err error) {
			switch {
			case errors.Is(err, backspeak.ErrAcquisition):
				s.metrics.RecordAcquisitionFailure()
			case errors.Is(err, backspeak.ErrDecode):
				s.metrics.RecordDecodeFailure()
			}
			session.sendError(err)
		},
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}
	session.recorder = rec

	return session, nil
}

// handleSessionMessage dispatches a client text message
func (s *Server) handleSessionMessage(session *Session, data []byte) {
	env, err := protocol.Decode(data, nil)
	if err != nil {
		session.sendError(fmt.Errorf("%w: %v", errProtocol, err))
		return
	}

	switch env.Type {
	case protocol.TypeCaptureStart:
		var start protocol.CaptureStart
		if _, err := protocol.Decode(data, &start); err != nil {
			session.sendError(fmt.Errorf("%w: %v", errProtocol, err))
			return
		}
		// Reject formats we cannot decode before the client records anything
		if start.MediaType != "" && !decode.Supported(start.MediaType) {
			session.sendError(fmt.Errorf("%w: %s", decode.ErrUnsupportedMediaType, start.MediaType))
			return
		}
		session.source.SetMediaType(start.MediaType)

		if err := session.recorder.Start(session.ctx); err != nil {
			// Acquisition failures are reported through OnError
			if !errors.Is(err, backspeak.ErrAcquisition) {
				session.sendError(err)
			}
			return
		}
		s.metrics.RecordCaptureStarted()

	case protocol.TypeCaptureStop:
		if _, err := session.recorder.Stop(); err != nil {
			if errors.Is(err, backspeak.ErrBusy) || errors.Is(err, backspeak.ErrNotRecording) {
				session.sendError(err)
			}
			return
		}

	case protocol.TypeClipRelease:
		if session.recorder.ReleaseClip() {
			s.metrics.RecordClipReleased()
		}

	default:
		session.log.Warn().Str("type", env.Type).Msg("Unknown message type")
		session.sendError(fmt.Errorf("%w: unknown message type %q", errProtocol, env.Type))
	}
}

// sessionWriter sends queued messages to the client
func (s *Server) sessionWriter(session *Session) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-session.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(msg)
			if err != nil {
				session.log.Error().Err(err).Msg("Error marshaling message")
				continue
			}
			session.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := session.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				session.log.Warn().Err(err).Msg("Error writing text message")
				return
			}

		case <-ticker.C:
			if err := session.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

// send queues a message for the writer goroutine
func (sess *Session) send(msgType string, payload interface{}) {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	sess.sendMu.Lock()
	defer sess.sendMu.Unlock()
	if sess.sendClosed {
		return
	}

	select {
	case sess.sendChan <- msg:
	default:
		sess.log.Warn().Str("type", msgType).Msg("session send buffer full, dropping message")
	}
}

func (sess *Session) closeSend() {
	sess.sendMu.Lock()
	defer sess.sendMu.Unlock()
	if !sess.sendClosed {
		sess.sendClosed = true
		close(sess.sendChan)
	}
}

// sendError reports err to the client with its kind and user message
func (sess *Session) sendError(err error) {
	sess.send(protocol.TypeSessionError, protocol.SessionError{
		Kind:    errorKind(err),
		Message: backspeak.UserMessage(err),
	})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, backspeak.ErrAcquisition):
		return protocol.ErrorKindAcquisition
	case errors.Is(err, backspeak.ErrDecode):
		return protocol.ErrorKindDecode
	case errors.Is(err, backspeak.ErrBusy):
		return protocol.ErrorKindBusy
	case errors.Is(err, backspeak.ErrTooLarge):
		return protocol.ErrorKindTooLarge
	case errors.Is(err, backspeak.ErrNotRecording), errors.Is(err, backspeak.ErrAlreadyRecording),
		errors.Is(err, errProtocol):
		return protocol.ErrorKindProtocol
	default:
		return protocol.ErrorKindInternal
	}
}
