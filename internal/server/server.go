// ABOUTME: Main server implementation for backspeak
// ABOUTME: Serves the reverse upload API, published clips and websocket capture sessions
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/backspeak/internal/clipstore"
	"github.com/harperreed/backspeak/internal/discovery"
	"github.com/harperreed/backspeak/internal/metrics"
	"github.com/harperreed/backspeak/internal/version"
	"github.com/rs/zerolog/log"
)

// WebSocketPath is where capture sessions connect
const WebSocketPath = "/ws"

// Config holds server configuration
type Config struct {
	Port           int
	Name           string
	EnableMDNS     bool
	MaxUploadBytes int64
}

// Server represents the backspeak server
type Server struct {
	config   Config
	serverID string

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	store   *clipstore.Store
	metrics *metrics.Metrics

	// Session management
	sessions   map[string]*Session
	sessionsMu sync.RWMutex

	// mDNS discovery
	mdnsManager *discovery.Manager

	startTime time.Time

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once // Ensure Stop() is only called once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// New creates a new server instance
func New(config Config, store *clipstore.Store, m *metrics.Metrics) *Server {
	if m == nil {
		m = metrics.NewMetrics()
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network deployments serve browsers from other origins
				origin := r.Header.Get("Origin")
				if origin != "" {
					log.Debug().Str("origin", origin).Msg("accepting websocket origin")
				}
				return true
			},
		},
		store:     store,
		metrics:   m,
		sessions:  make(map[string]*Session),
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/reverse", s.instrument(s.handleReverse))
	s.mux.HandleFunc("GET /clips/{id}", s.instrument(s.handleGetClip))
	s.mux.HandleFunc("DELETE /clips/{id}", s.instrument(s.handleDeleteClip))
	s.mux.HandleFunc("GET /healthz", s.instrument(s.handleHealth))
	s.mux.Handle("GET /metrics", s.metrics.Handler())
	s.mux.HandleFunc("GET "+WebSocketPath, s.handleWebSocket)
}

// Handler returns the HTTP handler for all routes
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the server until Stop is called or the listener fails
func (s *Server) Start() error {
	log.Info().Str("name", s.config.Name).Str("server_id", s.serverID).Msg("Server starting")

	// Start mDNS advertisement if enabled
	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        WebSocketPath,
			Version:     version.Version,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Warn().Err(err).Msg("Failed to start mDNS advertisement")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Info().Str("addr", addr).Msg("HTTP server listening")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Info().Msg("Server shutting down...")
	case err := <-errChan:
		log.Error().Err(err).Msg("HTTP server error")
		serverErr = err
	}

	// Mark server as shutting down to reject new connections
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	// Hijacked websocket connections are not closed by Shutdown
	s.closeSessions()
	s.wg.Wait()
	log.Info().Msg("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// SessionCount returns the number of connected capture sessions
func (s *Server) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}

func (s *Server) shuttingDown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.isShutdown
}

func (s *Server) closeSessions() {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()

	for _, session := range s.sessions {
		session.conn.Close()
	}
}
