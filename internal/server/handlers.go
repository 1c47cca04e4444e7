// ABOUTME: HTTP handlers for reverse uploads, clips and health checks
// ABOUTME: Maps pipeline errors to status codes and records request metrics
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/harperreed/backspeak/internal/clipstore"
	"github.com/harperreed/backspeak/internal/version"
	"github.com/harperreed/backspeak/pkg/audio"
	"github.com/harperreed/backspeak/pkg/audio/decode"
	"github.com/harperreed/backspeak/pkg/backspeak"
	"github.com/rs/zerolog/log"
)

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument records request counts and durations by route pattern
func (s *Server) instrument(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		route := r.Pattern
		if route == "" {
			route = r.URL.Path
		}
		s.metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), time.Since(start))
	}
}

// handleReverse decodes an uploaded file and responds with the reversed WAV
func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds limit")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	mediaType := r.Header.Get("Content-Type")
	started := time.Now()

	enc, buf, err := backspeak.Process(mediaType, data, nil)
	if err != nil {
		s.metrics.RecordDecodeFailure()
		log.Warn().Err(err).Str("media_type", mediaType).Int("bytes", len(data)).Msg("Upload rejected")

		switch {
		case errors.Is(err, decode.ErrUnsupportedMediaType):
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
		default:
			writeError(w, http.StatusUnprocessableEntity, backspeak.UserMessage(err))
		}
		return
	}

	s.metrics.RecordClip(enc.Size(), buf.Duration(), time.Since(started))
	log.Info().
		Str("media_type", mediaType).
		Dur("duration", buf.Duration()).
		Int("bytes", enc.Size()).
		Msg("Upload reversed")

	w.Header().Set("Content-Type", enc.MediaType)
	w.Header().Set("Content-Length", strconv.Itoa(enc.Size()))
	w.Header().Set("X-Clip-Duration-Ms", strconv.FormatInt(buf.Duration().Milliseconds(), 10))
	w.WriteHeader(http.StatusOK)
	w.Write(enc.Data)
}

// handleGetClip serves a published clip
func (s *Server) handleGetClip(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	f, clip, err := s.store.Open(id)
	if err != nil {
		if errors.Is(err, clipstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "clip not found")
			return
		}
		log.Error().Err(err).Str("clip_id", id).Msg("Failed to open clip")
		writeError(w, http.StatusInternalServerError, "failed to open clip")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", audio.MediaTypeWAV)
	http.ServeContent(w, r, id+".wav", clip.CreatedAt, f)
}

// handleDeleteClip releases a published clip
func (s *Server) handleDeleteClip(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, ok := s.store.Get(id); !ok {
		writeError(w, http.StatusNotFound, "clip not found")
		return
	}

	s.store.Release(id)
	s.metrics.RecordClipReleased()
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth reports liveness and basic counters
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"name":      s.config.Name,
		"server_id": s.serverID,
		"version":   version.Version,
		"uptime_s":  int64(time.Since(s.startTime).Seconds()),
		"clips":     s.store.Len(),
		"sessions":  s.SessionCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
