// ABOUTME: Clip store for published reversed recordings
// ABOUTME: Saves clips to a cache directory and serves them by revocable id
package clipstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/backspeak/pkg/audio"
	"github.com/harperreed/backspeak/pkg/audio/encode"
	"github.com/harperreed/backspeak/pkg/backspeak"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned for unknown or released clip ids
var ErrNotFound = errors.New("clip not found")

// Store manages published clips on disk
type Store struct {
	cacheDir string
	baseURL  string
	ownsDir  bool

	mu    sync.RWMutex
	clips map[string]backspeak.Clip
}

// New creates a store in dir, or in a fresh temp directory when dir is
// empty. Clip URLs are baseURL + "/clips/" + id.
func New(dir, baseURL string) (*Store, error) {
	ownsDir := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "backspeak-clips-")
		if err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		dir = tmp
		ownsDir = true
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Store{
		cacheDir: dir,
		baseURL:  strings.TrimRight(baseURL, "/"),
		ownsDir:  ownsDir,
		clips:    make(map[string]backspeak.Clip),
	}, nil
}

// Dir returns the cache directory
func (s *Store) Dir() string {
	return s.cacheDir
}

// Publish saves enc under a new id
func (s *Store) Publish(enc audio.Encoded) (backspeak.Clip, error) {
	id := uuid.New().String()
	path := s.path(id)

	if err := os.WriteFile(path, enc.Data, 0644); err != nil {
		os.Remove(path)
		return backspeak.Clip{}, fmt.Errorf("failed to save clip: %w", err)
	}

	clip := backspeak.Clip{
		ID:        id,
		URL:       s.baseURL + "/clips/" + id,
		Audio:     enc,
		CreatedAt: time.Now(),
	}
	if header, err := encode.ParseHeader(enc.Data); err == nil {
		clip.Duration = header.Duration()
	}

	s.mu.Lock()
	s.clips[id] = clip
	s.mu.Unlock()

	log.Debug().Str("clip_id", id).Str("path", path).Int("bytes", enc.Size()).Msg("Clip saved")
	return clip, nil
}

// Get returns the clip metadata and payload
func (s *Store) Get(id string) (backspeak.Clip, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clip, ok := s.clips[id]
	return clip, ok
}

// Open opens the stored file for reading
func (s *Store) Open(id string) (*os.File, backspeak.Clip, error) {
	clip, ok := s.Get(id)
	if !ok {
		return nil, backspeak.Clip{}, ErrNotFound
	}

	f, err := os.Open(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, backspeak.Clip{}, ErrNotFound
		}
		return nil, backspeak.Clip{}, fmt.Errorf("failed to open clip: %w", err)
	}
	return f, clip, nil
}

// Release revokes the clip and deletes its file. Unknown ids are ignored.
func (s *Store) Release(id string) {
	s.mu.Lock()
	_, ok := s.clips[id]
	delete(s.clips, id)
	s.mu.Unlock()

	if !ok {
		return
	}

	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("clip_id", id).Msg("failed to remove clip file")
		return
	}
	log.Debug().Str("clip_id", id).Msg("Clip released")
}

// Len returns the number of live clips
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clips)
}

// Cleanup releases every clip and removes a temp cache directory
func (s *Store) Cleanup() error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.clips))
	for id := range s.clips {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		s.Release(id)
	}

	if s.ownsDir {
		return os.RemoveAll(s.cacheDir)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.cacheDir, id+".wav")
}
