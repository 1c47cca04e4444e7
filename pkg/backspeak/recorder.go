// ABOUTME: Recorder capture lifecycle
// ABOUTME: Collects chunks from a Source and turns them into a published reversed clip
package backspeak

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harperreed/backspeak/pkg/audio/decode"
	"github.com/rs/zerolog/log"
)

// RecorderConfig holds recorder configuration
type RecorderConfig struct {
	// Source provides capture chunks (required)
	Source Source

	// Decode turns captured bytes into a buffer (default: decode.Decode)
	Decode DecodeFunc

	// Publisher stores finished clips (required)
	Publisher Publisher

	// OnStateChange is called after every state transition
	OnStateChange func(State)

	// OnReady is called when a clip has been published
	OnReady func(Clip)

	// OnError is called when a capture attempt fails
	OnError func(error)

	// MaxBytes caps the bytes captured in one attempt (0: unlimited)
	MaxBytes int
}

// Recorder drives one capture session at a time
type Recorder struct {
	config RecorderConfig

	mu        sync.Mutex
	state     State
	mediaType string
	clip      *Clip
	opening   bool
	closed    bool

	// chunkMu guards the capture buffer; sinks run on capture goroutines
	chunkMu  sync.Mutex
	chunks   [][]byte
	size     int
	overflow bool
	session  uint64
}

// NewRecorder creates a recorder in the idle state
func NewRecorder(config RecorderConfig) (*Recorder, error) {
	if config.Source == nil {
		return nil, errors.New("recorder requires a source")
	}
	if config.Publisher == nil {
		return nil, errors.New("recorder requires a publisher")
	}
	if config.Decode == nil {
		config.Decode = decode.Decode
	}

	return &Recorder{
		config: config,
		state:  StateIdle,
	}, nil
}

// State returns the current lifecycle state
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Clip returns the most recently published clip
func (r *Recorder) Clip() (Clip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.clip == nil {
		return Clip{}, false
	}
	return *r.clip, true
}

// Start opens the source and begins a new recording. Allowed from idle and
// ready; the previous clip stays available until the next one is published.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		return ErrClosed
	case r.opening, r.state == StateProcessing:
		r.mu.Unlock()
		return ErrBusy
	case r.state == StateRecording:
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.opening = true
	session := r.resetChunks()
	r.mu.Unlock()

	sink := func(chunk []byte) {
		r.appendChunk(session, chunk)
	}

	// Opened outside mu; device start-up can block
	mediaType, err := r.config.Source.Open(ctx, sink)

	r.mu.Lock()
	r.opening = false
	if err != nil {
		r.state = StateIdle
		r.mu.Unlock()

		err = fmt.Errorf("%w: %v", ErrAcquisition, err)
		log.Error().Err(err).Msg("Failed to open capture source")
		r.notifyState(StateIdle)
		r.notifyError(err)
		return err
	}
	if r.closed {
		r.mu.Unlock()
		r.closeSource()
		r.takeChunks()
		return ErrClosed
	}

	r.mediaType = mediaType
	r.state = StateRecording
	r.mu.Unlock()

	log.Info().Str("media_type", mediaType).Msg("Recording started")
	r.notifyState(StateRecording)
	return nil
}

// Stop ends the recording, runs the reverse pipeline and publishes the
// result. The previously published clip is released once the new one is
// available.
func (r *Recorder) Stop() (Clip, error) {
	r.mu.Lock()
	switch r.state {
	case StateProcessing:
		r.mu.Unlock()
		return Clip{}, ErrBusy
	case StateRecording:
	default:
		r.mu.Unlock()
		return Clip{}, ErrNotRecording
	}
	r.state = StateProcessing
	mediaType := r.mediaType
	r.mu.Unlock()

	r.notifyState(StateProcessing)

	// Closed outside mu: sources wait for in-flight sinks
	r.closeSource()

	data, overflow := r.takeChunks()
	if overflow {
		return Clip{}, r.fail(r.tooLarge())
	}
	started := time.Now()

	enc, buf, err := Process(mediaType, data, r.config.Decode)
	if err != nil {
		log.Error().Err(err).
			Str("media_type", mediaType).
			Int("bytes", len(data)).
			Msg("Failed to process recording")
		return Clip{}, r.fail(err)
	}

	clip, err := r.config.Publisher.Publish(enc)
	if err != nil {
		return Clip{}, r.fail(fmt.Errorf("publish clip: %w", err))
	}
	clip.Audio = enc
	clip.Duration = buf.Duration()
	clip.ProcessingTime = time.Since(started)
	if clip.CreatedAt.IsZero() {
		clip.CreatedAt = time.Now()
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.config.Publisher.Release(clip.ID)
		log.Debug().Str("clip_id", clip.ID).Msg("Recorder closed during processing, clip dropped")
		return Clip{}, ErrClosed
	}
	previous := r.clip
	r.clip = &clip
	r.state = StateReady
	r.mu.Unlock()

	if previous != nil {
		r.config.Publisher.Release(previous.ID)
	}

	log.Info().
		Str("clip_id", clip.ID).
		Dur("duration", clip.Duration).
		Int("bytes", enc.Size()).
		Dur("processing", clip.ProcessingTime).
		Msg("Reversed clip ready")

	r.notifyState(StateReady)
	if r.config.OnReady != nil {
		r.config.OnReady(clip)
	}
	return clip, nil
}

// Toggle stops an active recording, otherwise starts one
func (r *Recorder) Toggle(ctx context.Context) error {
	switch r.State() {
	case StateRecording:
		_, err := r.Stop()
		return err
	case StateProcessing:
		return ErrBusy
	default:
		return r.Start(ctx)
	}
}

// ReleaseClip revokes the held clip and returns to idle
func (r *Recorder) ReleaseClip() bool {
	r.mu.Lock()
	clip := r.clip
	r.clip = nil
	changed := r.state == StateReady
	if changed {
		r.state = StateIdle
	}
	r.mu.Unlock()

	if clip == nil {
		return false
	}

	r.config.Publisher.Release(clip.ID)
	if changed {
		r.notifyState(StateIdle)
	}
	return true
}

// Close stops an active recording without processing it and releases the
// held clip
func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	recording := r.state == StateRecording
	clip := r.clip
	r.clip = nil
	r.state = StateIdle
	r.mu.Unlock()

	var err error
	if recording {
		err = r.config.Source.Close()
		r.takeChunks()
	}
	if clip != nil {
		r.config.Publisher.Release(clip.ID)
	}
	return err
}

// fail discards the attempt and returns to idle
func (r *Recorder) fail(err error) error {
	r.mu.Lock()
	r.state = StateIdle
	r.mu.Unlock()

	r.notifyState(StateIdle)
	r.notifyError(err)
	return err
}

// abortOverflow ends the recording of session once it outgrows MaxBytes
func (r *Recorder) abortOverflow(session uint64) {
	r.mu.Lock()
	if r.state != StateRecording || r.currentSession() != session {
		r.mu.Unlock()
		return
	}
	r.state = StateIdle
	r.mu.Unlock()

	r.closeSource()
	r.takeChunks()

	err := r.tooLarge()
	log.Warn().Err(err).Msg("Recording aborted")
	r.notifyState(StateIdle)
	r.notifyError(err)
}

func (r *Recorder) tooLarge() error {
	return fmt.Errorf("%w: over %d bytes", ErrTooLarge, r.config.MaxBytes)
}

func (r *Recorder) closeSource() {
	if err := r.config.Source.Close(); err != nil {
		log.Warn().Err(err).Msg("capture source close error")
	}
}

func (r *Recorder) currentSession() uint64 {
	r.chunkMu.Lock()
	defer r.chunkMu.Unlock()
	return r.session
}

func (r *Recorder) resetChunks() uint64 {
	r.chunkMu.Lock()
	defer r.chunkMu.Unlock()

	r.session++
	r.chunks = nil
	r.size = 0
	r.overflow = false
	return r.session
}

func (r *Recorder) appendChunk(session uint64, chunk []byte) {
	r.chunkMu.Lock()
	defer r.chunkMu.Unlock()

	// Late chunks from an older session are dropped
	if session != r.session || len(chunk) == 0 || r.overflow {
		return
	}
	if r.config.MaxBytes > 0 && r.size+len(chunk) > r.config.MaxBytes {
		r.overflow = true
		// Sinks may run under the source's own lock, so Source.Close
		// must happen elsewhere
		go r.abortOverflow(session)
		return
	}
	r.chunks = append(r.chunks, chunk)
	r.size += len(chunk)
}

// takeChunks concatenates and clears the capture buffer, reporting whether
// the capture outgrew MaxBytes
func (r *Recorder) takeChunks() ([]byte, bool) {
	r.chunkMu.Lock()
	defer r.chunkMu.Unlock()

	data := make([]byte, 0, r.size)
	for _, c := range r.chunks {
		data = append(data, c...)
	}
	overflow := r.overflow
	r.chunks = nil
	r.size = 0
	r.overflow = false
	r.session++
	return data, overflow
}

func (r *Recorder) notifyState(s State) {
	if r.config.OnStateChange != nil {
		r.config.OnStateChange(s)
	}
}

func (r *Recorder) notifyError(err error) {
	if r.config.OnError != nil {
		r.config.OnError(err)
	}
}
