// ABOUTME: Oto-based audio output implementation
// ABOUTME: Handles PCM playback with software volume control using oto library
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"
)

// Oto output implementation using oto library
type Oto struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int
	volume     int
	muted      bool
	ready      bool
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{
		volume: 100,
		muted:  false,
	}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	// If already initialized with same format, reuse the existing context
	if o.otoCtx != nil && o.sampleRate == sampleRate && o.channels == channels {
		return o.startPlayerLocked()
	}

	// oto only allows one context per process
	if o.otoCtx != nil {
		return fmt.Errorf("output already opened at %dHz %dch, cannot switch to %dHz %dch",
			o.sampleRate, o.channels, sampleRate, channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels

	log.Info().Int("sample_rate", sampleRate).Int("channels", channels).Msg("Audio output initialized")

	return o.startPlayerLocked()
}

// startPlayerLocked creates the streaming player if needed (must hold o.mu)
func (o *Oto) startPlayerLocked() error {
	if o.ready {
		return nil
	}

	if err := o.otoCtx.Resume(); err != nil {
		return fmt.Errorf("failed to resume oto context: %w", err)
	}

	// Create pipe for continuous streaming
	o.pipeReader, o.pipeWriter = io.Pipe()

	// Create persistent player that reads from the pipe
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()

	o.ready = true
	return nil
}

// Write outputs S16LE samples (blocks until written)
func (o *Oto) Write(pcm []byte) error {
	o.mu.Lock()
	if !o.ready {
		o.mu.Unlock()
		return fmt.Errorf("output not initialized")
	}
	writer := o.pipeWriter
	volume, muted := o.volume, o.muted
	o.mu.Unlock()

	output := applyVolume(pcm, volume, muted)

	// Write to pipe (which feeds the persistent player)
	if _, err := writer.Write(output); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}

	return nil
}

// Close stops playback. The oto context is suspended, not destroyed, so the
// output can be opened again with the same format.
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil && o.ready {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Warn().Err(err).Msg("oto context suspend error")
		}
	}
	o.ready = false
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.volume = clampVolume(volume)
	log.Debug().Int("volume", o.volume).Msg("Volume set")
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.muted = muted
	log.Debug().Bool("muted", muted).Msg("Mute changed")
}

// GetVolume returns current volume
func (o *Oto) GetVolume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// IsMuted returns mute state
func (o *Oto) IsMuted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

func clampVolume(volume int) int {
	if volume < 0 {
		return 0
	}
	if volume > 100 {
		return 100
	}
	return volume
}

// applyVolume scales S16LE samples with clipping protection
func applyVolume(pcm []byte, volume int, muted bool) []byte {
	multiplier := getVolumeMultiplier(volume, muted)

	result := make([]byte, len(pcm)-len(pcm)%2)
	for i := 0; i+1 < len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		scaled := math.Round(float64(sample) * multiplier)

		// Clamp to 16-bit range to prevent overflow
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}

		binary.LittleEndian.PutUint16(result[i:], uint16(int16(scaled)))
	}

	return result
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
