// ABOUTME: Malgo-based microphone capture implementation
// ABOUTME: Opens the default capture device and forwards S16LE chunks to a sink
package capture

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog/log"
)

const (
	DefaultSampleRate = 48000
	DefaultChannels   = 1

	bytesPerSample = 2
)

// ErrAlreadyOpen is returned when Open is called on a running microphone
var ErrAlreadyOpen = errors.New("microphone already open")

// Config selects the capture format
type Config struct {
	SampleRate int
	Channels   int
}

// Microphone captures from the default input device
type Microphone struct {
	config Config

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	stop     context.CancelFunc

	// sinkMu is held while a chunk is delivered; device.Stop waits for the
	// callback, so it must never be taken under mu by the callback
	sinkMu sync.Mutex
	sink   func([]byte)
}

// NewMicrophone creates a microphone; zero fields take the defaults
func NewMicrophone(cfg Config) *Microphone {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = DefaultChannels
	}
	return &Microphone{config: cfg}
}

// MediaType describes the chunks the microphone produces
func (m *Microphone) MediaType() string {
	return MediaType(m.config.SampleRate, m.config.Channels)
}

// MediaType formats the raw PCM media type for 16-bit chunks
func MediaType(sampleRate, channels int) string {
	return fmt.Sprintf("audio/pcm;rate=%d;channels=%d;bits=16", sampleRate, channels)
}

// Open starts the capture device. Chunks go to sink until Close is called
// or ctx is cancelled.
func (m *Microphone) Open(ctx context.Context, sink func([]byte)) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return "", ErrAlreadyOpen
	}

	malgoCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.Debug().Str("msg", msg).Msg("malgo context message")
	})
	if err != nil {
		return "", fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(m.config.Channels)
	deviceConfig.SampleRate = uint32(m.config.SampleRate)

	// alsa specific settings for linux
	if runtime.GOOS == "linux" {
		deviceConfig.Alsa.NoMMap = 1
	}

	frameBytes := uint32(m.config.Channels * bytesPerSample)
	onCapture := func(_, input []byte, frameCount uint32) {
		n := frameCount * frameBytes
		if n > uint32(len(input)) {
			n = uint32(len(input))
		}
		// malgo reuses the input buffer
		chunk := make([]byte, n)
		copy(chunk, input[:n])
		m.deliver(chunk)
	}

	device, err := malgo.InitDevice(malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onCapture})
	if err != nil {
		freeContext(malgoCtx)
		return "", fmt.Errorf("failed to open capture device: %w", err)
	}

	m.malgoCtx = malgoCtx
	m.device = device
	m.setSink(sink)

	if err := device.Start(); err != nil {
		m.closeLocked()
		return "", fmt.Errorf("failed to start capture device: %w", err)
	}

	watchCtx, stop := context.WithCancel(ctx)
	m.stop = stop
	go func() {
		<-watchCtx.Done()
		if ctx.Err() != nil {
			log.Debug().Msg("capture context done, closing microphone")
			m.Close()
		}
	}()

	log.Info().
		Int("sample_rate", m.config.SampleRate).
		Int("channels", m.config.Channels).
		Msg("Capture device started")

	return m.MediaType(), nil
}

// deliver forwards a chunk unless the microphone has been closed
func (m *Microphone) deliver(chunk []byte) {
	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()

	if m.sink != nil && len(chunk) > 0 {
		m.sink(chunk)
	}
}

func (m *Microphone) setSink(sink func([]byte)) {
	m.sinkMu.Lock()
	m.sink = sink
	m.sinkMu.Unlock()
}

// Close stops the device. No chunks are delivered after Close returns.
func (m *Microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()
	return nil
}

// closeLocked tears down the device and context (must hold m.mu)
func (m *Microphone) closeLocked() {
	m.setSink(nil)

	if m.stop != nil {
		m.stop()
		m.stop = nil
	}

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Warn().Err(err).Msg("capture device stop error")
		}
		m.device.Uninit()
		m.device = nil
		log.Info().Msg("Capture device stopped")
	}

	if m.malgoCtx != nil {
		freeContext(m.malgoCtx)
		m.malgoCtx = nil
	}
}

func freeContext(ctx *malgo.AllocatedContext) {
	if err := ctx.Uninit(); err != nil {
		log.Warn().Err(err).Msg("malgo context uninit error")
	}
	ctx.Free()
}
