// ABOUTME: Entry point for the backspeak recorder
// ABOUTME: Records from the microphone and plays the reversed clip in a TUI
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/harperreed/backspeak/internal/clipstore"
	"github.com/harperreed/backspeak/internal/config"
	"github.com/harperreed/backspeak/internal/logger"
	"github.com/harperreed/backspeak/internal/ui"
	"github.com/harperreed/backspeak/internal/version"
	"github.com/harperreed/backspeak/pkg/audio/output"
	"github.com/harperreed/backspeak/pkg/backspeak"
	"github.com/harperreed/backspeak/pkg/capture"
	"github.com/rs/zerolog/log"
)

var (
	configPath = flag.String("config", "", "YAML config file")
	envFile    = flag.String("env-file", ".env", "Environment file with BACKSPEAK_* overrides")
	logFile    = flag.String("log-file", "", "Log file path (default from config)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	sampleRate = flag.Int("sample-rate", 0, "Capture sample rate (default from config)")
	channels   = flag.Int("channels", 0, "Capture channel count (default from config)")
	saveDir    = flag.String("save-dir", ".", "Directory for saved clips")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// TUI mode: log only to file
	f, err := logger.OpenFile(cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = f.Close() }()
	logger.Init(cfg.Logging, f)

	log.Info().Str("version", version.String()).Msg("Starting recorder")

	store, err := clipstore.New(cfg.Clips.Dir, "")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create clip store")
	}
	defer func() {
		if err := store.Cleanup(); err != nil {
			log.Warn().Err(err).Msg("clip store cleanup error")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := &recorderApp{
		ctx:     ctx,
		out:     output.NewOto(),
		saveDir: *saveDir,
	}

	prog, err := ui.Run(app)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start TUI")
	}

	rec, err := backspeak.NewRecorder(backspeak.RecorderConfig{
		Source: capture.NewMicrophone(capture.Config{
			SampleRate: cfg.Capture.SampleRate,
			Channels:   cfg.Capture.Channels,
		}),
		Publisher: store,
		OnStateChange: func(state backspeak.State) {
			prog.Send(ui.StateMsg(state))
		},
		OnReady: func(clip backspeak.Clip) {
			prog.Send(ui.ClipMsg(clip))
		},
		OnError: func(err error) {
			log.Error().Err(err).Msg("Recorder error")
			prog.Send(ui.ErrorMsg(err))
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create recorder")
	}
	app.recorder = rec

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		prog.Quit()
	}()

	if _, err := prog.Run(); err != nil {
		log.Error().Err(err).Msg("TUI error")
	}

	cancel()
	if err := rec.Close(); err != nil {
		log.Warn().Err(err).Msg("recorder close error")
	}
	if err := app.out.Close(); err != nil {
		log.Warn().Err(err).Msg("output close error")
	}

	log.Info().Msg("Recorder stopped")
}

// loadConfig layers the config file, env overrides and explicit flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.LoadEnv(*envFile); err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-file":
			cfg.Logging.File = *logFile
		case "debug":
			if *debug {
				cfg.Logging.Level = "debug"
			}
		case "sample-rate":
			cfg.Capture.SampleRate = *sampleRate
		case "channels":
			cfg.Capture.Channels = *channels
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// recorderApp implements ui.Actions over the recorder and speaker output
type recorderApp struct {
	ctx      context.Context
	recorder *backspeak.Recorder
	out      *output.Oto
	saveDir  string

	playMu sync.Mutex
}

func (a *recorderApp) Toggle() error {
	return a.recorder.Toggle(a.ctx)
}

func (a *recorderApp) Play() error {
	clip, ok := a.recorder.Clip()
	if !ok {
		return fmt.Errorf("no clip to play")
	}

	a.playMu.Lock()
	defer a.playMu.Unlock()

	log.Info().Str("clip_id", clip.ID).Dur("duration", clip.Duration).Msg("Playing reversed clip")
	return output.PlayWAV(a.out, clip.Audio)
}

func (a *recorderApp) Save() (string, error) {
	clip, ok := a.recorder.Clip()
	if !ok {
		return "", fmt.Errorf("no clip to save")
	}

	name := fmt.Sprintf("backspeak-%s.wav", clip.CreatedAt.Format("20060102-150405"))
	path := filepath.Join(a.saveDir, name)
	if err := os.WriteFile(path, clip.Audio.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to save clip: %w", err)
	}

	log.Info().Str("clip_id", clip.ID).Str("path", path).Msg("Saved reversed clip")
	return path, nil
}

func (a *recorderApp) SetVolume(volume int) {
	a.out.SetVolume(volume)
}

var _ ui.Actions = (*recorderApp)(nil)
