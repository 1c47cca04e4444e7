// ABOUTME: Entry point for the backspeak server
// ABOUTME: Parses CLI flags and serves reverse uploads and websocket capture sessions
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/backspeak/internal/clipstore"
	"github.com/harperreed/backspeak/internal/config"
	"github.com/harperreed/backspeak/internal/logger"
	"github.com/harperreed/backspeak/internal/metrics"
	"github.com/harperreed/backspeak/internal/server"
	"github.com/harperreed/backspeak/internal/version"
	"github.com/rs/zerolog/log"
)

var (
	configPath = flag.String("config", "", "YAML config file")
	envFile    = flag.String("env-file", ".env", "Environment file with BACKSPEAK_* overrides")
	port       = flag.Int("port", 0, "HTTP server port (default from config)")
	name       = flag.String("name", "", "Server friendly name (default from config)")
	logFile    = flag.String("log-file", "", "Log file path (default from config)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	clipsDir   = flag.String("clips-dir", "", "Directory for published clips (default: temporary)")
	publicURL  = flag.String("public-url", "", "Prefix for clip URLs (default: relative)")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Log to both file and stdout
	f, err := logger.OpenFile(cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	logger.Init(cfg.Logging, io.MultiWriter(os.Stdout, f))

	log.Info().
		Str("version", version.String()).
		Str("name", cfg.Server.Name).
		Int("port", cfg.Server.Port).
		Str("log_file", cfg.Logging.File).
		Msg("Starting backspeak server")

	store, err := clipstore.New(cfg.Clips.Dir, cfg.Server.PublicURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create clip store")
	}
	defer func() {
		if err := store.Cleanup(); err != nil {
			log.Warn().Err(err).Msg("clip store cleanup error")
		}
	}()
	log.Info().Str("dir", store.Dir()).Msg("Clip store ready")

	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		Name:           cfg.Server.Name,
		EnableMDNS:     cfg.Server.EnableMDNS,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, store, metrics.NewMetrics())

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down gracefully...")
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("Server error")
		return
	}

	log.Info().Msg("Server stopped")
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
		case "port":
			cfg.Server.Port = *port
		case "name":
			cfg.Server.Name = *name
		case "log-file":
			cfg.Logging.File = *logFile
		case "debug":
			if *debug {
				cfg.Logging.Level = "debug"
			}
		case "no-mdns":
			cfg.Server.EnableMDNS = !*noMDNS
		case "clips-dir":
			cfg.Clips.Dir = *clipsDir
		case "public-url":
			cfg.Server.PublicURL = *publicURL
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
