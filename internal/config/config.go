// ABOUTME: Service configuration loading and validation
// ABOUTME: Reads YAML, applies .env and BACKSPEAK_* overrides, validates per section
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "BACKSPEAK_"

// Config represents the complete service configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Clips   ClipsConfig   `yaml:"clips"`
	Capture CaptureConfig `yaml:"capture"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains HTTP and websocket server configuration
type ServerConfig struct {
	Port           int    `yaml:"port"`
	Name           string `yaml:"name"`
	EnableMDNS     bool   `yaml:"enable_mdns"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	PublicURL      string `yaml:"public_url"` // prefix for clip URLs, empty for relative
}

// ClipsConfig contains clip store configuration
type ClipsConfig struct {
	Dir string `yaml:"dir"` // empty uses a temp directory removed on exit
}

// CaptureConfig contains microphone capture parameters
type CaptureConfig struct {
	SampleRate int `yaml:"sample_rate"`
	Channels   int `yaml:"channels"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
	File   string `yaml:"file"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8927,
			Name:           "Backspeak",
			EnableMDNS:     true,
			MaxUploadBytes: 32 << 20,
		},
		Capture: CaptureConfig{
			SampleRate: 48000,
			Channels:   1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "backspeak.log",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not
// an error when path is empty.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	return config, nil
}

// LoadEnv loads envFile into the process environment, if present, and
// applies BACKSPEAK_* and LOG_LEVEL overrides
func (c *Config) LoadEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
		return nil
	}

	if err := num("PORT", &c.Server.Port); err != nil {
		return err
	}
	str("NAME", &c.Server.Name)
	str("PUBLIC_URL", &c.Server.PublicURL)
	if v, ok := lookup(EnvPrefix + "ENABLE_MDNS"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sENABLE_MDNS: %w", EnvPrefix, err)
		}
		c.Server.EnableMDNS = b
	}
	if v, ok := lookup(EnvPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_UPLOAD_BYTES: %w", EnvPrefix, err)
		}
		c.Server.MaxUploadBytes = n
	}

	str("CLIPS_DIR", &c.Clips.Dir)

	if err := num("SAMPLE_RATE", &c.Capture.SampleRate); err != nil {
		return err
	}
	if err := num("CHANNELS", &c.Capture.Channels); err != nil {
		return err
	}

	// LOG_LEVEL is honoured unprefixed as well
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Logging.Level = strings.ToLower(v)
	}
	str("LOG_FORMAT", &c.Logging.Format)
	str("LOG_FILE", &c.Logging.File)

	return nil
}

// Validate performs validation of every section
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.Name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if s.MaxUploadBytes < 1024 {
		return fmt.Errorf("max_upload_bytes must be at least 1024, got %d", s.MaxUploadBytes)
	}

	if s.PublicURL != "" && !strings.HasPrefix(s.PublicURL, "http://") && !strings.HasPrefix(s.PublicURL, "https://") {
		return fmt.Errorf("public_url must be an http(s) URL, got '%s'", s.PublicURL)
	}

	return nil
}

// Validate validates capture configuration
func (a *CaptureConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", a.SampleRate)
	}

	if a.Channels < 1 || a.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2, got %d", a.Channels)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'console', got '%s'", l.Format)
	}

	if l.File == "" {
		return fmt.Errorf("file cannot be empty")
	}

	return nil
}
