// ABOUTME: Configuration package documentation
// ABOUTME: Describes the precedence of config sources
// Package config loads backspeak settings from YAML, .env files and the
// environment. Command-line flags are applied by the binaries on top.
package config
