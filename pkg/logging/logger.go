// Package logging configures zerolog for the MWS client packs and the CLI.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/mws-orders-client/pkg/config"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// FromPoolConfig derives a logger configuration from the logging section
// of a pool configuration.
func FromPoolConfig(lc config.LoggingConfig) Config {
	cfg := DefaultConfig()
	if lc.Level != "" {
		cfg.Level = LogLevel(lc.Level)
	}
	cfg.Pretty = lc.Pretty
	return cfg
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel converts a LogLevel to a zerolog.Level, defaulting to info.
func ParseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(string(level))) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a logger for the given component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: request flow
//   - Parameters dropped by an action schema
//   - Throttle admissions and remaining tokens
//   - Pages fetched during pagination
//
// Info: normal operation events
//   - Throttle waits that completed
//   - Requests that succeeded after a retry
//   - Bucket resets
//
// Warn: throttling and transient failures
//   - Depleted buckets and refused admissions (max wait)
//   - MWS error responses and retry backoff
//   - Page limits reached
//
// Error: failures requiring attention
//   - CLI command failures
//
// Context Fields:
//   - component: orders, throttle, mws-client, clientpack, cli
//   - method / bucket: throttle method identifier and resolved bucket
//   - action: MWS action name (GetOrder, ListOrders, ...)
//   - call_id: per-dispatch identifier (trace id or uuid)
//   - error_class: client, server, throttled, network
//   - wait / waited / max_wait: throttle durations
