// Package logging builds the zerolog loggers used by the import run.
//
// The process logger is held by Default/SetDefault so that the pure field
// normalizers can report recoverable parse failures without threading a
// logger through every call:
//
//	log := logging.Default()
//	log.Warn().Str("value", raw).Msg("unparseable date")
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var defaultLogger = New(Config{Level: "info", Format: "console", Output: "stderr"})

// Config holds logger configuration options.
type Config struct {
	// Level is the minimum log level to output (debug, info, warn, error).
	Level string

	// Format is the output format: json or console.
	Format string

	// Output is stderr, stdout, discard, or a file path.
	Output string

	// NoColor disables color output in console mode.
	NoColor bool
}

// Default returns the process logger.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
}

// New creates a logger from configuration. A file output that cannot be
// opened falls back to stderr.
func New(cfg Config) zerolog.Logger {
	writer, err := openOutput(cfg.Output)
	if err != nil {
		writer = os.Stderr
	}
	return NewWithWriter(cfg, writer)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(cfg Config, w io.Writer) zerolog.Logger {
	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.NoColor || os.Getenv("NO_COLOR") != "",
		}
	}

	return zerolog.New(w).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel parses a log level string, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "none", "off":
		return zerolog.Disabled
	default:
		if l, err := zerolog.ParseLevel(level); err == nil {
			return l
		}
		return zerolog.InfoLevel
	}
}

func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	case "discard", "none":
		return io.Discard, nil
	}

	file, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", output, err)
	}
	return file, nil
}
