package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// Log output formats accepted by --log-format.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatConsole = "console"
)

// StructuredLogger adapts zerolog to pgstage.Logger.
// Verbose maps to debug level and is dropped unless verbose is enabled.
type StructuredLogger struct {
	zl zerolog.Logger
}

// NewStructuredLogger creates a zerolog-backed logger. format is FormatJSON
// or FormatConsole (human-readable zerolog.ConsoleWriter).
func NewStructuredLogger(w io.Writer, format string, verbose bool) *StructuredLogger {
	out := w
	if format == FormatConsole {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	zl := zerolog.New(out).Level(level).With().Timestamp().Str("app", pgstage.DefaultAppName).Logger()
	return &StructuredLogger{zl: zl}
}

var _ pgstage.Logger = (*StructuredLogger)(nil)

// WithRunID returns a child logger that tags every event with run_id.
func (l *StructuredLogger) WithRunID(id uuid.UUID) *StructuredLogger {
	return &StructuredLogger{zl: l.zl.With().Str("run_id", id.String()).Logger()}
}

func (l *StructuredLogger) Verbose(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

func (l *StructuredLogger) Info(format string, args ...interface{}) {
	l.zl.Info().Msgf(format, args...)
}

func (l *StructuredLogger) Error(format string, args ...interface{}) {
	l.zl.Error().Msgf(format, args...)
}

// New returns the logger for a --log-format value.
func New(w io.Writer, format string, verbose bool) (pgstage.Logger, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return NewConsoleLoggerTo(w, verbose), nil
	case FormatJSON, FormatConsole:
		return NewStructuredLogger(w, strings.ToLower(format), verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text, json or console): %w", format, pgstage.ErrInvalidConfig)
	}
}
