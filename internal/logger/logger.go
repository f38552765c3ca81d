package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

func init() {
	zerolog.TimestampFieldName = "timestamp"
}

// NewLogger returns a component-scoped logger writing JSON lines to stderr.
// The level is read from LOG_LEVEL.
func NewLogger(component string) zerolog.Logger {
	return NewWithWriter(os.Stderr, component, os.Getenv("LOG_LEVEL"))
}

func NewWithWriter(w io.Writer, component, level string) zerolog.Logger {
	return zerolog.New(w).
		With().
		Str("component", component).
		Timestamp().
		Logger().
		Level(parseLevel(level))
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
