// Package log provides the process-wide zerolog sink used by every
// smartdispatch component that isn't inherited directly from gqs. It
// mirrors the global-Logger-plus-child-logger shape used elsewhere in
// the ecosystem: one configured sink, and cheap With()-derived loggers
// scoped to a component, a batch, or a single command.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. Init must be called once
// during startup before any component derives a child logger from it.
var Logger zerolog.Logger

// Level names a configured verbosity.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case InfoLevel:
		level = zerolog.InfoLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent creates a child logger tagging every event with the
// package or subsystem that produced it (e.g. "queue", "worker", "pbs").
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithBatch creates a child logger tagging every event with the batch
// UID it belongs to.
func WithBatch(batchUID string) zerolog.Logger {
	return Logger.With().Str("batch_uid", batchUID).Logger()
}

// WithCommand creates a child logger tagging every event with the UID
// of the single command it concerns.
func WithCommand(commandUID string) zerolog.Logger {
	return Logger.With().Str("command_uid", commandUID).Logger()
}
