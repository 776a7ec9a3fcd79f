// Package observability provides the structured logger and the Prometheus
// metrics of a harvest run.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/facultyscope/internal/model"
)

// NewLogger creates a zerolog logger from the logging section
func NewLogger(cfg model.LoggingConfig) zerolog.Logger {
	return newLogger(cfg, nil)
}

func newLogger(cfg model.LoggingConfig, w io.Writer) zerolog.Logger {
	output := w
	if output == nil {
		switch strings.ToLower(cfg.Output) {
		case "stdout":
			output = os.Stdout
		default:
			output = os.Stderr
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339

	// Human-readable output for terminals
	if format := strings.ToLower(cfg.Format); format == "console" || format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.Kitchen,
		}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Logger().
		Level(parseLevel(cfg.Level))
}

// parseLevel converts a string log level to zerolog.Level
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// WithCollege adds the college code to a logger
func WithCollege(logger zerolog.Logger, code string) zerolog.Logger {
	return logger.With().Str("college", code).Logger()
}

// WithFaculty adds the faculty identity to a logger
func WithFaculty(logger zerolog.Logger, rec model.FacultyRecord) zerolog.Logger {
	return logger.With().
		Str("name", rec.Name).
		Str("person_id", rec.PersonID).
		Logger()
}
