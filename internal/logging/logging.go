// Package logging builds the zerolog loggers used across the engine.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rshade/co2e-engine/internal/config"
)

// Standard field names.
const (
	FieldComponent = "component"
	FieldTraceID   = "trace_id"
)

// New returns a logger writing to w in the configured format and level.
// Console output uses RFC3339 timestamps.
func New(cfg config.LoggingConfig, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level: %w", err)
	}

	var out io.Writer
	switch strings.ToLower(cfg.Format) {
	case config.FormatJSON, "":
		out = w
	case config.FormatConsole:
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}

// ComponentLogger returns l tagged with the component name.
func ComponentLogger(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}

// NewTraceID returns a random trace id for correlating one invocation's logs.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID returns l tagged with id, generating one when id is empty.
func WithTraceID(l zerolog.Logger, id string) (zerolog.Logger, string) {
	if id == "" {
		id = NewTraceID()
	}
	return l.With().Str(FieldTraceID, id).Logger(), id
}
