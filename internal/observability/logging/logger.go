// Package logging configures the process-wide zerolog logger and derives
// contextual loggers for sessions and components.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output io.Writer
}

// Init installs the global logger. Unknown levels fall back to info;
// caller locations are only attached at debug level.
func Init(cfg Config) zerolog.Logger {
	level := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if level <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	return log.Logger
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || name == "" || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// WithSession tags log lines with the session and the client address.
func WithSession(sessionID, remoteAddr string) zerolog.Logger {
	return log.With().
		Str("sessionId", sessionID).
		Str("remoteAddr", remoteAddr).
		Logger()
}

// WithUtterance tags a session logger with the utterance ID.
func WithUtterance(parent zerolog.Logger, utteranceID string) zerolog.Logger {
	return parent.With().Str("utteranceId", utteranceID).Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}
