// Package logger configures the global zerolog logger from command line options.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a go-flags option group.
type Logger struct {
	Level  string `long:"log-level"  env:"LOG_LEVEL"  description:"Log level" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	Format string `long:"log-format" env:"LOG_FORMAT" description:"Log format" choice:"console" choice:"json" default:"console"`
	File   string `long:"log-file"   env:"LOG_FILE"   description:"Write logs to file instead of stderr"`
}

// Setup installs the global logger.
func (l Logger) Setup() {
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil || l.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if l.File != "" {
		f, err := os.OpenFile(l.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Error().Err(err).Str("path", l.File).Msg("Failed to open log file, using stderr")
		} else {
			out = f
		}
	}

	log.Logger = New(out, l.Format)

	if err != nil && l.Level != "" {
		log.Warn().Str("level", l.Level).Msg("Unknown log level, using info")
	}
}

// New builds a logger writing to out in the given format.
func New(out io.Writer, format string) zerolog.Logger {
	if format == "json" {
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime, NoColor: out != os.Stderr}).
		With().Timestamp().Logger()
}
