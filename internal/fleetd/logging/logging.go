// Package logging configures zerolog for the fleet controller processes.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process. Format "console" writes
// human-readable lines, anything else writes JSON.
func Setup(level, format string) zerolog.Logger {
	return SetupWithWriter(level, format, os.Stdout)
}

// SetupWithWriter configures zerolog to write to w.
func SetupWithWriter(level, format string, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	writer := w
	if format == "console" {
		writer = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
	log.Logger = logger
	return logger
}
