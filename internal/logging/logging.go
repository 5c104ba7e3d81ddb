// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a console-friendly zerolog logger. debug raises the level to
// zerolog.DebugLevel; otherwise InfoLevel.
func New(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
