package gologger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. DEBUG=1 lowers the level to debug,
// PRETTY=1 switches to the console writer.
func NewLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "1" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("PRETTY") == "1" {
		l = l.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	return l.With().Caller().Logger()
}
