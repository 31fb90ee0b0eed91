package log

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a console logger tagged with the given component name.
func NewLogger(component string) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}

	return zerolog.New(output).With().Timestamp().Str("component", component).Logger()
}

// SetLevel sets the global log level. Unknown levels fall back to info.
func SetLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)
	return lvl
}
