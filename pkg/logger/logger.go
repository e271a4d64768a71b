package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. It is usable before Init and logs at info level.
var Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures Logger for the given level name ("debug", "info", "warn", ...).
// Unknown levels fall back to info.
func Init(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	Logger = zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
