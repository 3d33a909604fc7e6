package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a sub-logger tagged with the given component name.
func New(component string) zerolog.Logger {
	sublogger := log.With().
		Str("component", component).
		Logger()
	return sublogger
}

// Configure applies DEBUG / LOG_LEVEL from the environment.
// Call it again after loading a .env file.
func Configure() {
	zerolog.SetGlobalLevel(levelFromEnv())
}

func init() {
	Configure()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
}

func levelFromEnv() zerolog.Level {
	if _, debug := os.LookupEnv("DEBUG"); debug {
		return zerolog.DebugLevel
	}

	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" {
		if level, err := zerolog.ParseLevel(strings.ToLower(raw)); err == nil {
			return level
		}
	}

	return zerolog.InfoLevel
}
