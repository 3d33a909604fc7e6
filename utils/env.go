package utils

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/rakshith2001/reverse-search/logger"
)

var log = logger.New("utils")

// LoadEnv loads environment variables from a .env file.
// Variables that are already set in the process environment win.
func LoadEnv(filename string) error {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		log.Debug().Str("file", filename).Msg("No env file found, using system environment variables only")
		return nil
	}

	if err := godotenv.Load(filename); err != nil {
		return fmt.Errorf("error loading %s file: %w", filename, err)
	}

	log.Info().Str("file", filename).Msg("Loaded environment variables")
	return nil
}

// LoadEnvWithFallback tries the usual .env locations and loads the first one present.
// Finding none is not an error; it returns the last load error only when
// every file present failed to load.
func LoadEnvWithFallback() error {
	locations := []string{
		".env",
		".env.local",
		"config/.env",
	}

	var loadErr error
	for _, location := range locations {
		if _, err := os.Stat(location); err != nil {
			continue
		}
		if err := LoadEnv(location); err != nil {
			log.Warn().Err(err).Str("file", location).Msg("Could not load env file")
			loadErr = err
			continue
		}
		return nil
	}

	if loadErr == nil {
		log.Debug().Msg("No .env files found in standard locations, using system environment only")
	}
	return loadErr
}

// MaskSecret shortens an API key for status output.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) > 8 {
		return secret[:4] + "..." + secret[len(secret)-4:]
	}
	return "***"
}
