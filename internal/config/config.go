// Package config loads the environment the service runs under. The
// single required variable is DB_URL; its absence is a fatal
// ConfigError at startup. A .env file is loaded first (if present) so
// local development doesn't need exported shell vars.
package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/soundmark/soundmark/internal/apperr"
)

// Config holds the environment-derived settings for the service.
type Config struct {
	// DBURL is the Postgres connection string backing internal/index.
	DBURL string

	// TempDir is where uploaded/downloaded audio is staged before
	// fingerprinting; it is always cleaned up by the owning job.
	TempDir string

	// Workers is the JobRunner's worker pool size.
	Workers int

	// SampleRate is the decoder's target sample rate.
	SampleRate int
}

const (
	defaultTempDir    = "/tmp/soundmark"
	defaultWorkers    = 4
	defaultSampleRate = 22050
)

// Load reads environment variables (after optionally loading a .env file
// in the working directory) into a Config. DB_URL must be set or Load
// returns a ConfigError.
func Load() (*Config, error) {
	// Ignore a missing .env file; it's a local-development convenience,
	// not a requirement (mirrors tefkah-seek-tune's and
	// Prayush09-MusicRecognition's startup sequence).
	_ = godotenv.Load()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		return nil, apperr.Newf(apperr.ConfigError, "DB_URL environment variable is required")
	}

	cfg := &Config{
		DBURL:      dbURL,
		TempDir:    envOr("SOUNDMARK_TEMP_DIR", defaultTempDir),
		Workers:    defaultWorkers,
		SampleRate: defaultSampleRate,
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
