package config

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultHTTPPort      = "5001"
	defaultBlastBaseURL  = "https://blast.ncbi.nlm.nih.gov"
	defaultBlastDatabase = "nt"
	defaultPollInterval  = 10 * time.Second
	defaultDeadline      = 30 * time.Minute
	defaultMaxUpload     = 2 * 1024 * 1024 // 2 MB max upload
	defaultTemplatesGlob = "web/templates/*.html"
)

// Config carries all process-wide settings. It is built once in main and
// passed into the server bootstrap; nothing reads the environment after that.
type Config struct {
	HTTPPort        string
	BlastBaseURL    string
	BlastDatabase   string
	PollInterval    time.Duration
	RequestDeadline time.Duration
	MaxUploadBytes  int64
	TemplatesGlob   string
}

// FromEnv populates a Config from environment variables, falling back to
// defaults for anything unset or unparsable.
func FromEnv() *Config {
	cfg := &Config{
		HTTPPort:        getenv("HTTP_PORT", defaultHTTPPort),
		BlastBaseURL:    getenv("BLAST_BASE_URL", defaultBlastBaseURL),
		BlastDatabase:   getenv("BLAST_DATABASE", defaultBlastDatabase),
		PollInterval:    getDuration("BLAST_POLL_INTERVAL", defaultPollInterval),
		RequestDeadline: getDuration("BLAST_DEADLINE", defaultDeadline),
		MaxUploadBytes:  getInt64("MAX_UPLOAD_BYTES", defaultMaxUpload),
		TemplatesGlob:   getenv("TEMPLATES_GLOB", defaultTemplatesGlob),
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
