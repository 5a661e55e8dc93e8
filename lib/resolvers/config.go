package resolvers

import (
	"os"
	"strconv"
	"time"

	"github.com/refactorproject/autorebase/lib/utils"
)

// Config holds the AI backend settings. Values come from the environment
// by default and flow down explicitly from the command layer.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

const (
	defaultBaseURL     = "https://api.refactorproject.dev/v1/resolve"
	defaultModel       = "resolver-large"
	defaultTimeout     = 60 * time.Second
	defaultMaxRetries  = 2
	defaultBaseBackoff = time.Second
	defaultMaxBackoff  = 30 * time.Second
)

// LoadConfig reads AUTOREBASE_* variables and fills defaults for the rest.
// An empty APIKey is valid and means the AI backend is not configured.
func LoadConfig() Config {
	return Config{
		APIKey:      os.Getenv("AUTOREBASE_API_KEY"),
		BaseURL:     utils.Coalesce(os.Getenv("AUTOREBASE_API_URL"), defaultBaseURL),
		Model:       utils.Coalesce(os.Getenv("AUTOREBASE_MODEL"), defaultModel),
		Timeout:     envDuration("AUTOREBASE_TIMEOUT", defaultTimeout),
		MaxRetries:  envInt("AUTOREBASE_MAX_RETRIES", defaultMaxRetries),
		BaseBackoff: defaultBaseBackoff,
		MaxBackoff:  defaultMaxBackoff,
	}
}

func envDuration(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}

	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return def
	}
	return i
}
