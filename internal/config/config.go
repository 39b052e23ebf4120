package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultDataDir     = "./data"
	DefaultKEGGBaseURL = "https://rest.kegg.jp"
)

// Config is resolved once in main from .env and the process environment.
type Config struct {
	DataDir  string
	LogLevel string

	KEGGBaseURL     string
	KEGGTimeout     time.Duration
	KEGGRetries     int
	KEGGBackoff     time.Duration
	KEGGCacheMaxAge time.Duration
}

func Default() *Config {
	return &Config{
		DataDir:         DefaultDataDir,
		LogLevel:        "info",
		KEGGBaseURL:     DefaultKEGGBaseURL,
		KEGGTimeout:     30 * time.Second,
		KEGGRetries:     3,
		KEGGBackoff:     time.Second,
		KEGGCacheMaxAge: 30 * 24 * time.Hour,
	}
}

// LoadDotenv loads .env if present. A missing file is not an error; the returned
// bool says whether one was found.
func LoadDotenv(paths ...string) bool {
	return godotenv.Load(paths...) == nil
}

// FromEnv overlays environment variables on the defaults.
func FromEnv() (*Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if v, ok := lookup("GGENRICH_DATA"); ok && v != "" {
		cfg.DataDir = v
	}
	if v, ok := lookup("GGENRICH_LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("KEGG_BASE_URL"); ok && v != "" {
		cfg.KEGGBaseURL = v
	}

	var err error
	if cfg.KEGGTimeout, err = durationVar(lookup, "KEGG_TIMEOUT", cfg.KEGGTimeout); err != nil {
		return nil, err
	}
	if cfg.KEGGBackoff, err = durationVar(lookup, "KEGG_BACKOFF", cfg.KEGGBackoff); err != nil {
		return nil, err
	}
	if cfg.KEGGCacheMaxAge, err = durationVar(lookup, "KEGG_CACHE_MAX_AGE", cfg.KEGGCacheMaxAge); err != nil {
		return nil, err
	}
	if v, ok := lookup("KEGG_RETRIES"); ok && v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil || n < 0 {
			return nil, fmt.Errorf("KEGG_RETRIES: expected a non-negative integer, got %q", v)
		}
		cfg.KEGGRetries = n
	}

	return cfg, nil
}

func durationVar(lookup func(string) (string, bool), key string, def time.Duration) (time.Duration, error) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: expected a duration such as 30s, got %q", key, v)
	}
	return d, nil
}

// ModuleCachePath is where the KEGG definition cache lives.
func (c *Config) ModuleCachePath() string {
	return filepath.Join(c.DataDir, "db", "kegg_modules.db")
}
