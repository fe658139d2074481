// Package config holds engine configuration and the audit weight scheme.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds audit engine configuration.
type Config struct {
	MaxWorkers   int
	PhaseTimeout time.Duration

	// Classifier collaborator settings. An empty URL selects the
	// built-in rule-based classifier.
	ClassifierURL     string
	ClassifierTimeout time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RetryBackoffMax   time.Duration
	ClassifierRPS     float64
	ClassifierBurst   int
	CacheSize         int

	// Overlap detector thresholds.
	MergeThreshold         float64
	DifferentiateThreshold float64
	RedirectTrafficRatio   float64
	MaxAdjacentBuckets     int
	MinSharedKeywords      int

	// Scoring thresholds.
	ThinContentWords        int
	MeaningfulTrafficClicks int64

	ProgressBuffer int
	MetricsAddr    string
	LogFile        string
	LogLevel       string
	Verbose        bool
}

// DefaultConfig returns conservative defaults for a mid-sized inventory.
func DefaultConfig() *Config {
	return &Config{
		MaxWorkers:              8,
		PhaseTimeout:            30 * time.Second,
		ClassifierTimeout:       10 * time.Second,
		MaxRetries:              2,
		RetryBackoff:            200 * time.Millisecond,
		RetryBackoffMax:         2 * time.Second,
		ClassifierRPS:           10,
		ClassifierBurst:         5,
		CacheSize:               4096,
		MergeThreshold:          60,
		DifferentiateThreshold:  30,
		RedirectTrafficRatio:    0.1,
		MaxAdjacentBuckets:      2,
		MinSharedKeywords:       2,
		ThinContentWords:        300,
		MeaningfulTrafficClicks: 10,
		ProgressBuffer:          32,
		LogLevel:                "info",
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max workers must be positive")
	}
	if c.PhaseTimeout <= 0 {
		return fmt.Errorf("phase timeout must be positive")
	}
	if c.ClassifierURL != "" {
		parsed, err := url.Parse(c.ClassifierURL)
		if err != nil {
			return fmt.Errorf("invalid classifier URL: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("classifier URL must include a host")
		}
	}
	if c.ClassifierTimeout <= 0 {
		return fmt.Errorf("classifier timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.ClassifierRPS <= 0 {
		return fmt.Errorf("classifier rps must be positive")
	}
	if c.ClassifierBurst <= 0 {
		return fmt.Errorf("classifier burst must be positive")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if c.DifferentiateThreshold <= 0 {
		return fmt.Errorf("differentiate threshold must be positive")
	}
	if c.MergeThreshold <= c.DifferentiateThreshold {
		return fmt.Errorf("merge threshold (%v) must exceed differentiate threshold (%v)", c.MergeThreshold, c.DifferentiateThreshold)
	}
	if c.RedirectTrafficRatio <= 0 || c.RedirectTrafficRatio >= 1 {
		return fmt.Errorf("redirect traffic ratio must be in (0,1)")
	}
	if c.MaxAdjacentBuckets < 0 {
		return fmt.Errorf("max adjacent buckets cannot be negative")
	}
	if c.MinSharedKeywords < 1 {
		return fmt.Errorf("min shared keywords must be at least 1")
	}
	if c.ThinContentWords <= 0 {
		return fmt.Errorf("thin content words must be positive")
	}
	if c.MeaningfulTrafficClicks < 0 {
		return fmt.Errorf("meaningful traffic clicks cannot be negative")
	}
	if c.ProgressBuffer < 0 {
		return fmt.Errorf("progress buffer cannot be negative")
	}
	return nil
}

// Load builds a Config from the environment, reading a .env file first
// when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	var err error

	if cfg.MaxWorkers, err = envInt("AUDIT_MAX_WORKERS", cfg.MaxWorkers); err != nil {
		return nil, err
	}
	if cfg.PhaseTimeout, err = envDuration("AUDIT_PHASE_TIMEOUT", cfg.PhaseTimeout); err != nil {
		return nil, err
	}
	cfg.ClassifierURL = envString("AUDIT_CLASSIFIER_URL", cfg.ClassifierURL)
	if cfg.ClassifierTimeout, err = envDuration("AUDIT_CLASSIFIER_TIMEOUT", cfg.ClassifierTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = envInt("AUDIT_MAX_RETRIES", cfg.MaxRetries); err != nil {
		return nil, err
	}
	if cfg.RetryBackoff, err = envDuration("AUDIT_RETRY_BACKOFF", cfg.RetryBackoff); err != nil {
		return nil, err
	}
	if cfg.RetryBackoffMax, err = envDuration("AUDIT_RETRY_BACKOFF_MAX", cfg.RetryBackoffMax); err != nil {
		return nil, err
	}
	if cfg.MaxAdjacentBuckets, err = envInt("AUDIT_MAX_ADJACENT_BUCKETS", cfg.MaxAdjacentBuckets); err != nil {
		return nil, err
	}
	if cfg.ThinContentWords, err = envInt("AUDIT_THIN_CONTENT_WORDS", cfg.ThinContentWords); err != nil {
		return nil, err
	}
	cfg.MetricsAddr = envString("AUDIT_METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogFile = envString("AUDIT_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = envString("AUDIT_LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration from environment: %w", err)
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
