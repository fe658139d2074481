package config

import (
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero workers",
			mutate: func(cfg *Config) {
				cfg.MaxWorkers = 0
			},
			wantErr: "max workers",
		},
		{
			name: "negative phase timeout",
			mutate: func(cfg *Config) {
				cfg.PhaseTimeout = -1 * time.Second
			},
			wantErr: "phase timeout",
		},
		{
			name: "classifier url without host",
			mutate: func(cfg *Config) {
				cfg.ClassifierURL = "http://"
			},
			wantErr: "classifier URL",
		},
		{
			name: "backoff exceeds max",
			mutate: func(cfg *Config) {
				cfg.RetryBackoff = 5 * time.Second
				cfg.RetryBackoffMax = 1 * time.Second
			},
			wantErr: "retry backoff",
		},
		{
			name: "merge below differentiate",
			mutate: func(cfg *Config) {
				cfg.MergeThreshold = 20
			},
			wantErr: "merge threshold",
		},
		{
			name: "redirect ratio out of range",
			mutate: func(cfg *Config) {
				cfg.RedirectTrafficRatio = 1.5
			},
			wantErr: "redirect traffic ratio",
		},
		{
			name: "zero thin content words",
			mutate: func(cfg *Config) {
				cfg.ThinContentWords = 0
			},
			wantErr: "thin content words",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("AUDIT_MAX_WORKERS", "3")
	t.Setenv("AUDIT_PHASE_TIMEOUT", "45s")
	t.Setenv("AUDIT_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MaxWorkers != 3 {
		t.Fatalf("max workers = %d, want 3", cfg.MaxWorkers)
	}
	if cfg.PhaseTimeout != 45*time.Second {
		t.Fatalf("phase timeout = %v, want 45s", cfg.PhaseTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.LogLevel)
	}
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("AUDIT_MAX_WORKERS", "not-a-number")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "AUDIT_MAX_WORKERS") {
		t.Fatalf("expected AUDIT_MAX_WORKERS error, got %v", err)
	}
}
