package config

import (
	"reflect"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:  "single service - http",
			input: "http",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP: true,
			},
		},
		{
			name:  "single service - scheduler",
			input: "scheduler",
			expected: map[ServiceMode]bool{
				ServiceModeScheduler: true,
			},
		},
		{
			name:  "multiple services",
			input: "http,syncer",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:   true,
				ServiceModeSyncer: true,
			},
		},
		{
			name:  "all services",
			input: "http,scheduler,syncer",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:      true,
				ServiceModeScheduler: true,
				ServiceModeSyncer:    true,
			},
		},
		{
			name:  "whitespace is tolerated",
			input: " http , syncer ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:   true,
				ServiceModeSyncer: true,
			},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "unknown service",
			input:       "http,reaper",
			expectError: true,
		},
		{
			name:        "only commas",
			input:       ",,",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServices(tt.input)
			if tt.expectError {
				if err == nil {
					t.Fatalf("ParseServices(%q) expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseServices(%q) unexpected error: %v", tt.input, err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Fatalf("ParseServices(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestAppConfigDefaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse defaults: %v", err)
	}
	cfg.Sanitize()

	if cfg.Services != "http" {
		t.Errorf("Services default = %q, want %q", cfg.Services, "http")
	}
	if cfg.Postgres.Port != 5432 {
		t.Errorf("Postgres.Port default = %d, want 5432", cfg.Postgres.Port)
	}
	if cfg.Sync.BatchSize != 100 {
		t.Errorf("Sync.BatchSize default = %d, want 100", cfg.Sync.BatchSize)
	}
	// Empty endpoint disables sync regardless of SYNC_ENABLED.
	if cfg.Sync.Enabled {
		t.Error("Sync.Enabled should be false when SYNC_ENDPOINT is empty")
	}
	if cfg.Auth.Mode != AuthModeMock {
		t.Errorf("Auth.Mode default = %q, want mock", cfg.Auth.Mode)
	}
}

func TestSyncConfigSanitize(t *testing.T) {
	cfg := SyncConfig{
		Enabled:  true,
		Endpoint: "  https://sync.example.com/v1  ",
		Interval: time.Second,
	}
	cfg.Sanitize()

	if cfg.Endpoint != "https://sync.example.com/v1" {
		t.Errorf("Endpoint not trimmed: %q", cfg.Endpoint)
	}
	if cfg.Interval != time.Minute {
		t.Errorf("Interval floor = %v, want 1m", cfg.Interval)
	}
	if !cfg.Enabled {
		t.Error("Enabled should survive sanitize when endpoint is set")
	}
	if cfg.BatchSize != 1 {
		t.Errorf("BatchSize floor = %d, want 1", cfg.BatchSize)
	}
}

func TestAuthModeUnmarshalText(t *testing.T) {
	var m AuthMode
	if err := m.UnmarshalText([]byte("OAuth")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != AuthModeOAuth {
		t.Errorf("mode = %q, want oauth", m)
	}
	if err := m.UnmarshalText([]byte("saml")); err == nil {
		t.Error("expected error for invalid mode")
	}
}
