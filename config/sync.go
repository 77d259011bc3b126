package config

import (
	"strings"
	"time"
)

// SyncConfig contains cloud sync configuration.
//
// The sync engine pushes locally mutated (dirty) rows to a cloud document
// store over HTTP. Endpoint is the base URL of the document API; documents
// are written as PUT {Endpoint}/{collection}/{id}.
type SyncConfig struct {
	// Enabled controls whether sync runs are allowed at all.
	Enabled bool `env:"SYNC_ENABLED" envDefault:"true"`

	// Endpoint is the base URL of the cloud document store API.
	Endpoint string `env:"SYNC_ENDPOINT"`

	// APIToken is sent as a bearer token on document writes.
	APIToken string `env:"SYNC_API_TOKEN"`

	// Interval is how often the scheduler queues a periodic sync run.
	Interval time.Duration `env:"SYNC_INTERVAL" envDefault:"15m"`

	// BatchSize is the number of dirty rows fetched per table query.
	BatchSize int `env:"SYNC_BATCH_SIZE" envDefault:"100"`

	// RunTimeout bounds a single sync run end to end.
	RunTimeout time.Duration `env:"SYNC_RUN_TIMEOUT" envDefault:"10m"`
}

// Sanitize applies guardrails to sync configuration values.
func (s *SyncConfig) Sanitize() {
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	if s.Endpoint == "" {
		s.Enabled = false
	}
	if s.Interval < time.Minute {
		s.Interval = time.Minute
	}
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
	if s.RunTimeout <= 0 {
		s.RunTimeout = 10 * time.Minute
	}
}
