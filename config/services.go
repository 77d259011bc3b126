package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeScheduler runs the periodic task scheduler.
	ServiceModeScheduler ServiceMode = "scheduler"
	// ServiceModeSyncer runs the cloud sync runner.
	ServiceModeSyncer ServiceMode = "syncer"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeScheduler,
		ServiceModeSyncer,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeScheduler, ServiceModeSyncer:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, scheduler, syncer)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// SchedulerConfig contains scheduler service configuration.
type SchedulerConfig struct {
	// Interval is the scheduler tick interval.
	Interval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"5s"`

	// BatchSize is the maximum number of due tasks to claim per tick.
	BatchSize int `env:"SCHEDULER_BATCH_SIZE" envDefault:"10"`
}

// Sanitize applies guardrails to scheduler configuration values.
func (s *SchedulerConfig) Sanitize() {
	if s.Interval < time.Second {
		s.Interval = time.Second
	}
	if s.BatchSize < 1 {
		s.BatchSize = 1
	}
}

// CatalogConfig contains car catalog configuration.
type CatalogConfig struct {
	// Dir is the directory holding generated catalog files
	// (brands_only.v1.json, brand_manifest.v1.json, brands/*.models.v1.json).
	Dir string `env:"CATALOG_DIR" envDefault:"catalog"`

	// CacheTTL is the TTL for catalog responses in the Redis cache.
	CacheTTL time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"1h"`
}
