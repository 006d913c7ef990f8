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
	// ServiceModeHTTP runs the HTTP API.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeVerifier runs the background verifier pool.
	ServiceModeVerifier ServiceMode = "verifier"
	// ServiceModeReaper runs stale claim recovery and purging.
	ServiceModeReaper ServiceMode = "reaper"
	// ServiceModeRedoEscalator runs the redo escalation loop.
	ServiceModeRedoEscalator ServiceMode = "redo-escalator"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeVerifier,
		ServiceModeReaper,
		ServiceModeRedoEscalator,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if strings.TrimSpace(servicesStr) == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeVerifier, ServiceModeReaper, ServiceModeRedoEscalator:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, verifier, reaper, redo-escalator)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ReaperConfig contains reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`

	// PurgeMaxAge is how long terminal jobs stay in the read model before they
	// are purged. Zero disables purging.
	PurgeMaxAge time.Duration `env:"REAPER_PURGE_MAX_AGE" envDefault:"0"`

	// Actor is recorded on unclaim and purge events written by the reaper.
	Actor string `env:"REAPER_ACTOR" envDefault:"reaper"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 5*time.Second {
		r.Interval = 5 * time.Second
	}
	if r.PurgeMaxAge < 0 {
		r.PurgeMaxAge = 0
	}
	if r.PurgeMaxAge > 0 && r.PurgeMaxAge < time.Hour {
		r.PurgeMaxAge = time.Hour
	}
	if r.Actor = strings.TrimSpace(r.Actor); r.Actor == "" {
		r.Actor = "reaper"
	}
}
