package config

import (
	"fmt"
	"strings"
	"time"
)

// ResilienceConfig holds the circuit breaker guarding the remote user-data
// service and the health check cadence.
type ResilienceConfig struct {
	CBFailureThreshold int           `yaml:"cb_failure_threshold"`
	CBTimeout          time.Duration `yaml:"cb_timeout"`
	CBHalfOpenRequests int           `yaml:"cb_half_open_requests"`

	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
}

// DefaultResilienceConfig returns a ResilienceConfig with sensible defaults
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		CBFailureThreshold:  5,
		CBTimeout:           30 * time.Second,
		CBHalfOpenRequests:  1,
		HealthCheckInterval: 30 * time.Second,
	}
}

func (c *ResilienceConfig) applyEnv(p *envParser) {
	p.parseInt("CB_FAILURE_THRESHOLD", &c.CBFailureThreshold)
	p.parseDuration("CB_TIMEOUT", &c.CBTimeout)
	p.parseInt("CB_HALF_OPEN_REQUESTS", &c.CBHalfOpenRequests)
	p.parseDuration("HEALTH_CHECK_INTERVAL", &c.HealthCheckInterval)
}

// Validate performs additional validation on the configuration
func (c *ResilienceConfig) Validate() error {
	var errors []string

	if c.CBFailureThreshold <= 0 {
		errors = append(errors, "CBFailureThreshold must be positive")
	}
	if c.CBTimeout <= 0 {
		errors = append(errors, "CBTimeout must be positive")
	}
	if c.CBHalfOpenRequests <= 0 {
		errors = append(errors, "CBHalfOpenRequests must be positive")
	}
	if c.HealthCheckInterval <= 0 {
		errors = append(errors, "HealthCheckInterval must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}
