package config

import (
	"strings"
	"time"
)

// HealthConfig controls the backend reachability monitor.
type HealthConfig struct {
	Path       string        `env:"HEALTH_PATH"        envDefault:"/health"`
	Timeout    time.Duration `env:"HEALTH_TIMEOUT"     envDefault:"5s"`
	Interval   time.Duration `env:"HEALTH_INTERVAL"    envDefault:"30s"`
	RetryDelay time.Duration `env:"HEALTH_RETRY_DELAY" envDefault:"5s"`
	MaxRetries int           `env:"HEALTH_MAX_RETRIES" envDefault:"3"`
}

// Sanitize applies guardrails to health configuration values.
func (h *HealthConfig) Sanitize() {
	if !strings.HasPrefix(h.Path, "/") {
		h.Path = "/" + h.Path
	}
	if h.Timeout <= 0 {
		h.Timeout = 5 * time.Second
	}
	// A sub-second interval would hammer the backend.
	if h.Interval < time.Second {
		h.Interval = time.Second
	}
	if h.RetryDelay < 0 {
		h.RetryDelay = 0
	}
	if h.MaxRetries < 1 {
		h.MaxRetries = 1
	}
}
