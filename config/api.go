package config

import (
	"strings"
	"time"
)

// APIConfig contains the backend REST API client configuration.
type APIConfig struct {
	// BaseURL is the root of the backend API (e.g., "https://api.example.com/v1").
	BaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`

	// Key is the static API key sent on every request.
	Key string `env:"API_KEY" envDefault:""`

	// KeyHeader is the header carrying Key.
	KeyHeader string `env:"API_KEY_HEADER" envDefault:"X-API-Key"`

	// Timeout bounds every outbound request.
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to API configuration values.
func (a *APIConfig) Sanitize() {
	a.BaseURL = strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if strings.TrimSpace(a.KeyHeader) == "" {
		a.KeyHeader = "X-API-Key"
	}
	if a.Timeout <= 0 {
		a.Timeout = 10 * time.Second
	}
}
