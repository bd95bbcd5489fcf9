package config

import "time"

// AuthzConfig tunes the authorization cache.
type AuthzConfig struct {
	// FetchRetries is the total number of attempts for the user permission
	// fetch when the backend answers 401.
	FetchRetries int `env:"AUTHZ_FETCH_RETRIES" envDefault:"3"`

	// FetchBackoff is the fixed delay between those attempts.
	FetchBackoff time.Duration `env:"AUTHZ_FETCH_BACKOFF" envDefault:"200ms"`

	// PreloadBatch is the number of scoped checks issued concurrently while preloading.
	PreloadBatch int `env:"AUTHZ_PRELOAD_BATCH" envDefault:"5"`

	// AwaitInit makes login and session restore wait for the permission
	// fetch before returning.
	AwaitInit bool `env:"AUTHZ_AWAIT_INIT" envDefault:"true"`
}

// Sanitize applies guardrails to authorization configuration values.
func (a *AuthzConfig) Sanitize() {
	if a.FetchRetries < 1 {
		a.FetchRetries = 1
	}
	if a.FetchBackoff < 0 {
		a.FetchBackoff = 0
	}
	if a.PreloadBatch < 1 {
		a.PreloadBatch = 1
	}
}
