package config

import "strings"

// RoutesConfig names the well-known console routes used by guards and redirects.
type RoutesConfig struct {
	// Entry is the public entry page; also the only guest-only route.
	Entry string `env:"ROUTE_ENTRY" envDefault:"/"`

	// Landing is the authenticated landing page.
	Landing string `env:"ROUTE_LANDING" envDefault:"/app/dashboard"`

	// APIError is the "API unreachable" page.
	APIError string `env:"ROUTE_API_ERROR" envDefault:"/error/api-connection"`
}

// Sanitize applies guardrails to route configuration values.
func (r *RoutesConfig) Sanitize() {
	r.Entry = normalizeRoute(r.Entry, "/")
	r.Landing = normalizeRoute(r.Landing, "/app/dashboard")
	r.APIError = normalizeRoute(r.APIError, "/error/api-connection")
}

func normalizeRoute(v, fallback string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback
	}
	if !strings.HasPrefix(v, "/") {
		v = "/" + v
	}
	return v
}
