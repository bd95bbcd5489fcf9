package guard

import (
	"context"
	"strings"

	"github.com/target/mmk-admin-console/internal/service"
)

// HealthChecker reports and refreshes backend reachability.
type HealthChecker interface {
	IsHealthy() bool
	Check(ctx context.Context, silent bool) service.HealthStatus
}

var _ HealthChecker = (*service.APIHealth)(nil)

// APIHealthGuardOptions groups dependencies for APIHealthGuard.
type APIHealthGuardOptions struct {
	Health HealthChecker // Required: reachability state
	Policy Policy        // Route names
	// Skip lists path prefixes that are never checked. The error page is
	// always skipped.
	Skip []string
}

// APIHealthGuard sends navigations to the API error page while the backend
// is unreachable. Pages under /app/ probe before rendering.
type APIHealthGuard struct {
	health HealthChecker
	policy Policy
	skip   []string
}

// DefaultHealthSkip are the prefixes exempt from health checks.
var DefaultHealthSkip = []string{"/auth/login", "/auth/register", "/static", "/assets"}

// NewAPIHealthGuard constructs a new APIHealthGuard.
func NewAPIHealthGuard(opts APIHealthGuardOptions) *APIHealthGuard {
	if opts.Health == nil {
		panic("APIHealthGuard requires a HealthChecker")
	}
	skip := opts.Skip
	if skip == nil {
		skip = DefaultHealthSkip
	}
	skip = append([]string{opts.Policy.Routes.APIError}, skip...)
	return &APIHealthGuard{health: opts.Health, policy: opts.Policy, skip: skip}
}

func (g *APIHealthGuard) Name() string { return "api_health" }

func (g *APIHealthGuard) Check(ctx context.Context, nav Navigation) Decision {
	for _, prefix := range g.skip {
		if prefix != "" && strings.HasPrefix(nav.Path, prefix) {
			return Allowed()
		}
	}

	errPage := g.policy.Routes.APIError
	if strings.HasPrefix(nav.Path, "/app/") {
		if status := g.health.Check(ctx, true); !status.IsHealthy {
			return RedirectTo(errPage, "health probe failed: "+status.LastError)
		}
	}
	if !g.health.IsHealthy() && nav.Path != errPage {
		return RedirectTo(errPage, "api known unhealthy")
	}
	return Allowed()
}
