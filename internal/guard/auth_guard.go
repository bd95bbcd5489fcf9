package guard

import (
	"context"
)

// SessionState is the slice of the session store the guards read.
type SessionState interface {
	IsAuthenticated() bool
}

// AuthGuard keeps signed-out users on public pages and signed-in users off
// guest-only pages.
type AuthGuard struct {
	session SessionState
	policy  Policy
}

// NewAuthGuard constructs a new AuthGuard.
func NewAuthGuard(session SessionState, policy Policy) *AuthGuard {
	if session == nil {
		panic("AuthGuard requires a SessionState")
	}
	return &AuthGuard{session: session, policy: policy}
}

func (g *AuthGuard) Name() string { return "auth" }

func (g *AuthGuard) Check(_ context.Context, nav Navigation) Decision {
	authed := g.session.IsAuthenticated()
	switch {
	case !authed && !g.policy.IsPublic(nav.Path):
		return RedirectTo(g.policy.Routes.Entry, "not authenticated")
	case authed && g.policy.IsGuestOnly(nav.Path):
		return RedirectTo(g.policy.Routes.Landing, "already authenticated")
	}
	return Allowed()
}
