// Package guard decides whether a console navigation may render, redirecting
// when the backend is down, the session is missing or a permission is lacking.
package guard

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/target/mmk-admin-console/config"
	"github.com/target/mmk-admin-console/internal/ports"
)

// Navigation is one requested page transition.
type Navigation struct {
	Path string
}

// NewNavigation cleans raw (which may carry a query) into a Navigation.
func NewNavigation(raw string) Navigation {
	if u, err := url.Parse(raw); err == nil {
		raw = u.Path
	}
	if raw == "" {
		return Navigation{Path: "/"}
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return Navigation{Path: path.Clean(raw)}
}

// Decision is a guard's verdict. A zero Redirect with Allow false never occurs.
type Decision struct {
	Allow    bool          `json:"allow"`
	Redirect string        `json:"redirect,omitempty"`
	Notice   *ports.Notice `json:"notice,omitempty"`
	// Guard names who decided; Reason is for logs.
	Guard  string `json:"guard,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Allowed lets the navigation through.
func Allowed() Decision {
	return Decision{Allow: true}
}

// RedirectTo sends the navigation to target.
func RedirectTo(target, reason string) Decision {
	return Decision{Redirect: target, Reason: reason}
}

// Guard is one navigation interceptor.
type Guard interface {
	Name() string
	Check(ctx context.Context, nav Navigation) Decision
}

// Policy names the routes every guard agrees on.
type Policy struct {
	Routes config.RoutesConfig
	// Public routes render without a session.
	Public []string
	// GuestOnly routes send signed-in users to the landing page.
	GuestOnly []string
}

// DefaultPolicy makes the entry page public and guest-only, and keeps the
// API error page reachable without a session.
func DefaultPolicy(routes config.RoutesConfig) Policy {
	routes.Sanitize()
	return Policy{
		Routes:    routes,
		Public:    []string{routes.Entry, routes.APIError},
		GuestOnly: []string{routes.Entry},
	}
}

// IsPublic reports whether p renders without a session.
func (p Policy) IsPublic(path string) bool {
	return slices.Contains(p.Public, path)
}

// IsGuestOnly reports whether p is for signed-out users only.
func (p Policy) IsGuestOnly(path string) bool {
	return slices.Contains(p.GuestOnly, path)
}

// ChainOptions groups dependencies for Chain.
type ChainOptions struct {
	Guards    []Guard         // Run in order
	Navigator ports.Navigator // Required: redirect primitive
	Notifier  ports.Notifier  // Optional: decision notices
	Logger    *slog.Logger    // Optional: structured logger
}

// Chain runs guards in order and stops at the first redirect.
type Chain struct {
	guards    []Guard
	navigator ports.Navigator
	notifier  ports.Notifier
	logger    *slog.Logger
}

// NewChain constructs a new Chain.
func NewChain(opts ChainOptions) *Chain {
	if opts.Navigator == nil {
		panic("Chain requires a Navigator")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		guards:    slices.Clone(opts.Guards),
		navigator: opts.Navigator,
		notifier:  opts.Notifier,
		logger:    logger.With("component", "guard"),
	}
}

// Evaluate returns the first redirect any guard asks for, without acting on it.
// A redirect to the requested path itself is treated as allowed.
func (c *Chain) Evaluate(ctx context.Context, nav Navigation) Decision {
	for _, g := range c.guards {
		d := g.Check(ctx, nav)
		if d.Allow || d.Redirect == "" || d.Redirect == nav.Path {
			continue
		}
		d.Guard = g.Name()
		return d
	}
	return Allowed()
}

// Run evaluates nav, then delivers the notice and performs the redirect.
func (c *Chain) Run(ctx context.Context, nav Navigation) Decision {
	d := c.Evaluate(ctx, nav)
	if d.Allow {
		return d
	}

	c.logger.InfoContext(ctx, "navigation redirected",
		"path", nav.Path,
		"redirect", d.Redirect,
		"guard", d.Guard,
		"reason", d.Reason,
	)
	if d.Notice != nil && c.notifier != nil {
		c.notifier.Notify(ctx, *d.Notice)
	}
	if err := c.navigator.NavigateTo(ctx, d.Redirect); err != nil {
		c.logger.WarnContext(ctx, "redirect failed", "redirect", d.Redirect, "error", err)
	}
	return d
}
