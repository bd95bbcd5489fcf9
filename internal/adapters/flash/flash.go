// Package flash implements the Navigator and Notifier ports on top of a
// per-operation Scope carried in the context. The HTTP console turns a
// scope into a redirect plus notice header; the CLI prints it.
package flash

import (
	"context"
	"log/slog"
	"sync"

	"github.com/target/mmk-admin-console/internal/ports"
)

// scopeKey is an unexported context key type to avoid collisions across packages.
type scopeKey struct{}

// Scope collects the outcome of one operation: the last navigation target
// and every notice raised while it ran.
type Scope struct {
	mu       sync.Mutex
	redirect string
	notices  []ports.Notice
}

// WithScope returns a child context carrying a fresh Scope.
func WithScope(ctx context.Context) (context.Context, *Scope) {
	s := &Scope{}
	return context.WithValue(ctx, scopeKey{}, s), s
}

// FromContext returns the Scope carried by ctx, if any.
func FromContext(ctx context.Context) (*Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(*Scope)
	return s, ok && s != nil
}

// Redirect returns the last navigation target, or "" when nothing navigated.
func (s *Scope) Redirect() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.redirect
}

// Notices returns a copy of the notices raised so far.
func (s *Scope) Notices() []ports.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.Notice, len(s.notices))
	copy(out, s.notices)
	return out
}

func (s *Scope) setRedirect(path string) {
	s.mu.Lock()
	s.redirect = path
	s.mu.Unlock()
}

func (s *Scope) addNotice(n ports.Notice) {
	s.mu.Lock()
	s.notices = append(s.notices, n)
	s.mu.Unlock()
}

// Navigator records navigation targets into the context's Scope.
type Navigator struct {
	logger *slog.Logger
}

// NewNavigator creates a Navigator. Navigations without a scope are logged.
func NewNavigator(logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Navigator{logger: logger}
}

// NavigateTo implements ports.Navigator.
func (n *Navigator) NavigateTo(ctx context.Context, path string) error {
	if s, ok := FromContext(ctx); ok {
		s.setRedirect(path)
		return nil
	}
	n.logger.DebugContext(ctx, "navigation outside of a request scope", "path", path)
	return nil
}

// Notifier records notices into the context's Scope.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier creates a Notifier. Notices without a scope are logged.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Notify implements ports.Notifier.
func (n *Notifier) Notify(ctx context.Context, notice ports.Notice) {
	if s, ok := FromContext(ctx); ok {
		s.addNotice(notice)
		return
	}
	n.logger.InfoContext(ctx, "notice",
		slog.String("level", string(notice.Level)),
		slog.String("title", notice.Title),
		slog.String("message", notice.Message))
}
