package guard

import (
	"context"
	"log/slog"

	domainauth "github.com/target/mmk-admin-console/internal/domain/auth"
	"github.com/target/mmk-admin-console/internal/ports"
)

// PrincipalSession adds the principal to SessionState.
type PrincipalSession interface {
	SessionState
	Principal() (domainauth.Principal, bool)
}

// Authorizer is the slice of the authorization cache the guard needs.
type Authorizer interface {
	EnsureInitialized(ctx context.Context, p domainauth.Principal) error
	HasPermission(resource, action string) bool
}

// PermissionGuardOptions groups dependencies for PermissionGuard.
type PermissionGuardOptions struct {
	Session PrincipalSession // Required: current session
	Authz   Authorizer       // Required: permission set
	Table   *RouteTable      // Optional: defaults to DefaultRouteTable
	Policy  Policy           // Route names
	Logger  *slog.Logger     // Optional: structured logger
}

// PermissionGuard blocks pages whose mapped permission the user lacks.
// Pages missing from the route table are allowed.
type PermissionGuard struct {
	session PrincipalSession
	authz   Authorizer
	table   *RouteTable
	policy  Policy
	logger  *slog.Logger
}

// NewPermissionGuard constructs a new PermissionGuard.
func NewPermissionGuard(opts PermissionGuardOptions) *PermissionGuard {
	if opts.Session == nil || opts.Authz == nil {
		panic("PermissionGuard requires Session and Authz")
	}
	table := opts.Table
	if table == nil {
		table = DefaultRouteTable()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionGuard{
		session: opts.Session,
		authz:   opts.Authz,
		table:   table,
		policy:  opts.Policy,
		logger:  logger.With("component", "permission_guard"),
	}
}

func (g *PermissionGuard) Name() string { return "permission" }

// AccessDeniedNotice is shown when a page's permission is missing.
func AccessDeniedNotice(req Requirement) *ports.Notice {
	return &ports.Notice{
		Level:   ports.NoticeError,
		Title:   "Access Denied",
		Message: "You don't have permission to access this page. Required: " + req.Key(),
	}
}

func (g *PermissionGuard) Check(ctx context.Context, nav Navigation) Decision {
	if g.policy.IsPublic(nav.Path) || !g.session.IsAuthenticated() {
		return Allowed()
	}
	req, ok := g.table.Lookup(nav.Path)
	if !ok {
		return Allowed()
	}

	landing := g.policy.Routes.Landing
	p, ok := g.session.Principal()
	if !ok {
		return RedirectTo(landing, "no principal")
	}
	if err := g.authz.EnsureInitialized(ctx, p); err != nil {
		g.logger.WarnContext(ctx, "permission check failed", "path", nav.Path, "error", err)
		return RedirectTo(landing, "permission check failed")
	}
	if !g.authz.HasPermission(req.Resource, req.Action) {
		d := RedirectTo(landing, "missing "+req.Key())
		d.Notice = AccessDeniedNotice(req)
		return d
	}
	return Allowed()
}
