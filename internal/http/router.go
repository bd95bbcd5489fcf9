package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/mmk-admin-console/config"
	"github.com/target/mmk-admin-console/internal/guard"
	"github.com/target/mmk-admin-console/internal/service"
)

// RouterServices holds the services the console router serves.
type RouterServices struct {
	Session     *service.SessionStore
	Authz       *service.AuthorizationCache
	Health      *service.APIHealth
	Guards      *guard.Chain
	Catalog     *service.Catalog
	Preferences *service.Preferences
	Dashboard   *service.Dashboard
	Routes      config.RoutesConfig
	Logger      *slog.Logger
}

// NewRouter creates and configures the console HTTP router.
//
// Pages (the entry page, /app/... and the API error page) pass through the
// navigation guards first. /auth/... drives the session and /api/... answers
// permission checks, preferences and module mutations for the signed-in user.
func NewRouter(s RouterServices) http.Handler {
	if s.Session == nil || s.Authz == nil || s.Health == nil || s.Guards == nil {
		panic("NewRouter requires Session, Authz, Health and Guards")
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s.Logger = logger.With("component", "http")
	s.Routes.Sanitize()

	mux := http.NewServeMux()
	page := Guarded(s.Guards)
	authed := requireSession(s.Session)

	// Health check (liveness of the console itself)
	mux.HandleFunc("GET /healthz", healthHandler)
	mux.HandleFunc("HEAD /healthz", healthHandler)

	registerAuthRoutes(mux, s)

	// Pages
	pages := &PageHandlers{Services: s}
	mux.Handle("GET "+exactPattern(s.Routes.Entry), page(http.HandlerFunc(pages.Entry)))
	mux.Handle("GET "+s.Routes.APIError, page(http.HandlerFunc(pages.APIError)))
	mux.Handle("POST "+s.Routes.APIError+"/retry", http.HandlerFunc(pages.RetryConnection))
	mux.Handle("GET "+s.Routes.Landing, page(http.HandlerFunc(pages.Dashboard)))
	mux.Handle("GET /app/session", page(http.HandlerFunc(pages.Session)))
	mux.Handle("GET /app/users/roles", page(http.HandlerFunc(pages.Roles)))
	mux.Handle("GET /app/users/roles/permissions", page(http.HandlerFunc(pages.PermissionCatalog)))
	mux.Handle("GET /app/", page(http.HandlerFunc(pages.NotFound)))

	if s.Catalog != nil {
		registerModules(mux, s, page, authed)
		registerContent(mux, s, authed)
	}

	// API
	api := &APIHandlers{Services: s}
	mux.Handle("GET /api/permissions/check", authed(http.HandlerFunc(api.CheckPermission)))
	mux.Handle("POST /api/permissions/check", authed(http.HandlerFunc(api.CheckPermissions)))
	mux.Handle("GET /api/permissions", authed(http.HandlerFunc(api.Permissions)))
	mux.Handle("POST /api/permissions/preload", authed(http.HandlerFunc(api.PreloadPermissions)))
	mux.Handle("GET /api/roles/{id}/permissions", authed(http.HandlerFunc(api.RolePermissions)))
	mux.Handle("GET /api/health", http.HandlerFunc(api.Health))
	if s.Preferences != nil {
		mux.Handle("GET /api/preferences", http.HandlerFunc(api.GetPreferences))
		mux.Handle("PUT /api/preferences", http.HandlerFunc(api.UpdatePreferences))
		mux.Handle("POST /api/preferences/toggle-language", http.HandlerFunc(api.ToggleLanguage))
	}
	if s.Dashboard != nil {
		mux.Handle("POST /api/dashboard", authed(http.HandlerFunc(api.SelectDashboard)))
	}

	return FlashScope()(mux)
}

func registerAuthRoutes(mux *http.ServeMux, s RouterServices) {
	h := &AuthHandlers{Session: s.Session, Catalog: s.Catalog, Logger: s.Logger}
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("POST /auth/forgot-password", h.ForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", h.ResetPassword)
	mux.HandleFunc("GET /auth/check", h.Check)
}

// exactPattern turns a route into a ServeMux pattern matching only itself.
func exactPattern(route string) string {
	if strings.HasSuffix(route, "/") {
		return route + "{$}"
	}
	return route
}
