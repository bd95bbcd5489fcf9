package httpx

import (
	"net/http"

	domainauth "github.com/target/mmk-admin-console/internal/domain/auth"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/service"
)

// PageHandlers render the console pages. Every page has already passed
// the navigation guards when a handler runs.
type PageHandlers struct {
	Services RouterServices
}

type entryPage struct {
	Page          string `json:"page"`
	Authenticated bool   `json:"authenticated"`
}

// Entry is the public sign-in page.
func (h *PageHandlers) Entry(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, entryPage{Page: "entry", Authenticated: h.Services.Session.IsAuthenticated()})
}

type apiErrorPage struct {
	Page    string               `json:"page"`
	Message string               `json:"message"`
	Health  service.HealthStatus `json:"health"`
}

// APIError is the "backend unreachable" page.
func (h *PageHandlers) APIError(w http.ResponseWriter, r *http.Request) {
	st := h.Services.Health.Status()
	msg := st.LastError
	if msg == "" && !st.IsHealthy {
		msg = "API communication error"
	}
	WriteJSON(w, http.StatusOK, apiErrorPage{Page: "api-error", Message: msg, Health: st})
}

type retryResponse struct {
	Healthy  bool                 `json:"healthy"`
	Redirect string               `json:"redirect,omitempty"`
	Health   service.HealthStatus `json:"health"`
}

// RetryConnection probes the backend again from the error page. Once it is
// healthy the operator is sent back into the console.
func (h *PageHandlers) RetryConnection(w http.ResponseWriter, r *http.Request) {
	healthy, err := h.Services.Health.RetryConnection(r.Context())
	if err != nil {
		writeAppError(w, apperrors.Wrap(err, apperrors.ErrCodeUnknown, "Retry cancelled"))
		return
	}
	resp := retryResponse{Healthy: healthy, Health: h.Services.Health.Status()}
	if healthy {
		resp.Redirect = h.Services.Routes.Entry
		if h.Services.Session.IsAuthenticated() {
			resp.Redirect = h.Services.Routes.Landing
		}
		w.Header().Set(HeaderRedirect, resp.Redirect)
	}
	WriteJSON(w, http.StatusOK, resp)
}

type dashboardPage struct {
	Title       string                     `json:"title"`
	Dashboard   string                     `json:"dashboard"`
	Role        string                     `json:"role"`
	IsAdminRole bool                       `json:"isAdminRole"`
	User        *domainauth.User           `json:"user,omitempty"`
	Navigation  []service.ModuleNavigation `json:"navigation"`
	Health      service.HealthStatus       `json:"health"`
}

// Dashboard is the landing page: the role dashboard plus the sidebar the
// user's permissions allow.
func (h *PageHandlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	s := h.Services
	page := dashboardPage{
		Navigation: service.NavigationItems(s.Authz.HasPermission),
		Health:     s.Health.Status(),
	}
	if u, ok := s.Session.User(); ok {
		page.User = &u
	}
	if s.Dashboard != nil {
		page.Dashboard = s.Dashboard.Initialize(r.Context())
		page.Title = s.Dashboard.Title()
		page.Role = s.Dashboard.RoleName()
		page.IsAdminRole = s.Dashboard.IsAdminRole()
	}
	if page.Navigation == nil {
		page.Navigation = []service.ModuleNavigation{}
	}
	WriteJSON(w, http.StatusOK, page)
}

type capabilities struct {
	IsAdmin             bool `json:"isAdmin"`
	CanManage           bool `json:"canManage"`
	CanAccessFinancials bool `json:"canAccessFinancials"`
	CanAccessTechnical  bool `json:"canAccessTechnical"`
}

type sessionPage struct {
	Authenticated bool             `json:"authenticated"`
	User          *domainauth.User `json:"user,omitempty"`
	UserName      string           `json:"userName"`
	UserEmail     string           `json:"userEmail,omitempty"`
	RoleID        *int64           `json:"roleId,omitempty"`
	Capabilities  capabilities     `json:"capabilities"`
	Permissions   []string         `json:"permissions"`
}

// Session shows who is signed in and what they may do. The token is never exposed.
func (h *PageHandlers) Session(w http.ResponseWriter, r *http.Request) {
	s := h.Services
	sess := s.Session.Session()
	page := sessionPage{
		Authenticated: sess.IsAuthenticated,
		User:          sess.User,
		UserName:      s.Session.UserName(),
		UserEmail:     s.Session.UserEmail(),
		RoleID:        sess.RoleID,
		Capabilities: capabilities{
			IsAdmin:             s.Session.IsAdmin(),
			CanManage:           s.Session.CanManage(),
			CanAccessFinancials: s.Session.CanAccessFinancials(),
			CanAccessTechnical:  s.Session.CanAccessTechnical(),
		},
		Permissions: s.Authz.Permissions(),
	}
	if page.Permissions == nil {
		page.Permissions = []string{}
	}
	WriteJSON(w, http.StatusOK, page)
}

// Roles lists the roles known to the authorization cache.
func (h *PageHandlers) Roles(w http.ResponseWriter, r *http.Request) {
	roles := h.Services.Authz.Roles()
	if len(roles) == 0 {
		fetched, err := h.Services.Authz.FetchRoles(r.Context())
		if err != nil {
			writeAppError(w, err)
			return
		}
		roles = fetched
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"roles":   roles,
		"options": h.Services.Authz.RoleOptions(),
	})
}

// PermissionCatalog lists every permission the backend knows.
func (h *PageHandlers) PermissionCatalog(w http.ResponseWriter, r *http.Request) {
	perms, err := h.Services.Authz.FetchPermissions(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if resource := r.URL.Query().Get("resource_type"); resource != "" {
		perms = h.Services.Authz.PermissionsByResource(resource)
	}
	WriteJSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

// NotFound answers console paths no page is registered for.
func (h *PageHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	writeAppError(w, apperrors.NotFoundf("Page %s not found", r.URL.Path))
}
