package httpx

import (
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/service"
)

// APIHandlers answer the console's JSON API.
type APIHandlers struct {
	Services RouterServices
}

type permissionCheck struct {
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	ResourceID string `json:"resourceId,omitempty"`
}

type permissionAnswer struct {
	permissionCheck
	Allowed bool `json:"allowed"`
}

// CheckPermission answers one question. Without resource_id it is answered
// from the cached permission set; with one the backend is asked (and the
// answer cached).
func (h *APIHandlers) CheckPermission(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	check := permissionCheck{
		Resource:   strings.TrimSpace(q.Get("resource")),
		Action:     strings.TrimSpace(q.Get("action")),
		ResourceID: strings.TrimSpace(q.Get("resource_id")),
	}
	if check.Resource == "" || check.Action == "" {
		writeAppError(w, apperrors.Validation("resource and action are required"))
		return
	}

	var allowed bool
	if check.ResourceID == "" {
		allowed = h.Services.Authz.HasPermission(check.Resource, check.Action)
	} else {
		allowed = h.Services.Authz.CheckPermission(r.Context(), check.Resource, check.Action, check.ResourceID)
	}
	WriteJSON(w, http.StatusOK, permissionAnswer{permissionCheck: check, Allowed: allowed})
}

type batchCheckRequest struct {
	Checks []permissionCheck `json:"checks"`
	// Mode is "all", "any" or empty for per-check answers.
	Mode string `json:"mode,omitempty"`
}

// CheckPermissions answers several questions at once.
func (h *APIHandlers) CheckPermissions(w http.ResponseWriter, r *http.Request) {
	var req batchCheckRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Checks) == 0 {
		writeAppError(w, apperrors.ValidationField("checks", "At least one check is required"))
		return
	}
	queries := make([]service.PermissionQuery, 0, len(req.Checks))
	for _, c := range req.Checks {
		if c.Resource == "" || c.Action == "" {
			writeAppError(w, apperrors.ValidationField("checks", "resource and action are required"))
			return
		}
		queries = append(queries, service.PermissionQuery{Resource: c.Resource, Action: c.Action, ResourceID: c.ResourceID})
	}

	authz := h.Services.Authz
	switch strings.ToLower(req.Mode) {
	case "all":
		WriteJSON(w, http.StatusOK, map[string]bool{"allowed": authz.CanAll(r.Context(), queries)})
	case "any":
		WriteJSON(w, http.StatusOK, map[string]bool{"allowed": authz.CanAny(r.Context(), queries)})
	case "":
		WriteJSON(w, http.StatusOK, map[string]any{"results": authz.CanMultiple(r.Context(), queries)})
	default:
		writeAppError(w, apperrors.ValidationField("mode", "mode must be one of: all, any"))
	}
}

// Permissions returns the signed-in user's permission set.
func (h *APIHandlers) Permissions(w http.ResponseWriter, r *http.Request) {
	perms := h.Services.Authz.Permissions()
	WriteJSON(w, http.StatusOK, map[string]any{"permissions": perms, "count": len(perms)})
}

// PreloadPermissions warms the scoped cache with the common checks.
func (h *APIHandlers) PreloadPermissions(w http.ResponseWriter, r *http.Request) {
	if err := h.Services.Authz.PreloadUserPermissions(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"cached": h.Services.Authz.ScopedLen()})
}

// RolePermissions lists the permissions granted to one role.
func (h *APIHandlers) RolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	perms, err := h.Services.Authz.FetchRolePermissions(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	body := map[string]any{"roleId": id, "permissions": perms}
	if role, ok := h.Services.Authz.RoleByID(id); ok {
		body["role"] = role
	}
	WriteJSON(w, http.StatusOK, body)
}

// Health returns the backend reachability. ?check=true probes first.
func (h *APIHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if probe, _ := strconv.ParseBool(r.URL.Query().Get("check")); probe {
		WriteJSON(w, http.StatusOK, h.Services.Health.Check(r.Context(), false))
		return
	}
	WriteJSON(w, http.StatusOK, h.Services.Health.Status())
}

// GetPreferences returns the translation preferences.
func (h *APIHandlers) GetPreferences(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Services.Preferences.Get())
}

type preferencesUpdate struct {
	CurrentLanguage           *service.Language `json:"currentLanguage"`
	DefaultLanguage           *service.Language `json:"defaultLanguage"`
	ShowTranslationIndicators *bool             `json:"showTranslationIndicators"`
	ShowOriginalValues        *bool             `json:"showOriginalValues"`
	AutoSaveTranslations      *bool             `json:"autoSaveTranslations"`
}

// UpdatePreferences applies the fields present in the body.
func (h *APIHandlers) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesUpdate
	if !DecodeJSON(w, r, &req) {
		return
	}
	ctx := r.Context()
	p := h.Services.Preferences

	var err error
	set := func(fn func() error) {
		if err == nil {
			err = fn()
		}
	}
	if req.CurrentLanguage != nil {
		set(func() error { return p.SetCurrentLanguage(ctx, *req.CurrentLanguage) })
	}
	if req.DefaultLanguage != nil {
		set(func() error { return p.SetDefaultLanguage(ctx, *req.DefaultLanguage) })
	}
	if req.ShowTranslationIndicators != nil {
		set(func() error { return p.SetShowTranslationIndicators(ctx, *req.ShowTranslationIndicators) })
	}
	if req.ShowOriginalValues != nil {
		set(func() error { return p.SetShowOriginalValues(ctx, *req.ShowOriginalValues) })
	}
	if req.AutoSaveTranslations != nil {
		set(func() error { return p.SetAutoSaveTranslations(ctx, *req.AutoSaveTranslations) })
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p.Get())
}

// ToggleLanguage advances the editing language.
func (h *APIHandlers) ToggleLanguage(w http.ResponseWriter, r *http.Request) {
	lang, err := h.Services.Preferences.ToggleLanguage(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"currentLanguage": string(lang), "name": lang.Name()})
}

type dashboardSelection struct {
	Dashboard string `json:"dashboard"`
}

// SelectDashboard switches an administrator's dashboard.
func (h *APIHandlers) SelectDashboard(w http.ResponseWriter, r *http.Request) {
	var req dashboardSelection
	if !DecodeJSON(w, r, &req) {
		return
	}
	d := h.Services.Dashboard
	if err := d.Select(r.Context(), req.Dashboard); err != nil {
		writeAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"dashboard": d.Selected(), "title": d.Title()})
}
