package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/target/mmk-admin-console/internal/domain/entity"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/service"
)

// registerContent mounts employee extras, grouped settings, the activity
// feed and content translations.
func registerContent(mux *http.ServeMux, s RouterServices, authed middleware) {
	c := s.Catalog
	h := &ContentHandlers{Catalog: c}
	perm := func(key string, fn http.HandlerFunc) http.Handler {
		return authed(requirePermission(s.Authz, key)(fn))
	}

	if m, ok := service.ModuleByName("employees"); ok {
		mux.Handle("GET /api/employees/search", perm(m.Permissions.List, h.SearchEmployees))
		mux.Handle("PUT /api/employees/{id}/password", perm(m.Permissions.Update, h.ChangeEmployeePassword))
	}
	if m, ok := service.ModuleByName("settings"); ok {
		mux.Handle("GET /api/settings", perm(m.Permissions.View, h.Settings))
		mux.Handle("PUT /api/settings", perm(m.Permissions.Update, h.UpdateSettings))
	}
	mux.Handle("GET /api/activities", authed(http.HandlerFunc(h.Activities)))
	mux.Handle("GET /api/translations/{model}/{id}", authed(http.HandlerFunc(h.Translations)))
	mux.Handle("PUT /api/translations/{model}/{id}/{field}", authed(http.HandlerFunc(h.SaveTranslations)))
}

// ContentHandlers serve the catalog features beyond plain CRUD.
type ContentHandlers struct {
	Catalog *service.Catalog
}

// SearchEmployees lists the first page of employees matching ?q=.
func (h *ContentHandlers) SearchEmployees(w http.ResponseWriter, r *http.Request) {
	store := h.Catalog.Employees
	items, err := store.Search(r.Context(), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if items == nil {
		items = []entity.Employee{}
	}
	WriteJSON(w, http.StatusOK, listPage[entity.Employee]{Module: "employees", Items: items, Pagination: store.Pagination()})
}

// ChangeEmployeePassword sets a new password for one employee.
func (h *ContentHandlers) ChangeEmployeePassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	var req entity.PasswordChange
	if !DecodeJSON(w, r, &req) {
		return
	}
	if err := h.Catalog.Employees.ChangePassword(r.Context(), id, req); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type settingsPage struct {
	Group    string           `json:"group,omitempty"`
	Settings []entity.Setting `json:"settings"`
}

// Settings loads every setting, optionally narrowed to ?group=.
func (h *ContentHandlers) Settings(w http.ResponseWriter, r *http.Request) {
	store := h.Catalog.Settings
	items, err := store.FetchAll(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	group := strings.TrimSpace(r.URL.Query().Get("group"))
	if group != "" {
		items = store.ByGroup(group)
	}
	if items == nil {
		items = []entity.Setting{}
	}
	WriteJSON(w, http.StatusOK, settingsPage{Group: group, Settings: items})
}

type settingsUpdate struct {
	// Group restricts the update to one group; keys outside it are skipped.
	Group  string                `json:"group,omitempty"`
	Values []entity.SettingValue `json:"values"`
}

// UpdateSettings writes several settings by key in one call.
func (h *ContentHandlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsUpdate
	if !DecodeJSON(w, r, &req) {
		return
	}
	if len(req.Values) == 0 {
		writeAppError(w, apperrors.ValidationField("values", "At least one value is required"))
		return
	}

	store := h.Catalog.Settings
	if len(store.Items()) == 0 {
		if _, err := store.FetchAll(r.Context()); err != nil {
			writeAppError(w, err)
			return
		}
	}
	updated, err := store.UpdateGroup(r.Context(), strings.TrimSpace(req.Group), req.Values)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if updated == nil {
		updated = []entity.Setting{}
	}
	WriteJSON(w, http.StatusOK, settingsPage{Group: req.Group, Settings: updated})
}

// Activities answers ?user_id=, ?entity_type=&entity_id= or, without
// either, the recent feed. ?limit= caps every variant.
func (h *ContentHandlers) Activities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parseIntQuery(r, queryLimit, service.DefaultActivityLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	feed := h.Catalog.Activities

	var (
		items []entity.Activity
		err   error
	)
	switch {
	case q.Get("user_id") != "":
		userID, perr := strconv.ParseInt(q.Get("user_id"), 10, 64)
		if perr != nil || userID <= 0 {
			writeAppError(w, apperrors.ValidationField("user_id", "Invalid user id"))
			return
		}
		items, err = feed.ByUser(r.Context(), userID, limit)
	case q.Get("entity_type") != "":
		entityID, perr := strconv.ParseInt(q.Get("entity_id"), 10, 64)
		if perr != nil || entityID <= 0 {
			writeAppError(w, apperrors.ValidationField("entity_id", "Invalid entity id"))
			return
		}
		items, err = feed.ByEntity(r.Context(), q.Get("entity_type"), entityID, limit)
	default:
		items, err = feed.Recent(r.Context(), limit)
	}
	if err != nil {
		writeAppError(w, err)
		return
	}
	if items == nil {
		items = []entity.Activity{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"activities": items})
}

type translationsPage struct {
	Model        string                     `json:"model"`
	ID           int64                      `json:"id"`
	Translations service.RecordTranslations `json:"translations"`
}

// Translations loads every translation of one record.
func (h *ContentHandlers) Translations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	model := r.PathValue("model")
	rec, err := h.Catalog.Translations.Fetch(r.Context(), model, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, translationsPage{Model: model, ID: id, Translations: rec})
}

type savedTranslations struct {
	Saved []string `json:"saved"`
}

// SaveTranslations saves one field in the languages of the body
// ({"de": "...", "fr": "..."}).
func (h *ContentHandlers) SaveTranslations(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	var values service.FieldTranslations
	if !DecodeJSON(w, r, &values) {
		return
	}
	if len(values) == 0 {
		writeAppError(w, apperrors.Validation("At least one translation is required"))
		return
	}
	saved, err := h.Catalog.Translations.SaveField(r.Context(), r.PathValue("model"), id, r.PathValue("field"), values)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if saved == nil {
		saved = []string{}
	}
	WriteJSON(w, http.StatusOK, savedTranslations{Saved: saved})
}
