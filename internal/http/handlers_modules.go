package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/target/mmk-admin-console/internal/domain/entity"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/service"
)

type middleware = func(http.Handler) http.Handler

// registerModules mounts the pages and mutation endpoints of every module.
func registerModules(mux *http.ServeMux, s RouterServices, page, authed middleware) {
	c := s.Catalog
	for _, m := range service.Modules() {
		switch m.Name {
		case "posts":
			h := mountEntity(mux, s, m, c.Posts.EntityStore, page, authed)
			posts := &postActions{entityHandlers: h, store: c.Posts}
			update := requirePermission(s.Authz, m.Permissions.Update)
			mux.Handle("POST /api/posts/{id}/publish", authed(update(http.HandlerFunc(posts.publish))))
			mux.Handle("POST /api/posts/{id}/unpublish", authed(update(http.HandlerFunc(posts.unpublish))))
			mux.Handle("POST /api/posts/{id}/feature", authed(update(http.HandlerFunc(posts.toggleFeatured))))
		case "products":
			mountEntity(mux, s, m, c.Products, page, authed)
		case "tags":
			mountEntity(mux, s, m, c.Tags, page, authed)
		case "employees":
			mountEntity(mux, s, m, c.Employees.EntityStore, page, authed)
		case "settings":
			mountEntity(mux, s, m, c.Settings.EntityStore, page, authed)
		}
	}
}

// routePattern turns a module route ("/app/posts/:id/edit") into a
// ServeMux pattern.
func routePattern(route string) string {
	return "GET " + strings.ReplaceAll(route, ":id", "{id}")
}

// requirePermission answers 403 unless the cached permission set grants key.
func requirePermission(authz *service.AuthorizationCache, key string) middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resource, action, ok := service.SplitPermission(key)
			if ok && !authz.HasPermission(resource, action) {
				writeAppError(w, apperrors.Forbidden("You don't have permission to perform this action. Required: "+key))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func mountEntity[T entity.Entity](
	mux *http.ServeMux,
	s RouterServices,
	m service.Module,
	store *service.EntityStore[T],
	page, authed middleware,
) *entityHandlers[T] {
	h := &entityHandlers[T]{module: m, store: store}
	if m.Routes.List != "" {
		mux.Handle(routePattern(m.Routes.List), page(http.HandlerFunc(h.list)))
	}
	if m.Routes.Create != "" {
		mux.Handle(routePattern(m.Routes.Create), page(http.HandlerFunc(h.form)))
	}
	if m.Routes.View != "" {
		mux.Handle(routePattern(m.Routes.View), page(http.HandlerFunc(h.get)))
	}
	if m.Routes.Edit != "" {
		mux.Handle(routePattern(m.Routes.Edit), page(http.HandlerFunc(h.get)))
	}

	base := "/api" + m.Endpoint
	if m.Permissions.Create != "" {
		mux.Handle("POST "+base, authed(requirePermission(s.Authz, m.Permissions.Create)(http.HandlerFunc(h.create))))
	}
	if m.Permissions.Update != "" {
		mux.Handle("PUT "+base+"/{id}", authed(requirePermission(s.Authz, m.Permissions.Update)(http.HandlerFunc(h.update))))
	}
	if m.Permissions.Delete != "" {
		mux.Handle("DELETE "+base+"/{id}", authed(requirePermission(s.Authz, m.Permissions.Delete)(http.HandlerFunc(h.remove))))
	}
	return h
}

// entityHandlers serves one module's store.
type entityHandlers[T entity.Entity] struct {
	module service.Module
	store  *service.EntityStore[T]
}

type listPage[T any] struct {
	Module     string            `json:"module"`
	Items      []T               `json:"items"`
	Pagination entity.Pagination `json:"pagination"`
}

func (h *entityHandlers[T]) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context(), parseListParams(r))
	if err != nil {
		writeAppError(w, err)
		return
	}
	if items == nil {
		items = []T{}
	}
	WriteJSON(w, http.StatusOK, listPage[T]{Module: h.module.Name, Items: items, Pagination: h.store.Pagination()})
}

type formPage struct {
	Module service.Module `json:"module"`
}

func (h *entityHandlers[T]) form(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, formPage{Module: h.module})
}

type itemPage[T any] struct {
	Module string `json:"module"`
	Item   T      `json:"item"`
}

func (h *entityHandlers[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	item, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, itemPage[T]{Module: h.module.Name, Item: item})
}

// decodeBody reads a free-form JSON object; the backend validates fields.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, bool) {
	var body map[string]json.RawMessage
	if !DecodeJSON(w, r, &body) {
		return nil, false
	}
	if len(body) == 0 {
		writeAppError(w, apperrors.Validation("Request body is empty"))
		return nil, false
	}
	return body, true
}

func (h *entityHandlers[T]) create(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	item, err := h.store.Create(r.Context(), body)
	if err != nil {
		writeAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, itemPage[T]{Module: h.module.Name, Item: item})
}

func (h *entityHandlers[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	body, ok := decodeBody(w, r)
	if !ok {
		return
	}
	item, err := h.store.Update(r.Context(), id, body)
	if err != nil {
		writeAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, itemPage[T]{Module: h.module.Name, Item: item})
}

func (h *entityHandlers[T]) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// postActions adds publication endpoints to the posts module.
type postActions struct {
	*entityHandlers[entity.Post]
	store *service.PostStore
}

func (p *postActions) publish(w http.ResponseWriter, r *http.Request) {
	p.apply(w, r, p.store.Publish)
}

func (p *postActions) unpublish(w http.ResponseWriter, r *http.Request) {
	p.apply(w, r, p.store.Unpublish)
}

func (p *postActions) apply(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (entity.Post, error)) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	post, err := fn(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, itemPage[entity.Post]{Module: p.module.Name, Item: post})
}

// toggleFeatured only works on posts of the page last listed.
func (p *postActions) toggleFeatured(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	post, found, err := p.store.ToggleFeatured(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if !found {
		writeAppError(w, apperrors.NotFoundf("Post %d is not loaded", id))
		return
	}
	WriteJSON(w, http.StatusOK, itemPage[entity.Post]{Module: p.module.Name, Item: post})
}
