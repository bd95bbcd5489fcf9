package service

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/target/mmk-admin-console/internal/apiclient"
	"github.com/target/mmk-admin-console/internal/domain/entity"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/ports"
)

// EntityStoreOptions groups dependencies for EntityStore.
type EntityStoreOptions struct {
	API      Backend        // Required: backend client
	Resource EntityResource // Required: endpoint and labels
	Notifier ports.Notifier // Optional: failure notices
	Logger   *slog.Logger   // Optional: structured logger
}

// EntityResource names one CRUD collection.
type EntityResource struct {
	// Endpoint is the collection path, e.g. "/posts".
	Endpoint string
	// Singular and Plural label failure messages ("post", "posts").
	Singular string
	Plural   string
}

// EntityStore is the client-side state of one CRUD collection: the current
// page, the record being viewed and the last failure. Failures set Err,
// notify and are returned to the caller.
type EntityStore[T entity.Entity] struct {
	api      Backend
	res      EntityResource
	notifier ports.Notifier
	logger   *slog.Logger

	mu         sync.RWMutex
	items      []T
	current    *T
	pagination entity.Pagination
	err        string
}

// NewEntityStore constructs a new EntityStore.
func NewEntityStore[T entity.Entity](opts EntityStoreOptions) *EntityStore[T] {
	if opts.API == nil {
		panic("EntityStore requires an API backend")
	}
	res := opts.Resource
	res.Endpoint = "/" + strings.Trim(res.Endpoint, "/")
	if res.Endpoint == "/" {
		panic("EntityStore requires a resource endpoint")
	}
	if res.Plural == "" {
		res.Plural = strings.TrimPrefix(res.Endpoint, "/")
	}
	if res.Singular == "" {
		res.Singular = strings.TrimSuffix(res.Plural, "s")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EntityStore[T]{
		api:        opts.API,
		res:        res,
		notifier:   opts.Notifier,
		logger:     logger.With("component", "entity_store", "resource", res.Plural),
		pagination: entity.DefaultPagination(),
	}
}

func (s *EntityStore[T]) itemPath(id int64) string {
	return s.res.Endpoint + "/" + strconv.FormatInt(id, 10)
}

// List loads one page and replaces Items and Pagination.
func (s *EntityStore[T]) List(ctx context.Context, params entity.ListParams) ([]T, error) {
	s.clearErr()
	var resp entity.ListResponse[T]
	err := s.api.Request(ctx, s.res.Endpoint, apiclient.RequestOptions{
		Method: http.MethodGet,
		Query:  params.Query(),
	}, &resp)
	if err != nil {
		return nil, s.fail(ctx, err, "Failed to fetch "+s.res.Plural)
	}

	p := entity.Pagination{}
	if resp.Pagination != nil {
		p = *resp.Pagination
	}
	p = p.Normalize()

	s.mu.Lock()
	s.items = resp.Data
	s.pagination = p
	s.mu.Unlock()
	return slices.Clone(resp.Data), nil
}

// Get loads one record and makes it Current.
func (s *EntityStore[T]) Get(ctx context.Context, id int64) (T, error) {
	s.clearErr()
	var resp dataEnvelope[T]
	if err := s.api.Get(ctx, s.itemPath(id), &resp); err != nil {
		var zero T
		return zero, s.fail(ctx, err, "Failed to fetch "+s.res.Singular)
	}
	s.mu.Lock()
	v := resp.Data
	s.current = &v
	s.mu.Unlock()
	return resp.Data, nil
}

// Create posts body and prepends the created record to Items.
func (s *EntityStore[T]) Create(ctx context.Context, body any) (T, error) {
	s.clearErr()
	var resp dataEnvelope[T]
	if err := s.api.Post(ctx, s.res.Endpoint, body, &resp); err != nil {
		var zero T
		return zero, s.fail(ctx, err, "Failed to create "+s.res.Singular)
	}
	s.mu.Lock()
	s.items = slices.Insert(s.items, 0, resp.Data)
	s.mu.Unlock()
	return resp.Data, nil
}

// Update puts body and replaces the record in Items and Current.
func (s *EntityStore[T]) Update(ctx context.Context, id int64, body any) (T, error) {
	s.clearErr()
	var resp dataEnvelope[T]
	if err := s.api.Put(ctx, s.itemPath(id), body, &resp); err != nil {
		var zero T
		return zero, s.fail(ctx, err, "Failed to update "+s.res.Singular)
	}
	s.mu.Lock()
	if i := slices.IndexFunc(s.items, func(v T) bool { return v.EntityID() == id }); i >= 0 {
		s.items[i] = resp.Data
	}
	if s.current != nil && (*s.current).EntityID() == id {
		v := resp.Data
		s.current = &v
	}
	s.mu.Unlock()
	return resp.Data, nil
}

// Delete removes the record remotely and from Items and Current.
func (s *EntityStore[T]) Delete(ctx context.Context, id int64) error {
	s.clearErr()
	if err := s.api.Delete(ctx, s.itemPath(id), nil); err != nil {
		return s.fail(ctx, err, "Failed to delete "+s.res.Singular)
	}
	s.mu.Lock()
	s.items = slices.DeleteFunc(s.items, func(v T) bool { return v.EntityID() == id })
	if s.current != nil && (*s.current).EntityID() == id {
		s.current = nil
	}
	s.mu.Unlock()
	return nil
}

func (s *EntityStore[T]) fail(ctx context.Context, err error, fallback string) error {
	msg := apperrors.Message(err)
	if msg == "" {
		msg = fallback
	}
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()

	s.logger.WarnContext(ctx, "entity operation failed", "error", err)
	// Connectivity and expiry already have process-wide handlers.
	if s.notifier != nil && !apperrors.IsConnectivity(err) && !apperrors.IsAuthExpired(err) {
		s.notifier.Notify(ctx, ports.Notice{Level: ports.NoticeError, Title: "Error", Message: msg})
	}
	return err
}

func (s *EntityStore[T]) clearErr() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

// Items returns the current page.
func (s *EntityStore[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Find returns the record with id from the current page.
func (s *EntityStore[T]) Find(id int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.items {
		if v.EntityID() == id {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Current returns the record loaded by Get.
func (s *EntityStore[T]) Current() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		var zero T
		return zero, false
	}
	return *s.current, true
}

// Pagination returns the pagination of the current page.
func (s *EntityStore[T]) Pagination() entity.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// Err returns the message of the last failure, "" after a success.
func (s *EntityStore[T]) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Reset forgets all loaded state.
func (s *EntityStore[T]) Reset() {
	s.mu.Lock()
	s.items = nil
	s.current = nil
	s.pagination = entity.DefaultPagination()
	s.err = ""
	s.mu.Unlock()
}
