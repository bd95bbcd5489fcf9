package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/target/mmk-admin-console/config"
	domainauth "github.com/target/mmk-admin-console/internal/domain/auth"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	endpointRoles           = "/authorization/roles"
	endpointPermissions     = "/authorization/permissions"
	endpointUserPermissions = "/authorization/user/permissions"
	endpointCheck           = "/authorization/check"
)

// PermissionQuery is one (resource, action[, resourceID]) question.
type PermissionQuery struct {
	Resource   string
	Action     string
	ResourceID string
}

// Key is "resource:action[:resourceID]", the key used by CanMultiple results.
func (q PermissionQuery) Key() string {
	k := domainauth.PermissionKey(q.Resource, q.Action)
	if q.ResourceID != "" {
		k += ":" + q.ResourceID
	}
	return k
}

// commonChecks are the scoped checks warmed by PreloadUserPermissions.
var commonChecks = []PermissionQuery{
	{Resource: "customers", Action: "create"},
	{Resource: "customers", Action: "read"},
	{Resource: "customers", Action: "update"},
	{Resource: "customers", Action: "delete"},
	{Resource: "business_customers", Action: "create"},
	{Resource: "business_customers", Action: "read"},
	{Resource: "business_customers", Action: "update"},
	{Resource: "business_customers", Action: "delete"},
	{Resource: "orders", Action: "create"},
	{Resource: "orders", Action: "read"},
	{Resource: "orders", Action: "update"},
	{Resource: "orders", Action: "delete"},
	{Resource: "employees", Action: "create"},
	{Resource: "employees", Action: "read"},
	{Resource: "employees", Action: "update"},
	{Resource: "employees", Action: "delete"},
	{Resource: "settings", Action: "read"},
	{Resource: "settings", Action: "update"},
	{Resource: "authorization", Action: "manage_role"},
}

// RoleOption is a role rendered for a picker.
type RoleOption struct {
	Label       string `json:"label"`
	Value       int64  `json:"value"`
	Description string `json:"description,omitempty"`
}

// AuthorizationCacheOptions groups dependencies for AuthorizationCache.
type AuthorizationCacheOptions struct {
	API    Backend            // Required: backend client
	Config config.AuthzConfig // Retry, backoff and preload tuning
	Logger *slog.Logger       // Optional: structured logger
}

// AuthorizationCache answers permission questions for the current principal
// from one bulk fetch, falling back to the scoped check endpoint for
// resource-level questions.
type AuthorizationCache struct {
	api    Backend
	cfg    config.AuthzConfig
	logger *slog.Logger

	mu          sync.RWMutex
	principal   *domainauth.Principal
	initialized bool
	perms       map[string]struct{}
	roles       []domainauth.Role
	catalog     []domainauth.Permission

	// scoped holds "{userId}-{resource}-{action}[-{resourceId}]" answers; entries never expire.
	scoped *ttlcache.Cache[string, bool]
	checks singleflight.Group
	inits  singleflight.Group
}

// NewAuthorizationCache constructs a new AuthorizationCache.
func NewAuthorizationCache(opts AuthorizationCacheOptions) *AuthorizationCache {
	if opts.API == nil {
		panic("AuthorizationCache requires an API backend")
	}
	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthorizationCache{
		api:    opts.API,
		cfg:    cfg,
		logger: logger.With("component", "authorization"),
		perms:  make(map[string]struct{}),
		scoped: ttlcache.New(
			ttlcache.WithDisableTouchOnHit[string, bool](),
		),
	}
}

// Initialize loads roles and the principal's permission set concurrently.
// A different principal than the previous one wipes all cached answers and
// the initialized flag first. Re-initializing the same principal drops its
// scoped answers, since a role reassignment may have revoked them; the
// permission set is always replaced, never merged.
func (a *AuthorizationCache) Initialize(ctx context.Context, p domainauth.Principal) error {
	a.mu.Lock()
	if a.principal == nil || a.principal.UserID != p.UserID {
		a.initialized = false
		a.perms = make(map[string]struct{})
		a.roles = nil
		a.scoped.DeleteAll()
	}
	pc := p
	a.principal = &pc
	a.mu.Unlock()
	a.ClearPermissionCache(p.UserID)

	// A roles failure must not cancel the permission fetch, so no shared context.
	var (
		g                 errgroup.Group
		rolesErr, permErr error
	)
	g.Go(func() error {
		_, rolesErr = a.FetchRoles(ctx)
		return nil
	})
	g.Go(func() error {
		permErr = a.FetchUserPermissions(ctx)
		return nil
	})
	_ = g.Wait()
	err := errors.Join(rolesErr, permErr)

	a.mu.Lock()
	if a.principal != nil && a.principal.UserID == p.UserID {
		a.initialized = true
	}
	a.mu.Unlock()

	if err != nil {
		return fmt.Errorf("initialize authorization: %w", err)
	}
	return nil
}

// EnsureInitialized initializes for p unless that already happened.
// Concurrent callers share one initialization.
func (a *AuthorizationCache) EnsureInitialized(ctx context.Context, p domainauth.Principal) error {
	if a.IsInitializedFor(p.UserID) {
		return nil
	}
	_, err, _ := a.inits.Do(strconv.FormatInt(p.UserID, 10), func() (any, error) {
		if a.IsInitializedFor(p.UserID) {
			return nil, nil
		}
		return nil, a.Initialize(ctx, p)
	})
	return err
}

// IsInitializedFor reports whether the cache holds an initialization for userID.
func (a *AuthorizationCache) IsInitializedFor(userID int64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.initialized && a.principal != nil && a.principal.UserID == userID
}

// Reset forgets the principal and every cached answer. Called on logout.
func (a *AuthorizationCache) Reset() {
	a.mu.Lock()
	a.principal = nil
	a.initialized = false
	a.perms = make(map[string]struct{})
	a.roles = nil
	a.catalog = nil
	a.mu.Unlock()
	a.scoped.DeleteAll()
}

func (a *AuthorizationCache) currentPrincipal() (domainauth.Principal, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.principal == nil {
		return domainauth.Principal{}, false
	}
	return *a.principal, true
}

// FetchRoles loads the role list.
func (a *AuthorizationCache) FetchRoles(ctx context.Context) ([]domainauth.Role, error) {
	var resp dataEnvelope[[]domainauth.Role]
	if err := a.api.Get(ctx, endpointRoles, &resp); err != nil {
		a.logger.WarnContext(ctx, "fetch roles failed", "error", err)
		return nil, fmt.Errorf("fetch roles: %w", err)
	}
	a.mu.Lock()
	a.roles = resp.Data
	a.mu.Unlock()
	return resp.Data, nil
}

// FetchPermissions loads the permission catalog.
func (a *AuthorizationCache) FetchPermissions(ctx context.Context) ([]domainauth.Permission, error) {
	var resp dataEnvelope[[]domainauth.Permission]
	if err := a.api.Get(ctx, endpointPermissions, &resp); err != nil {
		a.logger.WarnContext(ctx, "fetch permission catalog failed", "error", err)
		return nil, fmt.Errorf("fetch permissions: %w", err)
	}
	a.mu.Lock()
	a.catalog = resp.Data
	a.mu.Unlock()
	return resp.Data, nil
}

// FetchRolePermissions loads the permissions granted to roleID.
func (a *AuthorizationCache) FetchRolePermissions(ctx context.Context, roleID int64) ([]domainauth.Permission, error) {
	var resp dataEnvelope[[]domainauth.Permission]
	endpoint := endpointRoles + "/" + strconv.FormatInt(roleID, 10) + "/permissions"
	if err := a.api.Get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch role %d permissions: %w", roleID, err)
	}
	return resp.Data, nil
}

// FetchUserPermissions replaces the permission set with the principal's
// grants. A 401 is retried with a fixed backoff since it usually means the
// token has not propagated yet; once attempts run out the set and the
// scoped cache are cleared. Any other failure leaves the set empty.
func (a *AuthorizationCache) FetchUserPermissions(ctx context.Context) error {
	p, ok := a.currentPrincipal()
	if !ok {
		a.replacePermissions(nil, p.UserID, false)
		return nil
	}

	var (
		resp dataEnvelope[[]domainauth.Permission]
		err  error
	)
	for attempt := 1; attempt <= a.cfg.FetchRetries; attempt++ {
		err = a.api.Get(ctx, endpointUserPermissions, &resp)
		if err == nil || !apperrors.IsUnauthorized(err) || attempt == a.cfg.FetchRetries {
			break
		}
		if waitErr := sleepCtx(ctx, a.cfg.FetchBackoff); waitErr != nil {
			err = waitErr
			break
		}
	}

	switch {
	case err == nil:
		keys := make([]string, 0, len(resp.Data))
		for _, perm := range resp.Data {
			keys = append(keys, perm.Key())
		}
		a.replacePermissions(keys, p.UserID, true)
		return nil
	case apperrors.IsUnauthorized(err):
		a.mu.Lock()
		if a.principal != nil && a.principal.UserID == p.UserID {
			a.perms = make(map[string]struct{})
		}
		a.mu.Unlock()
		a.scoped.DeleteAll()
		a.logger.InfoContext(ctx, "user not authenticated, clearing permissions", "user_id", p.UserID)
		return fmt.Errorf("fetch user permissions: %w", err)
	default:
		a.replacePermissions(nil, p.UserID, false)
		a.logger.ErrorContext(ctx, "fetch user permissions failed", "user_id", p.UserID, "error", err)
		return fmt.Errorf("fetch user permissions: %w", err)
	}
}

// replacePermissions swaps in a new set unless the principal changed meanwhile.
func (a *AuthorizationCache) replacePermissions(keys []string, userID int64, seed bool) {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.principal != nil && a.principal.UserID != userID {
		return
	}
	a.perms = set
	if !seed || a.principal == nil {
		return
	}
	for _, k := range keys {
		resource, action, _ := strings.Cut(k, ":")
		a.scoped.Set(domainauth.ScopedKey(userID, resource, action, ""), true, ttlcache.NoTTL)
	}
}

// HasPermission is the synchronous bulk-set check. False when unauthenticated.
func (a *AuthorizationCache) HasPermission(resource, action string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.principal == nil {
		return false
	}
	_, ok := a.perms[domainauth.PermissionKey(resource, action)]
	return ok
}

// CheckPermission answers a scoped question, asking the backend on a cache
// miss. Answers are cached including negatives; network failures deny and
// are cached as a denial too. Concurrent misses for one key share one call.
func (a *AuthorizationCache) CheckPermission(ctx context.Context, resource, action, resourceID string) bool {
	p, ok := a.currentPrincipal()
	if !ok {
		return false
	}

	key := domainauth.ScopedKey(p.UserID, resource, action, resourceID)
	if item := a.scoped.Get(key); item != nil {
		return item.Value()
	}

	v, _, _ := a.checks.Do(key, func() (any, error) {
		if item := a.scoped.Get(key); item != nil {
			return item.Value(), nil
		}

		body := map[string]any{
			"user_id":       p.UserID,
			"resource_type": resource,
			"action":        action,
		}
		if p.RoleID != nil {
			body["role_id"] = *p.RoleID
		}
		if resourceID != "" {
			body["resource_id"] = resourceID
		}

		var resp domainauth.PermissionCheck
		allowed := false
		if err := a.api.Post(ctx, endpointCheck, body, &resp); err != nil {
			a.logger.WarnContext(ctx, "permission check failed", "key", key, "error", err)
		} else {
			allowed = resp.HasPermission
		}

		// Skip the write when the principal went away mid-flight.
		if cur, ok := a.currentPrincipal(); ok && cur.UserID == p.UserID {
			a.scoped.Set(key, allowed, ttlcache.NoTTL)
		}
		return allowed, nil
	})
	allowed, _ := v.(bool)
	return allowed
}

// CanSync answers from cached state only: the scoped cache for
// resource-level questions, the bulk set otherwise.
func (a *AuthorizationCache) CanSync(resource, action, resourceID string) bool {
	p, ok := a.currentPrincipal()
	if !ok {
		return false
	}
	if resourceID != "" {
		if item := a.scoped.Get(domainauth.ScopedKey(p.UserID, resource, action, resourceID)); item != nil {
			return item.Value()
		}
		return false
	}
	return a.HasPermission(resource, action)
}

// CanMultiple runs every query concurrently and keys results by PermissionQuery.Key.
func (a *AuthorizationCache) CanMultiple(ctx context.Context, queries []PermissionQuery) map[string]bool {
	results := make([]bool, len(queries))
	var g errgroup.Group
	for i, q := range queries {
		g.Go(func() error {
			results[i] = a.CheckPermission(ctx, q.Resource, q.Action, q.ResourceID)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]bool, len(queries))
	for i, q := range queries {
		out[q.Key()] = results[i]
	}
	return out
}

// CanAny reports whether at least one query is allowed.
func (a *AuthorizationCache) CanAny(ctx context.Context, queries []PermissionQuery) bool {
	for _, ok := range a.CanMultiple(ctx, queries) {
		if ok {
			return true
		}
	}
	return false
}

// CanAll reports whether every query is allowed. Vacuously true for none.
func (a *AuthorizationCache) CanAll(ctx context.Context, queries []PermissionQuery) bool {
	for _, ok := range a.CanMultiple(ctx, queries) {
		if !ok {
			return false
		}
	}
	return true
}

// PreloadUserPermissions warms the scoped cache with the common checks,
// PreloadBatch at a time.
func (a *AuthorizationCache) PreloadUserPermissions(ctx context.Context) error {
	if _, ok := a.currentPrincipal(); !ok {
		return nil
	}
	for batch := range slices.Chunk(commonChecks, a.cfg.PreloadBatch) {
		if err := ctx.Err(); err != nil {
			return err
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, q := range batch {
			g.Go(func() error {
				a.CheckPermission(gctx, q.Resource, q.Action, q.ResourceID)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// ClearPermissionCache drops scoped answers for userID, or all of them when userID is zero.
func (a *AuthorizationCache) ClearPermissionCache(userID int64) {
	if userID == 0 {
		a.scoped.DeleteAll()
		return
	}
	prefix := domainauth.ScopedPrefix(userID)
	for _, k := range a.scoped.Keys() {
		if strings.HasPrefix(k, prefix) {
			a.scoped.Delete(k)
		}
	}
}

// IsCached reports whether a scoped answer exists for key.
func (a *AuthorizationCache) IsCached(key string) bool {
	return a.scoped.Has(key)
}

// ScopedLen is the number of cached scoped answers.
func (a *AuthorizationCache) ScopedLen() int {
	return a.scoped.Len()
}

// Permissions returns the current permission set, sorted.
func (a *AuthorizationCache) Permissions() []string {
	a.mu.RLock()
	out := make([]string, 0, len(a.perms))
	for k := range a.perms {
		out = append(out, k)
	}
	a.mu.RUnlock()
	slices.Sort(out)
	return out
}

// Roles returns the cached role list.
func (a *AuthorizationCache) Roles() []domainauth.Role {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.roles)
}

// RoleOptions renders the cached roles for a picker.
func (a *AuthorizationCache) RoleOptions() []RoleOption {
	roles := a.Roles()
	out := make([]RoleOption, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleOption{Label: r.Name, Value: r.ID, Description: r.Description})
	}
	return out
}

// RoleByID finds a cached role.
func (a *AuthorizationCache) RoleByID(id int64) (domainauth.Role, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, r := range a.roles {
		if r.ID == id {
			return r, true
		}
	}
	return domainauth.Role{}, false
}

// PermissionsByResource filters the cached catalog by resource type.
func (a *AuthorizationCache) PermissionsByResource(resourceType string) []domainauth.Permission {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []domainauth.Permission
	for _, p := range a.catalog {
		if p.ResourceType == resourceType {
			out = append(out, p)
		}
	}
	return out
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
