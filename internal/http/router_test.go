package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-admin-console/config"
	"github.com/target/mmk-admin-console/internal/adapters/flash"
	"github.com/target/mmk-admin-console/internal/apiclient"
	domainauth "github.com/target/mmk-admin-console/internal/domain/auth"
	"github.com/target/mmk-admin-console/internal/guard"
	"github.com/target/mmk-admin-console/internal/mocks/memory"
	"github.com/target/mmk-admin-console/internal/ports"
	"github.com/target/mmk-admin-console/internal/service"
	"github.com/target/mmk-admin-console/internal/testutil"
)

type consoleFixture struct {
	api     *testutil.FakeAPI
	client  *apiclient.Client
	blobs   *memory.BlobStore
	session *service.SessionStore
	health  *service.APIHealth
	handler http.Handler
}

func newConsoleFixture(t *testing.T) *consoleFixture {
	t.Helper()
	api := testutil.NewFakeAPI(t)
	api.JSON("GET /health", http.StatusOK, map[string]string{"status": "ok"})
	api.JSON("GET /authorization/roles", http.StatusOK, map[string]any{"data": []domainauth.Role{{ID: 2, Name: "Manager"}}})
	api.JSON("GET /authorization/user/permissions", http.StatusOK, map[string]any{
		"data": testutil.Permissions(
			[2]string{"employee", "read"},
			[2]string{"employee", "list"},
			[2]string{"post", "list"},
			[2]string{"post", "update"},
		),
	})
	api.JSON("POST /auth/login", http.StatusOK, testutil.NewAuthResponse().Build())
	api.JSON("POST /auth/logout", http.StatusOK, map[string]any{})

	client, err := apiclient.New(apiclient.Options{BaseURL: api.URL(), Timeout: 2 * time.Second})
	require.NoError(t, err)

	routes := config.RoutesConfig{}
	routes.Sanitize()
	nav := flash.NewNavigator(nil)
	notifier := flash.NewNotifier(nil)
	blobs := memory.NewBlobStore()

	authz := service.NewAuthorizationCache(service.AuthorizationCacheOptions{API: client, Config: config.AuthzConfig{FetchRetries: 1}})
	session := service.NewSessionStore(service.SessionStoreOptions{
		Deps:   service.SessionDeps{API: client, Authz: authz, Blobs: blobs, Navigator: nav},
		Config: service.SessionConfig{Routes: routes, AwaitAuthzInit: true},
	})
	health := service.NewAPIHealth(service.APIHealthOptions{
		Prober:    client,
		Config:    config.HealthConfig{Path: "/health"},
		Navigator: nav,
		ErrorPath: routes.APIError,
	})
	client.OnTokenExpired(session.HandleTokenExpired)
	client.OnConnectivityError(health.HandleConnectivityError)

	policy := guard.DefaultPolicy(routes)
	chain := guard.NewChain(guard.ChainOptions{
		Guards: []guard.Guard{
			guard.NewAPIHealthGuard(guard.APIHealthGuardOptions{Health: health, Policy: policy}),
			guard.NewAuthGuard(session, policy),
			guard.NewPermissionGuard(guard.PermissionGuardOptions{Session: session, Authz: authz, Policy: policy}),
		},
		Navigator: nav,
		Notifier:  notifier,
	})

	handler := NewRouter(RouterServices{
		Session:     session,
		Authz:       authz,
		Health:      health,
		Guards:      chain,
		Catalog:     service.NewCatalog(service.CatalogOptions{API: client, Notifier: notifier}),
		Preferences: service.NewPreferences(service.PreferencesOptions{Blobs: blobs}),
		Dashboard:   service.NewDashboard(service.DashboardOptions{Blobs: blobs, Session: session, Roles: authz}),
		Routes:      routes,
	})

	return &consoleFixture{api: api, client: client, blobs: blobs, session: session, health: health, handler: handler}
}

func (f *consoleFixture) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *consoleFixture) login(t *testing.T) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/auth/login", domainauth.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_EntryPageWhenSignedOut(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeResponse[entryPage](t, rec)
	assert.Equal(t, "entry", page.Page)
	assert.False(t, page.Authenticated)
}

func TestRouter_SignedOutPageRedirectsToEntry(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodGet, "/app/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, "/", rec.Header().Get(HeaderRedirect))

	body := decodeResponse[redirectResponse](t, rec)
	assert.Equal(t, "/", body.Redirect)
	assert.Equal(t, "auth", body.Guard)
}

func TestRouter_LoginThenDashboard(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/login", domainauth.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/app/dashboard", rec.Header().Get(HeaderRedirect))
	res := decodeResponse[service.Result](t, rec)
	assert.True(t, res.Success)
	require.NotNil(t, res.User)
	assert.Equal(t, "Ada Lovelace", res.User.Name)

	rec = f.do(t, http.MethodGet, "/app/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decodeResponse[dashboardPage](t, rec)
	assert.Equal(t, "Manager Dashboard", page.Title)
	assert.False(t, page.IsAdminRole)

	labels := make([]string, 0, len(page.Navigation))
	for _, n := range page.Navigation {
		labels = append(labels, n.Label)
	}
	assert.Equal(t, []string{"Posts", "Users"}, labels)

	rec = f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code, "entry is guest-only")
	assert.Equal(t, "/app/dashboard", rec.Header().Get("Location"))
}

func TestRouter_LoginValidation(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/login", domainauth.LoginRequest{Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	res := decodeResponse[service.Result](t, rec)
	assert.False(t, res.Success)
	assert.Equal(t, "Email is required", res.Error)
	assert.Zero(t, f.api.Count("POST /auth/login"))
}

func TestRouter_LoginRejected(t *testing.T) {
	f := newConsoleFixture(t)
	f.api.JSON("POST /auth/login", http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})

	rec := f.do(t, http.MethodPost, "/auth/login", domainauth.LoginRequest{Email: "ada@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	res := decodeResponse[service.Result](t, rec)
	assert.Equal(t, "Invalid credentials", res.Error)
	assert.False(t, f.session.IsAuthenticated())
}

func TestRouter_LoginRejectsUnknownFields(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/login", `{"email":"a@b.c","password":"x","admin":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeResponse[map[string]string](t, rec)
	assert.Equal(t, "invalid_json", body["error"])
}

func TestRouter_PermissionDeniedRedirectsWithNotice(t *testing.T) {
	f := newConsoleFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodGet, "/app/employees/5/edit", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/app/dashboard", rec.Header().Get("Location"))

	raw := rec.Header().Values(HeaderNotice)
	require.Len(t, raw, 1)
	var notice ports.Notice
	require.NoError(t, json.Unmarshal([]byte(raw[0]), &notice))
	assert.Equal(t, "Access Denied", notice.Title)
	assert.Contains(t, notice.Message, "employee:update")
}

func TestRouter_ModuleListPassesQuery(t *testing.T) {
	f := newConsoleFixture(t)
	f.login(t)
	f.api.JSON("GET /posts", http.StatusOK, map[string]any{
		"data":       []map[string]any{{"id": 1, "title": "Hello"}},
		"pagination": map[string]int{"total": 1, "page": 2, "page_size": 5, "total_pages": 1},
	})

	rec := f.do(t, http.MethodGet, "/app/posts?page=2&limit=5&status=draft", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var page struct {
		Module     string           `json:"module"`
		Items      []map[string]any `json:"items"`
		Pagination struct {
			Page  int `json:"page"`
			Limit int `json:"page_size"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, "posts", page.Module)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 2, page.Pagination.Page)
	assert.Equal(t, 5, page.Pagination.Limit)

	calls := f.api.Calls("GET /posts")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Query, "status=draft")
	assert.Contains(t, calls[0].Query, "page=2")
}

func TestRouter_MutationsRequirePermission(t *testing.T) {
	f := newConsoleFixture(t)
	f.login(t)
	f.api.JSON("PUT /posts/3", http.StatusOK, map[string]any{"data": map[string]any{"id": 3, "title": "Edited"}})

	rec := f.do(t, http.MethodPost, "/api/products", map[string]any{"name": "Widget"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, f.api.Count("POST /products"))

	rec = f.do(t, http.MethodPut, "/api/posts/3", map[string]any{"title": "Edited"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	calls := f.api.Calls("PUT /posts/3")
	require.Len(t, calls, 1)
	var sent map[string]string
	require.NoError(t, calls[0].DecodeBody(&sent))
	assert.Equal(t, "Edited", sent["title"])

	rec = f.do(t, http.MethodPut, "/api/posts/abc", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_APIRequiresSession(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodGet, "/api/permissions", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CheckPermission(t *testing.T) {
	f := newConsoleFixture(t)
	f.login(t)
	f.api.JSON("POST /authorization/check", http.StatusOK, domainauth.PermissionCheck{HasPermission: true})

	rec := f.do(t, http.MethodGet, "/api/permissions/check?resource=employee&action=read", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse[permissionAnswer](t, rec).Allowed)

	rec = f.do(t, http.MethodGet, "/api/permissions/check?resource=employee&action=delete", nil)
	assert.False(t, decodeResponse[permissionAnswer](t, rec).Allowed)
	assert.Zero(t, f.api.Count("POST /authorization/check"), "bulk questions stay local")

	rec = f.do(t, http.MethodGet, "/api/permissions/check?resource=order&action=update&resource_id=7", nil)
	assert.True(t, decodeResponse[permissionAnswer](t, rec).Allowed)
	f.do(t, http.MethodGet, "/api/permissions/check?resource=order&action=update&resource_id=7", nil)
	assert.Equal(t, 1, f.api.Count("POST /authorization/check"), "scoped answers are cached")

	rec = f.do(t, http.MethodGet, "/api/permissions/check?resource=order", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_BatchPermissionCheck(t *testing.T) {
	f := newConsoleFixture(t)
	f.login(t)
	f.api.JSON("POST /authorization/check", http.StatusOK, domainauth.PermissionCheck{HasPermission: false})

	rec := f.do(t, http.MethodPost, "/api/permissions/check", batchCheckRequest{
		Checks: []permissionCheck{{Resource: "order", Action: "read"}, {Resource: "order", Action: "update", ResourceID: "9"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Results map[string]bool `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]bool{"order:read": false, "order:update:9": false}, body.Results)

	rec = f.do(t, http.MethodPost, "/api/permissions/check", batchCheckRequest{
		Checks: []permissionCheck{{Resource: "order", Action: "read"}},
		Mode:   "most",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_TokenExpiredMidRequestSignsOut(t *testing.T) {
	f := newConsoleFixture(t)
	f.login(t)
	f.api.JSON("GET /posts", http.StatusUnauthorized, map[string]string{"message": "Token has expired"})

	rec := f.do(t, http.MethodGet, "/app/posts", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(HeaderRedirect))
	assert.False(t, f.session.IsAuthenticated())
	assert.Empty(t, f.client.Token())
	assert.False(t, f.blobs.Has(ports.KeySession))
}

func TestRouter_ConnectivityFailureSendsToErrorPage(t *testing.T) {
	f := newConsoleFixture(t)
	f.login(t)
	f.api.JSON("GET /posts", http.StatusServiceUnavailable, map[string]any{})

	rec := f.do(t, http.MethodGet, "/app/posts", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "/error/api-connection", rec.Header().Get(HeaderRedirect))
	assert.False(t, f.health.IsHealthy())
	assert.True(t, f.session.IsAuthenticated(), "connectivity failures keep the session")
}

func TestRouter_BackendDownAndRetry(t *testing.T) {
	f := newConsoleFixture(t)
	f.api.JSON("GET /health", http.StatusServiceUnavailable, map[string]any{})

	rec := f.do(t, http.MethodGet, "/app/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/error/api-connection", rec.Header().Get("Location"))

	rec = f.do(t, http.MethodGet, "/error/api-connection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeResponse[apiErrorPage](t, rec)
	assert.False(t, page.Health.IsHealthy)
	assert.NotEmpty(t, page.Message)

	f.api.JSON("GET /health", http.StatusOK, map[string]string{"status": "ok"})
	rec = f.do(t, http.MethodPost, "/error/api-connection/retry", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	retry := decodeResponse[retryResponse](t, rec)
	assert.True(t, retry.Healthy)
	assert.Equal(t, "/", retry.Redirect)
	assert.Equal(t, "/", rec.Header().Get(HeaderRedirect))
}

func TestRouter_Logout(t *testing.T) {
	f := newConsoleFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodPost, "/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(HeaderRedirect))
	assert.Equal(t, 1, f.api.Count("POST /auth/logout"))

	rec = f.do(t, http.MethodGet, "/app/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestRouter_AuthCheck(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodGet, "/auth/check", nil)
	assert.False(t, decodeResponse[map[string]any](t, rec)["authenticated"].(bool))

	f.login(t)
	rec = f.do(t, http.MethodGet, "/auth/check", nil)
	body := decodeResponse[map[string]any](t, rec)
	assert.True(t, body["authenticated"].(bool))
	assert.NotNil(t, body["user"])
}

func TestRouter_Preferences(t *testing.T) {
	f := newConsoleFixture(t)

	rec := f.do(t, http.MethodGet, "/api/preferences", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.LanguageDE, decodeResponse[service.TranslationPreferences](t, rec).CurrentLanguage)

	rec = f.do(t, http.MethodPut, "/api/preferences", map[string]any{"currentLanguage": "fr", "showOriginalValues": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	prefs := decodeResponse[service.TranslationPreferences](t, rec)
	assert.Equal(t, service.LanguageFR, prefs.CurrentLanguage)
	assert.True(t, prefs.ShowOriginalValues)
	assert.True(t, f.blobs.Has(ports.KeyPreferences))

	rec = f.do(t, http.MethodPut, "/api/preferences", map[string]any{"currentLanguage": "xx"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/preferences/toggle-language", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "it", decodeResponse[map[string]string](t, rec)["currentLanguage"])
}

func TestRouter_DashboardSelectionIsAdminOnly(t *testing.T) {
	f := newConsoleFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodPost, "/api/dashboard", dashboardSelection{Dashboard: "Sales"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Only administrators can switch dashboards", decodeResponse[map[string]string](t, rec)["message"])
}

func TestRouter_UnknownConsolePage(t *testing.T) {
	f := newConsoleFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodGet, "/app/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_SessionPageHidesToken(t *testing.T) {
	f := newConsoleFixture(t)
	f.login(t)

	rec := f.do(t, http.MethodGet, "/app/session", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "token-42")
	page := decodeResponse[sessionPage](t, rec)
	assert.True(t, page.Capabilities.CanManage)
	assert.Contains(t, page.Permissions, "employee:list")
}
