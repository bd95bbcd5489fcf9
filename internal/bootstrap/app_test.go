package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-admin-console/config"
	domainauth "github.com/target/mmk-admin-console/internal/domain/auth"
	"github.com/target/mmk-admin-console/internal/domain/entity"
	"github.com/target/mmk-admin-console/internal/mocks/memory"
	"github.com/target/mmk-admin-console/internal/ports"
	"github.com/target/mmk-admin-console/internal/testutil"
)

func newFakeBackend(t *testing.T) *testutil.FakeAPI {
	t.Helper()
	api := testutil.NewFakeAPI(t)
	api.JSON("GET /health", http.StatusOK, map[string]string{"status": "ok"})
	api.JSON("GET /authorization/roles", http.StatusOK, map[string]any{"data": []domainauth.Role{{ID: 2, Name: "Manager"}}})
	api.JSON("GET /authorization/user/permissions", http.StatusOK, map[string]any{
		"data": testutil.Permissions([2]string{"post", "list"}),
	})
	api.JSON("POST /auth/login", http.StatusOK, testutil.NewAuthResponse().Build())
	return api
}

func testConfig(baseURL string) config.AppConfig {
	cfg := config.AppConfig{
		API:    config.APIConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		Health: config.HealthConfig{Path: "/health"},
		Authz:  config.AuthzConfig{AwaitInit: true},
	}
	cfg.Sanitize()
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNewApp_WiresSharedServices(t *testing.T) {
	api := newFakeBackend(t)
	blobs := memory.NewBlobStore()

	app, err := NewApp(AppOptions{Config: testConfig(api.URL()), Logger: discardLogger(), Blobs: blobs})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })

	assert.NotNil(t, app.API)
	assert.NotNil(t, app.Guards)
	assert.False(t, app.Initialize(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(domainauth.LoginRequest{Email: "ada@example.com", Password: "pw"}))
	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", &buf))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.True(t, blobs.Has(ports.KeySession))
	assert.True(t, app.Authz.HasPermission("post", "list"))
}

func TestApp_InitializeRestoresPersistedSession(t *testing.T) {
	api := newFakeBackend(t)
	blobs := memory.NewBlobStore()
	cfg := testConfig(api.URL())

	first, err := NewApp(AppOptions{Config: cfg, Logger: discardLogger(), Blobs: blobs})
	require.NoError(t, err)
	res := first.Session.Login(context.Background(), domainauth.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.True(t, res.Success, res.Error)

	second, err := NewApp(AppOptions{Config: cfg, Logger: discardLogger(), Blobs: blobs})
	require.NoError(t, err)

	assert.True(t, second.Initialize(context.Background()))
	assert.True(t, second.Session.IsAuthenticated())
	assert.Equal(t, "token-42", second.API.Token())
	assert.True(t, second.Authz.HasPermission("post", "list"))
}

func TestApp_TokenExpiryResetsCatalog(t *testing.T) {
	api := newFakeBackend(t)
	api.JSON("GET /tags", http.StatusOK, map[string]any{"data": []entity.Tag{{ID: 1, Name: "go"}}})

	app, err := NewApp(AppOptions{Config: testConfig(api.URL()), Logger: discardLogger(), Blobs: memory.NewBlobStore()})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })

	ctx := context.Background()
	res := app.Session.Login(ctx, domainauth.LoginRequest{Email: "ada@example.com", Password: "pw"})
	require.True(t, res.Success, res.Error)
	_, err = app.Catalog.Tags.List(ctx, entity.ListParams{})
	require.NoError(t, err)
	require.Len(t, app.Catalog.Tags.Items(), 1)

	api.JSON("GET /tags", http.StatusUnauthorized, map[string]string{"message": "Unauthorized", "error": "token has expired"})
	_, err = app.Catalog.Tags.List(ctx, entity.ListParams{})
	require.Error(t, err)

	assert.False(t, app.Session.IsAuthenticated())
	assert.Empty(t, app.Catalog.Tags.Items())
}

func TestNewApp_FileStorage(t *testing.T) {
	api := newFakeBackend(t)
	cfg := testConfig(api.URL())
	cfg.Storage = config.StorageConfig{Driver: config.StorageDriverFile, Dir: t.TempDir()}

	app, err := NewApp(AppOptions{Config: cfg, Logger: discardLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, app.Close()) })

	require.NoError(t, app.Preferences.SetCurrentLanguage(context.Background(), "fr"))
	data, err := app.Blobs.Get(context.Background(), ports.KeyPreferences)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fr"`)
}

func TestNewApp_RedisStorageUnavailable(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Storage.Driver = config.StorageDriverRedis
	cfg.Redis = config.RedisConfig{URI: "127.0.0.1:1"}

	_, err := NewApp(AppOptions{Config: cfg, Logger: discardLogger()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open storage")
}

func TestServe_StopsWhenContextCancelled(t *testing.T) {
	api := newFakeBackend(t)
	cfg := testConfig(api.URL())
	cfg.HTTP.Addr = "127.0.0.1:0"

	app, err := NewApp(AppOptions{Config: cfg, Logger: discardLogger(), Blobs: memory.NewBlobStore()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, app) }()

	require.True(t, testutil.WaitForCondition(func() bool { return api.Count("GET /health") > 0 }, 2*time.Second, 10*time.Millisecond))
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}
