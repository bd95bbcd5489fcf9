package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/mmk-admin-console/config"
	"github.com/target/mmk-admin-console/internal/adapters/flash"
	"github.com/target/mmk-admin-console/internal/apiclient"
	"github.com/target/mmk-admin-console/internal/guard"
	httpx "github.com/target/mmk-admin-console/internal/http"
	"github.com/target/mmk-admin-console/internal/ports"
	"github.com/target/mmk-admin-console/internal/service"
)

// AppOptions contains the inputs for NewApp.
type AppOptions struct {
	Config config.AppConfig
	Logger *slog.Logger
	// Blobs overrides the configured storage driver (tests).
	Blobs ports.BlobStore
	// HTTPClient overrides the backend HTTP client (tests).
	HTTPClient *http.Client
}

// App is the wired console: one backend client, one session and one
// authorization cache shared by every surface.
type App struct {
	Config config.AppConfig
	Logger *slog.Logger

	Blobs       ports.BlobStore
	API         *apiclient.Client
	Authz       *service.AuthorizationCache
	Session     *service.SessionStore
	Health      *service.APIHealth
	Guards      *guard.Chain
	Catalog     *service.Catalog
	Preferences *service.Preferences
	Dashboard   *service.Dashboard
	Navigator   *flash.Navigator
	Notifier    *flash.Notifier

	closers []func() error
}

// NewApp builds every console service from configuration.
func NewApp(opts AppOptions) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	cfg.Sanitize()

	app := &App{Config: cfg, Logger: logger}

	blobs := opts.Blobs
	if blobs == nil {
		store, closeStore, err := OpenBlobStore(StorageOptions{
			Storage:     cfg.Storage,
			RedisConfig: cfg.Redis,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		blobs = store
		app.closers = append(app.closers, closeStore)
	}
	app.Blobs = blobs

	client, err := apiclient.New(apiclient.Options{
		BaseURL:   cfg.API.BaseURL,
		APIKey:    cfg.API.Key,
		KeyHeader: cfg.API.KeyHeader,
		Timeout:   cfg.API.Timeout,
		Client:    opts.HTTPClient,
		Logger:    logger,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create api client: %w", err), app.Close())
	}
	app.API = client

	app.Navigator = flash.NewNavigator(logger)
	app.Notifier = flash.NewNotifier(logger)

	app.Authz = service.NewAuthorizationCache(service.AuthorizationCacheOptions{
		API:    client,
		Config: cfg.Authz,
		Logger: logger,
	})
	app.Session = service.NewSessionStore(service.SessionStoreOptions{
		Deps: service.SessionDeps{
			API:       client,
			Authz:     app.Authz,
			Blobs:     blobs,
			Navigator: app.Navigator,
		},
		Config: service.SessionConfig{Routes: cfg.Routes, AwaitAuthzInit: cfg.Authz.AwaitInit},
		Logger: logger,
	})
	app.Health = service.NewAPIHealth(service.APIHealthOptions{
		Prober:    client,
		Config:    cfg.Health,
		Navigator: app.Navigator,
		ErrorPath: cfg.Routes.APIError,
		Logger:    logger,
	})

	client.OnTokenExpired(app.Session.HandleTokenExpired)
	client.OnConnectivityError(app.Health.HandleConnectivityError)

	app.Guards = newGuardChain(app, logger)
	app.Catalog = service.NewCatalog(service.CatalogOptions{API: client, Notifier: app.Notifier, Logger: logger})
	app.Session.OnClear(app.Catalog.Reset)
	app.Preferences = service.NewPreferences(service.PreferencesOptions{Blobs: blobs, Logger: logger})
	app.Dashboard = service.NewDashboard(service.DashboardOptions{Blobs: blobs, Session: app.Session, Roles: app.Authz})

	return app, nil
}

// newGuardChain orders the guards health, auth, permission.
func newGuardChain(app *App, logger *slog.Logger) *guard.Chain {
	policy := guard.DefaultPolicy(app.Config.Routes)
	return guard.NewChain(guard.ChainOptions{
		Guards: []guard.Guard{
			guard.NewAPIHealthGuard(guard.APIHealthGuardOptions{Health: app.Health, Policy: policy}),
			guard.NewAuthGuard(app.Session, policy),
			guard.NewPermissionGuard(guard.PermissionGuardOptions{
				Session: app.Session,
				Authz:   app.Authz,
				Policy:  policy,
				Logger:  logger,
			}),
		},
		Navigator: app.Navigator,
		Notifier:  app.Notifier,
		Logger:    logger,
	})
}

// Initialize restores persisted preferences and the previous session.
// It reports whether a session was restored.
func (a *App) Initialize(ctx context.Context) bool {
	a.Preferences.Load(ctx)
	restored := a.Session.Initialize(ctx)
	if restored {
		a.Dashboard.Initialize(ctx)
	}
	a.Logger.Info("console initialized", "session_restored", restored)
	return restored
}

// Handler returns the console HTTP handler with the standard middleware.
// Order: Recover -> RequestID -> Logging -> Router.
func (a *App) Handler() http.Handler {
	router := httpx.NewRouter(httpx.RouterServices{
		Session:     a.Session,
		Authz:       a.Authz,
		Health:      a.Health,
		Guards:      a.Guards,
		Catalog:     a.Catalog,
		Preferences: a.Preferences,
		Dashboard:   a.Dashboard,
		Routes:      a.Config.Routes,
		Logger:      a.Logger,
	})

	h := httpx.Logging(a.Logger)(router)
	h = httpx.RequestID()(h)
	h = httpx.Recover(a.Logger)(h)
	return h
}

// Close releases storage connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
