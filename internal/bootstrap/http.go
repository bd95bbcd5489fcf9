package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// HTTPServerConfig contains configuration for the console HTTP server.
type HTTPServerConfig struct {
	Addr    string
	Handler http.Handler
	Logger  *slog.Logger
}

// StartHTTPServer creates and starts the HTTP server. Listen failures are
// delivered on the returned channel.
func StartHTTPServer(cfg HTTPServerConfig) (*http.Server, <-chan error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := cfg.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = "127.0.0.1:8090"
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      cfg.Handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			errCh <- err
		}
	}()

	return server, errCh
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	if server == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("HTTP server stopped")
	return nil
}

// Serve runs the console HTTP server and the background health monitor
// until ctx is done, a SIGINT/SIGTERM arrives, or the listener fails.
func Serve(ctx context.Context, app *App) error {
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.Initialize(serviceCtx)
	app.Health.Start(serviceCtx)
	defer app.Health.Stop()

	server, errCh := StartHTTPServer(HTTPServerConfig{
		Addr:    app.Config.HTTP.Addr,
		Handler: app.Handler(),
		Logger:  app.Logger,
	})

	return waitForShutdown(shutdownConfig{
		ctx:    serviceCtx,
		cancel: cancel,
		errCh:  errCh,
		server: server,
		logger: app.Logger,
	})
}

type shutdownConfig struct {
	ctx    context.Context
	cancel context.CancelFunc
	errCh  <-chan error
	server *http.Server
	logger *slog.Logger
}

// waitForShutdown waits for shutdown signal or server error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down console...")
		cfg.cancel()
		return ShutdownHTTPServer(cfg.ctx, cfg.server, cfg.logger)
	case <-cfg.ctx.Done():
		return ShutdownHTTPServer(cfg.ctx, cfg.server, cfg.logger)
	case err := <-cfg.errCh:
		cfg.cancel()
		if stopErr := ShutdownHTTPServer(cfg.ctx, cfg.server, cfg.logger); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}
