package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/target/mmk-admin-console/config"
	"github.com/target/mmk-admin-console/internal/apiclient"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	obserrors "github.com/target/mmk-admin-console/internal/observability/errors"
	"github.com/target/mmk-admin-console/internal/ports"
)

const msgAPICommunication = "API communication error"

// HealthProber performs one backend reachability probe.
type HealthProber interface {
	Health(ctx context.Context, path string, timeout time.Duration) error
}

var _ HealthProber = (*apiclient.Client)(nil)

// HealthStatus is a snapshot of backend reachability.
type HealthStatus struct {
	IsHealthy     bool       `json:"isHealthy"`
	IsChecking    bool       `json:"isChecking"`
	LastError     string     `json:"lastError,omitempty"`
	LastChecked   *time.Time `json:"lastChecked,omitempty"`
	RetryAttempts int        `json:"retryAttempts"`
}

// APIHealthOptions groups dependencies for APIHealth.
type APIHealthOptions struct {
	Prober    HealthProber        // Required: backend probe
	Config    config.HealthConfig // Probe path, timeout, interval and retry tuning
	Navigator ports.Navigator     // Optional: target of connectivity redirects
	ErrorPath string              // Route the navigator is sent to on connectivity failures
	Logger    *slog.Logger        // Optional: structured logger
	Now       func() time.Time    // Optional: clock override
}

// APIHealth tracks whether the backend is reachable. It starts healthy and
// flips on a failed probe or a connectivity error reported by the client.
type APIHealth struct {
	prober    HealthProber
	cfg       config.HealthConfig
	navigator ports.Navigator
	errorPath string
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	status HealthStatus

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewAPIHealth constructs a new APIHealth.
func NewAPIHealth(opts APIHealthOptions) *APIHealth {
	if opts.Prober == nil {
		panic("APIHealth requires a Prober")
	}
	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &APIHealth{
		prober:    opts.Prober,
		cfg:       cfg,
		navigator: opts.Navigator,
		errorPath: opts.ErrorPath,
		logger:    logger.With("component", "api_health"),
		now:       now,
		status:    HealthStatus{IsHealthy: true},
	}
}

// Status returns the current snapshot.
func (h *APIHealth) Status() HealthStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.status
	if s.LastChecked != nil {
		t := *s.LastChecked
		s.LastChecked = &t
	}
	return s
}

// IsHealthy reports the last known reachability.
func (h *APIHealth) IsHealthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status.IsHealthy
}

// Check probes the backend and records the outcome. A non-silent check
// while another one is running returns the current snapshot without probing.
func (h *APIHealth) Check(ctx context.Context, silent bool) HealthStatus {
	h.mu.Lock()
	if h.status.IsChecking && !silent {
		s := h.status
		h.mu.Unlock()
		return s
	}
	h.status.IsChecking = true
	h.mu.Unlock()

	err := h.prober.Health(ctx, h.cfg.Path, h.cfg.Timeout)
	checked := h.now()

	h.mu.Lock()
	h.status.IsChecking = false
	h.status.LastChecked = &checked
	if err == nil {
		h.status.IsHealthy = true
		h.status.LastError = ""
		h.status.RetryAttempts = 0
	} else {
		h.status.IsHealthy = false
		h.status.LastError = HealthMessage(err)
	}
	s := h.status
	h.mu.Unlock()

	if err != nil && !silent {
		h.logger.ErrorContext(ctx, "api health check failed",
			"error", err,
			"error_type", obserrors.Classify(err),
			"message", s.LastError,
		)
	}
	return s
}

// HealthMessage is the operator-facing text for a failed probe.
func HealthMessage(err error) string {
	if err == nil {
		return ""
	}
	code := apiclient.TransportCode(err)
	status := apperrors.GetStatus(err)
	if code != "" || status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		return apiclient.ConnectivityMessage(code, status)
	}
	if apperrors.IsConnectivity(err) {
		return "Network connection failed"
	}
	if msg := apperrors.Message(err); msg != "" {
		return msg
	}
	return msgAPICommunication
}

// MarkUnhealthy records a connectivity failure observed outside a probe.
func (h *APIHealth) MarkUnhealthy(err error) {
	checked := h.now()
	h.mu.Lock()
	h.status.IsHealthy = false
	h.status.LastError = HealthMessage(err)
	h.status.LastChecked = &checked
	h.mu.Unlock()
}

// HandleConnectivityError is the API client's connectivity hook: it marks
// the backend unhealthy and sends the console to the error page.
func (h *APIHealth) HandleConnectivityError(ctx context.Context, err *apperrors.AppError) {
	h.MarkUnhealthy(err)
	h.logger.WarnContext(ctx, "api connectivity error", "error", err)
	if h.navigator == nil || h.errorPath == "" {
		return
	}
	if navErr := h.navigator.NavigateTo(ctx, h.errorPath); navErr != nil {
		h.logger.WarnContext(ctx, "navigate to api error page failed", "error", navErr)
	}
}

// RetryConnection waits the retry delay and probes again, up to the
// configured number of attempts. It reports whether the backend is healthy.
func (h *APIHealth) RetryConnection(ctx context.Context) (bool, error) {
	h.mu.Lock()
	if h.status.RetryAttempts >= h.cfg.MaxRetries {
		h.mu.Unlock()
		return false, nil
	}
	h.status.RetryAttempts++
	h.mu.Unlock()

	if err := sleepCtx(ctx, h.cfg.RetryDelay); err != nil {
		return false, err
	}
	return h.Check(ctx, false).IsHealthy, nil
}

// Reset returns to the initial healthy state.
func (h *APIHealth) Reset() {
	h.mu.Lock()
	h.status = HealthStatus{IsHealthy: true}
	h.mu.Unlock()
}

// Run probes immediately and then at the configured interval until ctx is
// cancelled. Returns nil on graceful shutdown.
func (h *APIHealth) Run(ctx context.Context) error {
	h.logger.InfoContext(ctx, "starting api health monitor", "interval", h.cfg.Interval, "path", h.cfg.Path)

	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	h.Check(ctx, true)
	for {
		select {
		case <-ctx.Done():
			h.logger.InfoContext(ctx, "api health monitor stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			h.Check(ctx, true)
		}
	}
}

// Start runs the monitor in the background. Calling it twice is a no-op.
func (h *APIHealth) Start(ctx context.Context) {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	if h.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	h.cancel = cancel
	h.done = done
	go func() {
		defer close(done)
		_ = h.Run(ctx)
	}()
}

// Stop halts a monitor started with Start and waits for it to exit.
func (h *APIHealth) Stop() {
	h.runMu.Lock()
	cancel, done := h.cancel, h.done
	h.cancel, h.done = nil, nil
	h.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
