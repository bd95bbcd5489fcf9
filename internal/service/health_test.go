package service

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/mmk-admin-console/config"
	"github.com/target/mmk-admin-console/internal/apiclient"
	apperrors "github.com/target/mmk-admin-console/internal/errors"
	"github.com/target/mmk-admin-console/internal/mocks/memory"
	"github.com/target/mmk-admin-console/internal/testutil"
)

type proberFunc func(ctx context.Context, path string, timeout time.Duration) error

func (f proberFunc) Health(ctx context.Context, path string, timeout time.Duration) error {
	return f(ctx, path, timeout)
}

func newTestHealth(p HealthProber, nav *memory.Navigator) *APIHealth {
	return NewAPIHealth(APIHealthOptions{
		Prober:    p,
		Config:    config.HealthConfig{Path: "/health", Timeout: time.Second, Interval: time.Second, MaxRetries: 2},
		Navigator: nav,
		ErrorPath: "/error/api-connection",
		Now:       testutil.FixedTimeFunc(testutil.TestTime()),
	})
}

func TestAPIHealth_StartsHealthy(t *testing.T) {
	h := newTestHealth(proberFunc(func(context.Context, string, time.Duration) error { return nil }), nil)
	s := h.Status()
	assert.True(t, s.IsHealthy)
	assert.Nil(t, s.LastChecked)
}

func TestAPIHealth_CheckAgainstBackend(t *testing.T) {
	api := testutil.NewFakeAPI(t)
	c, err := apiclient.New(apiclient.Options{BaseURL: api.URL()})
	require.NoError(t, err)
	api.Sequence("GET /health",
		func(w http.ResponseWriter, _ *http.Request) {
			testutil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{})
		},
		func(w http.ResponseWriter, _ *http.Request) {
			testutil.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		},
	)
	h := newTestHealth(c, nil)

	s := h.Check(context.Background(), true)
	assert.False(t, s.IsHealthy)
	assert.Equal(t, "Service temporarily unavailable", s.LastError)
	require.NotNil(t, s.LastChecked)
	assert.Equal(t, testutil.TestTime(), *s.LastChecked)

	s = h.Check(context.Background(), false)
	assert.True(t, s.IsHealthy)
	assert.Empty(t, s.LastError)
	assert.Equal(t, 2, api.Count("GET /health"))
}

func TestHealthMessage(t *testing.T) {
	refused := apiclient.Classify(apiclient.Failure{Err: syscall.ECONNREFUSED})
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"refused", refused, "Cannot connect to server - Connection refused"},
		{"500", apperrors.Connectivity("boom").WithStatus(http.StatusInternalServerError), "Server internal error"},
		{"other connectivity", apperrors.Connectivity("socket closed"), "Network connection failed"},
		{"plain", errors.New("weird"), "weird"},
		{"empty", apperrors.Unknown(""), msgAPICommunication},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HealthMessage(tt.err))
		})
	}
}

func TestAPIHealth_HandleConnectivityError(t *testing.T) {
	nav := &memory.Navigator{}
	h := newTestHealth(proberFunc(func(context.Context, string, time.Duration) error { return nil }), nav)

	h.HandleConnectivityError(context.Background(), apperrors.Connectivity("down").WithStatus(http.StatusServiceUnavailable))

	assert.False(t, h.IsHealthy())
	assert.Equal(t, "Service temporarily unavailable", h.Status().LastError)
	assert.Equal(t, []string{"/error/api-connection"}, nav.Paths())

	h.Reset()
	assert.True(t, h.IsHealthy())
	assert.Empty(t, h.Status().LastError)
}

func TestAPIHealth_RetryConnection(t *testing.T) {
	var calls atomic.Int32
	h := newTestHealth(proberFunc(func(context.Context, string, time.Duration) error {
		calls.Add(1)
		return apperrors.Connectivity("down")
	}), nil)
	ctx := context.Background()

	ok, err := h.RetryConnection(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = h.RetryConnection(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, h.Status().RetryAttempts)

	ok, err = h.RetryConnection(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int32(2), calls.Load(), "attempts are capped")
}

func TestAPIHealth_RetryConnection_Cancelled(t *testing.T) {
	h := NewAPIHealth(APIHealthOptions{
		Prober: proberFunc(func(context.Context, string, time.Duration) error { return nil }),
		Config: config.HealthConfig{RetryDelay: time.Hour, MaxRetries: 3},
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.RetryConnection(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAPIHealth_StartStop(t *testing.T) {
	var calls atomic.Int32
	h := newTestHealth(proberFunc(func(context.Context, string, time.Duration) error {
		calls.Add(1)
		return nil
	}), nil)

	h.Start(context.Background())
	h.Start(context.Background())
	require.True(t, testutil.WaitForCondition(func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond))
	h.Stop()
	h.Stop()

	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, calls.Load(), "no probes after Stop")
}
