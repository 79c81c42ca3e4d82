package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Levels(t *testing.T) {
	t.Parallel()

	quiet := NewLogger(false, false)
	assert.False(t, quiet.Enabled(context.Background(), -4))

	verbose := NewLogger(true, true)
	assert.True(t, verbose.Enabled(context.Background(), -4))
}

func TestPrometheusHandler_ServesMetrics(t *testing.T) {
	t.Parallel()

	handler, meter, err := PrometheusHandler()
	require.NoError(t, err)
	require.NotNil(t, meter)

	fm, err := NewFleetMetrics(meter)
	require.NoError(t, err)

	ctx := context.Background()
	fm.RecordBatch(ctx, "ghw")
	fm.RecordThreads(ctx, "hack", 95)
	fm.RecordIncident(ctx, "OVER_HACK")
	fm.RecordTick(ctx, 12*time.Millisecond, 305)
	fm.RecordTargets(ctx, "ready", 2)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hackfang_batches_dispatched")
	assert.Contains(t, rec.Body.String(), "hackfang_threads_launched")
}

func TestFleetMetrics_IgnoresNonPositiveThreads(t *testing.T) {
	t.Parallel()

	_, meter, err := PrometheusHandler()
	require.NoError(t, err)

	fm, err := NewFleetMetrics(meter)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		fm.RecordThreads(context.Background(), "grow", 0)
	})
}

func TestHealthHandler_AlwaysOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	HealthHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyHandler_FailingCheckNamedInBody(t *testing.T) {
	t.Parallel()

	failing := NamedCheck{
		Name:  "first-tick",
		Check: func(context.Context) error { return errors.New("not yet") },
	}

	rec := httptest.NewRecorder()
	ReadyHandler(failing).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unavailable","failed":"first-tick","reason":"not yet"}`, rec.Body.String())
}

func TestReadyHandler_FirstFailureWins(t *testing.T) {
	t.Parallel()

	calls := 0
	first := NamedCheck{
		Name:  "bridge",
		Check: func(context.Context) error { return errors.New("down") },
	}
	second := NamedCheck{
		Name: "never-reached",
		Check: func(context.Context) error {
			calls++

			return nil
		},
	}

	rec := httptest.NewRecorder()
	ReadyHandler(first, second).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "bridge")
	assert.Zero(t, calls)
}

func TestReadyHandler_NoChecksIsReady(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	ReadyHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
