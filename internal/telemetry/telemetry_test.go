package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nascon-platform/internal/apperr"
)

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("db down")))
	assert.Equal(t, "CAPACITY_EXCEEDED", Outcome(fmt.Errorf("x: %w", apperr.New(apperr.CapacityExceeded, "full"))))
}

func TestMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveRegistration(nil)
	m.ObserveRegistration(nil)
	m.ObserveRegistration(apperr.New(apperr.CapacityExceeded, "Event is full"))
	m.ObserveBooking(apperr.New(apperr.DuplicateAction, "already booked"))
	m.ObserveScore()
	m.ObserveHTTP("/api/events", http.MethodGet, 200, 10*time.Millisecond)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.registrations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.registrations.WithLabelValues("CAPACITY_EXCEEDED")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.bookings.WithLabelValues("DUPLICATE_ACTION")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.scores))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.httpRequests.WithLabelValues("/api/events", "GET", "200")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRegistration(nil)
		m.ObserveBooking(nil)
		m.ObserveScore()
		m.ObserveHTTP("/", "GET", 200, time.Millisecond)
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewMetrics(reg)
	m.ObserveScore()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nascon_scores_submitted_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "", "nascon-test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("warn", "json", &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("event_id", "7").Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "nascon", line["service"])

	buf.Reset()
	fallback := NewLogger("nonsense", "json", &buf)
	fallback.Info().Msg("default level is info")
	assert.Contains(t, buf.String(), "default level is info")
}
