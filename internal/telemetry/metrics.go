package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nascon-platform/internal/apperr"
)

const namespace = "nascon"

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	registrations *prometheus.CounterVec
	bookings      *prometheus.CounterVec
	scores        prometheus.Counter
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Event registration attempts by outcome.",
		}, []string{"outcome"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Accommodation booking attempts by outcome.",
		}, []string{"outcome"}),
		scores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_submitted_total",
			Help:      "Accepted score submissions.",
		}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.registrations, m.bookings, m.scores)
	return m
}

// NewRegistry returns a registry with the Go and process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRegistration(err error) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) ObserveBooking(err error) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(Outcome(err)).Inc()
}

func (m *Metrics) ObserveScore() {
	if m == nil {
		return
	}
	m.scores.Inc()
}

// Outcome turns an operation result into a low-cardinality label value.
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	kind := apperr.KindOf(err)
	if kind == apperr.Unknown {
		return "error"
	}
	return string(kind)
}
