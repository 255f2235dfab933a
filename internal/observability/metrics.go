package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	upstreamRequestsTotal *prometheus.CounterVec
	upstreamDuration      *prometheus.HistogramVec
	separationsTotal      *prometheus.CounterVec
	separationDuration    *prometheus.HistogramVec
	separationsInFlight   prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemsplit_http_requests_total",
				Help: "Total number of HTTP requests handled.",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stemsplit_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		upstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemsplit_upstream_requests_total",
				Help: "Total requests to the remote separation service.",
			},
			[]string{"endpoint", "status"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stemsplit_upstream_request_duration_seconds",
				Help:    "Remote separation request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "status"},
		),
		separationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stemsplit_separations_total",
				Help: "Total separation attempts by engine, detected input format and outcome.",
			},
			[]string{"engine", "format", "outcome"},
		),
		separationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "stemsplit_separation_duration_seconds",
				Help: "Separation duration in seconds, including queue wait.",
				// Separations run far longer than typical HTTP handlers.
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"engine", "format", "outcome"},
		),
		separationsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "stemsplit_separations_in_flight",
				Help: "Number of separation requests currently being processed.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.upstreamRequestsTotal,
		m.upstreamDuration,
		m.separationsTotal,
		m.separationDuration,
		m.separationsInFlight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "UNKNOWN"
	}
	statusLabel := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(route, method, statusLabel).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, statusLabel).Observe(duration.Seconds())
}

func (m *Metrics) ObserveUpstream(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	statusLabel := strconv.Itoa(status)
	m.upstreamRequestsTotal.WithLabelValues(endpoint, statusLabel).Inc()
	m.upstreamDuration.WithLabelValues(endpoint, statusLabel).Observe(duration.Seconds())
}

func (m *Metrics) ObserveSeparation(engine, format, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if engine == "" {
		engine = "unknown"
	}
	if format == "" {
		format = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.separationsTotal.WithLabelValues(engine, format, outcome).Inc()
	m.separationDuration.WithLabelValues(engine, format, outcome).Observe(duration.Seconds())
}

func (m *Metrics) SeparationStarted() {
	if m == nil {
		return
	}
	m.separationsInFlight.Inc()
}

func (m *Metrics) SeparationDone() {
	if m == nil {
		return
	}
	m.separationsInFlight.Dec()
}
