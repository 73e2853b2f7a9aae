package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the HTTP API.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec   // labels: method, route, status
	RequestDuration *prometheus.HistogramVec // labels: method, route
	InFlight        prometheus.Gauge

	gatherer prometheus.Gatherer
}

func newCollectors() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_api",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, matched route and status code.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "climate_api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and matched route.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_api",
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served.",
		}),
	}
}

// NewMetrics creates and registers all API metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newCollectors()
	prometheus.MustRegister(m.RequestsTotal, m.RequestDuration, m.InFlight)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsForTesting registers the collectors with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newCollectors()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.InFlight)
	m.gatherer = reg
	return m
}

// Handler exposes the registry these metrics were registered with.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == prometheus.DefaultGatherer {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
