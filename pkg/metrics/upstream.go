package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// UpstreamMetrics records the behaviour of the marketplace API client.
type UpstreamMetrics struct {
	pages    *prometheus.CounterVec
	retries  *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewUpstreamMetrics registers the upstream client metrics on the provided registerer.
func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	if reg == nil {
		return &UpstreamMetrics{}
	}
	pages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_pages_fetched_total",
		Help: "Order pages fetched from the marketplace API.",
	}, []string{"endpoint"})
	retries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_retries_total",
		Help: "Transient upstream failures that were retried.",
	}, []string{"endpoint", "reason"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upstream_failures_total",
		Help: "Terminal upstream failures surfaced to callers.",
	}, []string{"endpoint"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "upstream_fetch_duration_seconds",
		Help:    "Duration of whole upstream fetches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	reg.MustRegister(pages, retries, failures, duration)
	return &UpstreamMetrics{
		pages:    pages,
		retries:  retries,
		failures: failures,
		duration: duration,
	}
}

// IncPage counts one fetched page for the named endpoint.
func (m *UpstreamMetrics) IncPage(endpoint string) {
	if m == nil || m.pages == nil {
		return
	}
	m.pages.WithLabelValues(normalizeLabel(endpoint)).Inc()
}

// IncRetry counts one retried transient failure.
func (m *UpstreamMetrics) IncRetry(endpoint, reason string) {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.WithLabelValues(normalizeLabel(endpoint), normalizeLabel(reason)).Inc()
}

// IncFailure counts one terminal failure.
func (m *UpstreamMetrics) IncFailure(endpoint string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(endpoint)).Inc()
}

// ObserveFetch records how long a whole fetch took.
func (m *UpstreamMetrics) ObserveFetch(endpoint string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(endpoint)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
