// Package metrics exposes Prometheus collectors for upstream fetches and the price cache.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "metalprice"

// Fetch results.
const (
	ResultOK            = "ok"
	ResultFailed        = "failed"
	ResultNotConfigured = "not_configured"
	ResultEmpty         = "empty"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	FetchTotal       *prometheus.CounterVec
	CacheTotal       *prometheus.CounterVec
	UpstreamDuration prometheus.Histogram
	LastSuccess      prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_total",
			Help:      "Upstream price fetches by provider and result.",
		}, []string{"provider", "result"}),
		CacheTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Price cache lookups by outcome.",
		}, []string{"outcome"}),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_seconds",
			Help:      "Latency of upstream price requests.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful upstream fetch.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FetchTotal, m.CacheTotal, m.UpstreamDuration, m.LastSuccess)
	}
	return m
}

func (m *Metrics) ObserveFetch(provider, result string) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(provider, result).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.CacheTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveUpstream(d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamDuration.Observe(d.Seconds())
}

func (m *Metrics) MarkSuccess(at time.Time) {
	if m == nil {
		return
	}
	m.LastSuccess.Set(float64(at.Unix()))
}
