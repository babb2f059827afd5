// Package metrics holds the Prometheus collectors shared by the relay.
// A nil *Metrics is valid and records nothing, which keeps tests free of
// registry plumbing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relay"

// Refresh outcomes
const (
	RefreshExchanged = "exchanged"
	RefreshReused    = "reused"
	RefreshShared    = "shared"
	RefreshFailed    = "failed"
)

type Metrics struct {
	backendRequests *prometheus.CounterVec
	refreshes       *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Calls made to the backend API by method and response status.",
		}, []string{"method", "status"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Refresh token exchanges by outcome.",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Inbound request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.backendRequests, m.refreshes, m.httpDuration)
	return m
}

// ObserveBackend counts one backend call. status is "error" for transport failures.
func (m *Metrics) ObserveBackend(method, status string) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(method, status).Inc()
}

func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
