// Package metrics exposes Prometheus collectors for the ledger and its
// HTTP surface.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"gastos/internal/ledger"
)

var LedgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gastos",
	Subsystem: "ledger",
	Name:      "mutations_total",
	Help:      "Committed ledger mutations by record kind and operation.",
}, []string{"kind", "op"})

var PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gastos",
	Subsystem: "ledger",
	Name:      "persistence_failures_total",
	Help:      "Mutations kept in memory that could not be written to the backing store.",
}, []string{"kind"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gastos",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route and status code.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "gastos",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// Notifier counts ledger events. It never fails.
type Notifier struct{}

func (Notifier) Notify(_ context.Context, ev ledger.Event) error {
	LedgerMutations.WithLabelValues(ev.Kind, string(ev.Op)).Inc()
	if !ev.Persisted {
		PersistenceFailures.WithLabelValues(ev.Kind).Inc()
	}
	return nil
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
