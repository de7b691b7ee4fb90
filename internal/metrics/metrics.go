// Package metrics holds the Prometheus collectors shared by the storage and
// HTTP layers. They register with the default registry, served on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "careervr"

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "operations_total",
			Help:      "Repository mutations by outcome (ok or failure kind).",
		},
		[]string{"repo", "op", "outcome"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "repository",
			Name:      "operation_duration_seconds",
			Help:      "Latency of repository mutations.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"repo", "op"},
	)

	migratedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migrator",
			Name:      "records_total",
			Help:      "Records visited by schema passes, by outcome.",
		},
		[]string{"pass", "outcome"},
	)

	writesAllowed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "writes_allowed",
			Help:      "1 when the write gate permits mutations.",
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route template and status code.",
		},
		[]string{"route", "method", "code"},
	)
)

// ObserveOperation records one repository mutation. outcome is "ok" or the
// failure kind.
func ObserveOperation(repo, op, outcome string, elapsed time.Duration) {
	operationsTotal.WithLabelValues(repo, op, outcome).Inc()
	operationDuration.WithLabelValues(repo, op).Observe(elapsed.Seconds())
}

func AddMigrated(pass, outcome string, n int) {
	if n <= 0 {
		return
	}
	migratedRecords.WithLabelValues(pass, outcome).Add(float64(n))
}

func SetWritesAllowed(allowed bool) {
	if allowed {
		writesAllowed.Set(1)
		return
	}
	writesAllowed.Set(0)
}

func ObserveRequest(route, method string, code int) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
}
