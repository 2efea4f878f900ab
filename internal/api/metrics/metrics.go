// Package metrics defines and registers all custom Prometheus metrics for the
// AI messenger relay. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation through promauto.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/99minutos/ai-messenger/internal/core/domain"
)

const namespace = "messenger"

// ── Relay metrics ─────────────────────────────────────────────────────────────

// RelayOutcomesTotal counts resolved messages.
// Labels:
//   - status: "delivered" or "failed"
//   - reason: provider failure kind ("timeout", "transient", "rejected") or "none"
var RelayOutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_outcomes_total",
		Help:      "Total number of messages resolved by the relay.",
	},
	[]string{"status", "reason"},
)

// RelayAttemptsTotal counts provider calls, including the single transient retry.
var RelayAttemptsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_provider_attempts_total",
		Help:      "Total number of AI provider calls made by the relay.",
	},
)

// RelayErrorsTotal counts relay failures that left a message unresolved.
// Label:
//   - stage: where the failure happened (e.g. "process", "sweep")
var RelayErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "relay_errors_total",
		Help:      "Total number of relay errors that left a message pending.",
	},
	[]string{"stage"},
)

// RelayQueueDepth tracks the current number of messages waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var RelayQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "relay_queue_depth",
		Help:      "Current number of messages pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// RelayDuration measures provider round trips from the first attempt to resolution.
var RelayDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "relay_duration_seconds",
		Help:      "Duration from the first provider call to ledger resolution.",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	},
	[]string{"status"},
)

// ── API metrics ───────────────────────────────────────────────────────────────

// MessagesSubmittedTotal counts messages accepted by the send endpoint.
var MessagesSubmittedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_submitted_total",
		Help:      "Total number of messages accepted for relay.",
	},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "invalid", "throttled" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// RelayObserver records relay outcomes into the metrics above.
type RelayObserver struct{}

func (RelayObserver) Resolved(status domain.MessageStatus, failure domain.ProviderErrorKind, attempts int, elapsed time.Duration) {
	reason := "none"
	if failure != "" {
		reason = string(failure)
	}
	RelayOutcomesTotal.WithLabelValues(string(status), reason).Inc()
	RelayAttemptsTotal.Add(float64(attempts))
	RelayDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}
