// File: internal/infra/metrics/dispatch.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(dispatchTasksTotal, dispatchRetriesTotal, ordersTerminalTotal)
}

var dispatchTasksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dispatch_tasks_total",
		Help: "Dispatch attempts by provider and outcome (accepted/rejected/unavailable/duplicate/skipped).",
	},
	[]string{"provider", "outcome"},
)

var dispatchRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dispatch_retries_total",
		Help: "Re-enqueued dispatch tasks by kind (rejected/transient).",
	},
	[]string{"kind"},
)

var ordersTerminalTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "orders_terminal_total",
		Help: "Orders reaching a terminal state (fulfilled/cancelled/abandoned/quarantined).",
	},
	[]string{"state"},
)

func IncDispatchTask(provider, outcome string) {
	dispatchTasksTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}

func IncDispatchRetry(kind string) {
	dispatchRetriesTotal.WithLabelValues(norm(kind)).Inc()
}

func IncOrderTerminal(state string) {
	ordersTerminalTotal.WithLabelValues(norm(state)).Inc()
}
