package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(chatTurnsTotal, sessionConflictsTotal) }

var chatTurnsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_turns_total",
		Help: "Processed chat turns by resulting intent action.",
	},
	[]string{"action"},
)

var sessionConflictsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chat_session_conflicts_total",
		Help: "Turns rejected because another turn held the session lock.",
	},
)

func IncChatTurn(action string) { chatTurnsTotal.WithLabelValues(norm(action)).Inc() }
func IncSessionConflict()       { sessionConflictsTotal.Inc() }
