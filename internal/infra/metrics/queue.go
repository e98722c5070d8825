package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(queueDepth) }

var queueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "dispatch_queue_depth",
		Help: "Waiting dispatch tasks per priority lane.",
	},
	[]string{"lane"},
)

func SetQueueDepth(lane string, depth int) {
	queueDepth.WithLabelValues(norm(lane)).Set(float64(depth))
}
