package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(providerCallLatencyMs) }

var providerCallLatencyMs = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "provider_call_latency_ms",
		Help:    "Provider HTTP call latency in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
	},
	[]string{"provider", "call", "success"},
)

func ObserveProviderCall(provider, call string, ms int, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	providerCallLatencyMs.WithLabelValues(norm(provider), norm(call), s).Observe(float64(ms))
}
