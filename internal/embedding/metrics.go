package embedding

import "github.com/prometheus/client_golang/prometheus"

var (
	generateDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "embedd",
			Subsystem: "embedding",
			Name:      "generate_duration_seconds",
			Help:      "Duration of tokenize, forward and pooling per request",
			Buckets:   prometheus.DefBuckets,
		},
	)

	tokensPerRequest = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "embedd",
			Subsystem: "embedding",
			Name:      "tokens",
			Help:      "Tokens per embedded text after truncation",
			Buckets:   []float64{8, 16, 32, 64, 128, 256, 512, 1024},
		},
	)

	truncatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "embedd",
			Subsystem: "embedding",
			Name:      "truncated_total",
			Help:      "Token sequences cut to the maximum length",
		},
	)

	oomTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "embedd",
			Subsystem: "embedding",
			Name:      "resource_exhausted_total",
			Help:      "Forward passes that ran out of memory",
		},
	)

	forwardErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "embedd",
			Subsystem: "embedding",
			Name:      "forward_errors_total",
			Help:      "Forward passes that failed for other reasons",
		},
	)
)

func init() {
	prometheus.MustRegister(generateDuration, tokensPerRequest, truncatedTotal, oomTotal, forwardErrors)
}
