package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "embedd",
			Subsystem: "model",
			Name:      "loads_total",
			Help:      "Model loads by result",
		},
		[]string{"result"},
	)

	releasesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "embedd",
			Subsystem: "model",
			Name:      "releases_total",
			Help:      "Model releases by reason",
		},
		[]string{"reason"},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "embedd",
			Subsystem: "model",
			Name:      "load_duration_seconds",
			Help:      "Duration of successful model loads in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	modelLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "embedd",
			Subsystem: "model",
			Name:      "loaded",
			Help:      "1 when a model is loaded",
		},
	)

	memoryRSS = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "embedd",
			Subsystem: "model",
			Name:      "memory_rss_bytes",
			Help:      "Resident memory sampled after the last load",
		},
	)

	admissionWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "embedd",
			Subsystem: "admission",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for the in-flight slot",
			Buckets:   prometheus.DefBuckets,
		},
	)

	admissionRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "embedd",
			Subsystem: "admission",
			Name:      "rejected_total",
			Help:      "Requests rejected by the admission gate",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(loadsTotal, releasesTotal, loadDuration, modelLoaded, memoryRSS, admissionWait, admissionRejected)
}
