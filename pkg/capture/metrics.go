package capture

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	captureTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "split_tender",
			Name:      "capture_total",
			Help:      "Capture attempts by outcome",
		},
		[]string{"outcome"},
	)

	captureDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "split_tender",
			Name:      "capture_duration_seconds",
			Help:      "Duration of committed capture attempts including settlement",
			Buckets:   prometheus.DefBuckets,
		},
	)
)
