package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "split_tender",
			Name:      "settlement_total",
			Help:      "Settlement attempts by payment method and outcome",
		},
		[]string{"method", "outcome"},
	)

	settlementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "split_tender",
			Name:      "settlement_duration_seconds",
			Help:      "Processor latency per settlement attempt",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
