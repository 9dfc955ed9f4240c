package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cw_capture_handler",
			Name:      "messages_received_total",
			Help:      "Capture requests pulled by the worker",
		},
		[]string{"topic"},
	)

	CapturesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cw_capture_handler",
			Name:      "processed_total",
			Help:      "Capture requests that reached a committed outcome, by order status",
		},
		[]string{"topic", "status"},
	)

	CapturesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cw_capture_handler",
			Name:      "skipped_total",
			Help:      "Duplicate capture requests for orders that are no longer draft",
		},
		[]string{"topic"},
	)

	DLQPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cw_capture_handler",
			Name:      "dlq_total",
			Help:      "Capture requests sent to DLQ by reason",
		},
		[]string{"topic", "reason"},
	)

	ProcessLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cw_capture_handler",
			Name:      "process_duration_seconds",
			Help:      "End-to-end processing latency per message",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	InflightCaptures = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cw_capture_handler",
			Name:      "inflight_captures",
			Help:      "Number of captures currently being processed (semaphore depth)",
		},
	)
)
