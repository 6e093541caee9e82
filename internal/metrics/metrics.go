// Package metrics holds the Prometheus collectors of the call path.
// Labels are bounded enums only; never a room name, caller or request id.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CallsTotal counts call attempts by terminal result: a call-log outcome,
	// or invalid_signature / invalid_request / internal_error.
	CallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiceorch_calls_total",
		Help: "Inbound call notifications by terminal result.",
	}, []string{"result"})

	// ProvisionDuration observes the provisioning transaction, by result.
	ProvisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voiceorch_provision_duration_seconds",
		Help:    "Time from screening to accepted/rejected outcome.",
		Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
	}, []string{"result"})

	// RollbacksTotal counts compensating room deletes by result (ok, failed).
	RollbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiceorch_room_rollbacks_total",
		Help: "Compensating room deletes after a failed dispatch or signing step.",
	}, []string{"result"})

	// PlatformRequestsTotal counts platform API calls by method and code.
	PlatformRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiceorch_platform_requests_total",
		Help: "Room platform API requests, by method and result code.",
	}, []string{"method", "code"})

	// CallLogDroppedTotal counts entries lost to a full queue or a failing backend.
	CallLogDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voiceorch_call_log_dropped_total",
		Help: "Call log entries not persisted, by reason (queue_full, backend_error, closed).",
	}, []string{"reason"})

	// CallLogQueueDepth tracks entries waiting to be drained.
	CallLogQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voiceorch_call_log_queue_depth",
		Help: "Call log entries waiting for the background writer.",
	})
)
