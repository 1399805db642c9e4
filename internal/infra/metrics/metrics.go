package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckinDecisions counts scan decisions by reason and by the path
	// that produced them ("online" or "offline").
	CheckinDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymflow_checkin_decisions_total",
		Help: "Check-in decisions by reason code and decision path.",
	}, []string{"reason", "path"})

	SyncOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gymflow_sync_operations_total",
		Help: "Queued check-in operations by drain outcome.",
	}, []string{"outcome"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gymflow_sync_queue_depth",
		Help: "Current offline queue depth by status.",
	}, []string{"status"})

	LastBundleSync = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gymflow_last_bundle_sync_timestamp_seconds",
		Help: "Unix time of the last successful bundle refresh.",
	})
)
