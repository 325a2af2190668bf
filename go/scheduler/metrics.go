package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	triggerFirings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ukur_scheduler_trigger_firings_total",
		Help: "Count of trigger firings that dispatched their workflow.",
	}, []string{"trigger"})

	triggerSkips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ukur_scheduler_trigger_skips_total",
		Help: "Count of trigger ticks skipped, by reason.",
	}, []string{"trigger", "reason"})

	workflowErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ukur_scheduler_workflow_errors_total",
		Help: "Count of workflow invocations which returned an error.",
	}, []string{"workflow"})

	workflowDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "ukur_scheduler_workflow_duration_seconds",
		Help: "Duration of workflow invocations.",
	}, []string{"workflow"})

	inflightGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ukur_scheduler_workflow_inflight",
		Help: "Number of currently executing invocations of each workflow.",
	}, []string{"workflow"})
)
