package anshar

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "ukur_anshar_fragment_queue_depth",
	Help: "Current depth of the per-kind fragment queue.",
}, []string{"kind"})

var queueDrops = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ukur_anshar_queue_drops_total",
	Help: "Total messages dropped because a queue was full.",
}, []string{"kind"})

var fragmentsEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ukur_anshar_fragments_enqueued_total",
	Help: "Total operator-attributed fragments enqueued for processing.",
}, []string{"kind"})

var malformedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ukur_anshar_malformed_messages_total",
	Help: "Total undecodable messages dropped.",
}, []string{"kind"})

var pollFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ukur_anshar_poll_failures_total",
	Help: "Total failed polling requests.",
}, []string{"kind"})

var subscriptionRenewals = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ukur_anshar_subscription_renewals_total",
	Help: "Total successful subscription renewals.",
}, []string{"kind"})

var callbacksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ukur_anshar_callbacks_received_total",
	Help: "Total accepted push callbacks.",
}, []string{"kind"})

var rejectedCallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ukur_anshar_callbacks_rejected_total",
	Help: "Total push callbacks rejected with FORBIDDEN.",
})
