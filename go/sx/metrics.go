package sx

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var situationsProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ukur_sx_situations_processed_total",
	Help: "Total number of situation elements processed.",
})

var matchedSubscriptions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ukur_sx_matched_subscriptions_total",
	Help: "Total number of subscriptions matched for situation notification.",
})
