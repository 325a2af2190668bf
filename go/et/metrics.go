package et

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var journeysProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ukur_et_journeys_processed_total",
	Help: "Total number of estimated vehicle journeys processed.",
})

var journeysIgnored = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ukur_et_journeys_ignored_total",
	Help: "Total number of journeys ignored by the freight filter.",
})

var deviationsFound = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ukur_et_deviations_total",
	Help: "Total number of delayed or cancelled estimated calls found.",
})

var matchedSubscriptions = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ukur_et_matched_subscriptions_total",
	Help: "Total number of subscriptions matched for notification.",
})
