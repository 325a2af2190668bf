package journeys

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var liveJourneys = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "ukur_journeys_live",
	Help: "Number of live vehicle journeys currently cached.",
})

var flushedJourneys = promauto.NewCounter(prometheus.CounterOpts{
	Name: "ukur_journeys_flushed_total",
	Help: "Total number of finished journeys flushed from the cache.",
})
