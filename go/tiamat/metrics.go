package tiamat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mappedQuays = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ukur_tiamat_mapped_quays",
		Help: "Number of quays with a known parent stop place.",
	})

	refreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ukur_tiamat_refresh_failures_total",
		Help: "Count of stop place refreshes that failed.",
	})
)
