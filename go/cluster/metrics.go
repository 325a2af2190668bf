package cluster

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leaderGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ukur_cluster_trigger_leader",
		Help: "1 while this replica leads the named trigger, 0 otherwise.",
	}, []string{"trigger"})

	campaignRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ukur_cluster_campaign_restarts_total",
		Help: "Count of election campaigns restarted after an error.",
	}, []string{"trigger"})
)
