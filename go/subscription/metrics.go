package subscription

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subscriptionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ukur_subscription_registered",
		Help: "Number of registered subscriptions.",
	})

	notificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ukur_subscription_notifications_sent_total",
		Help: "Count of notifications accepted by subscriber push addresses.",
	}, []string{"kind"})

	notificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ukur_subscription_notification_failures_total",
		Help: "Count of notification pushes that failed or were refused.",
	}, []string{"kind"})

	notificationDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ukur_subscription_notification_drops_total",
		Help: "Count of notifications dropped because the send queue was full.",
	}, []string{"kind"})
)
