package archive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesStored = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ukur_archive_messages_stored_total",
	Help: "Total messages written to the file archive.",
}, []string{"kind"})
