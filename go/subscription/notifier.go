package subscription

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bratomyr/ukur/go/siri"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/core/task"
)

const notifyQueueDepth = 256
const notifyWorkers = 4
const notifyTimeout = 10 * time.Second

// PushNotifier delivers matched messages to subscriber push addresses.
// Deliveries are queued and sent by background workers; a full queue drops
// the notification rather than stalling the matching engines.
type PushNotifier struct {
	client   *http.Client
	resolver QuayResolver
	jobs     chan pushJob
}

type pushJob struct {
	subscription string
	url          string
	kind         string
	body         []byte
}

func NewPushNotifier(resolver QuayResolver) *PushNotifier {
	return &PushNotifier{
		client:   &http.Client{Timeout: notifyTimeout},
		resolver: resolver,
		jobs:     make(chan pushJob, notifyQueueDepth),
	}
}

// QueueTasks starts the sender workers.
func (n *PushNotifier) QueueTasks(tasks *task.Group) {
	for i := 0; i != notifyWorkers; i++ {
		tasks.Queue(fmt.Sprintf("notifier.sender.%d", i), func() error {
			n.serve(tasks.Context())
			return nil
		})
	}
}

// NotifyOnStops pushes the journey to each subscription, narrowed to the
// calls at stops that subscription watches.
func (n *PushNotifier) NotifyOnStops(subs []*Subscription, journey *siri.EstimatedVehicleJourney) {
	for _, s := range subs {
		var body, err = siri.Marshal(etEnvelope(n.narrowJourney(journey, s)))
		if err != nil {
			log.WithFields(log.Fields{"subscription": s.ID, "err": err}).
				Error("building stop notification")
			continue
		}
		n.enqueue(pushJob{subscription: s.ID, url: s.PushAddress + "/et", kind: "et", body: body})
	}
}

// NotifyFullMessage pushes the complete journey to each subscription.
func (n *PushNotifier) NotifyFullMessage(subs []*Subscription, journey *siri.EstimatedVehicleJourney) {
	var body, err = siri.Marshal(etEnvelope(journey))
	if err != nil {
		log.WithField("err", err).Error("building journey notification")
		return
	}
	for _, s := range subs {
		n.enqueue(pushJob{subscription: s.ID, url: s.PushAddress + "/et", kind: "et", body: body})
	}
}

// NotifySituation pushes a situation to each subscription.
func (n *PushNotifier) NotifySituation(subs []*Subscription, situation *siri.PtSituationElement) {
	var body, err = siri.Marshal(sxEnvelope(situation))
	if err != nil {
		log.WithField("err", err).Error("building situation notification")
		return
	}
	for _, s := range subs {
		n.enqueue(pushJob{subscription: s.ID, url: s.PushAddress + "/sx", kind: "sx", body: body})
	}
}

func (n *PushNotifier) enqueue(job pushJob) {
	select {
	case n.jobs <- job:
	default:
		notificationDrops.WithLabelValues(job.kind).Inc()
		log.WithFields(log.Fields{
			"subscription": job.subscription,
			"url":          job.url,
		}).Warn("notification queue full, dropping")
	}
}

func (n *PushNotifier) serve(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-n.jobs:
			n.push(ctx, job)
		}
	}
}

func (n *PushNotifier) push(ctx context.Context, job pushJob) {
	req, err := http.NewRequestWithContext(ctx, "POST", job.url, bytes.NewReader(job.body))
	if err != nil {
		notificationFailures.WithLabelValues(job.kind).Inc()
		log.WithFields(log.Fields{"subscription": job.subscription, "err": err}).
			Warn("building notification request")
		return
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := n.client.Do(req)
	if err != nil {
		notificationFailures.WithLabelValues(job.kind).Inc()
		log.WithFields(log.Fields{
			"subscription": job.subscription,
			"url":          job.url,
			"err":          err,
		}).Warn("notification push failed")
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		notificationFailures.WithLabelValues(job.kind).Inc()
		log.WithFields(log.Fields{
			"subscription": job.subscription,
			"url":          job.url,
			"status":       resp.StatusCode,
		}).Warn("notification push refused")
		return
	}
	notificationsSent.WithLabelValues(job.kind).Inc()
}

// narrowJourney copies the journey with calls reduced to the stops s watches.
// When nothing remains the full journey is pushed instead.
func (n *PushNotifier) narrowJourney(j *siri.EstimatedVehicleJourney, s *Subscription) *siri.EstimatedVehicleJourney {
	var out = *j
	out.RecordedCalls = nil
	out.EstimatedCalls = nil

	for _, call := range j.RecordedCalls {
		if n.watches(s, call.StopPointRef) {
			out.RecordedCalls = append(out.RecordedCalls, call)
		}
	}
	for _, call := range j.EstimatedCalls {
		if n.watches(s, call.StopPointRef) {
			out.EstimatedCalls = append(out.EstimatedCalls, call)
		}
	}

	if len(out.RecordedCalls) == 0 && len(out.EstimatedCalls) == 0 {
		return j
	}
	return &out
}

func (n *PushNotifier) watches(s *Subscription, ref string) bool {
	if s.HasFromStop(ref) || s.HasToStop(ref) {
		return true
	}
	if n.resolver != nil && strings.HasPrefix(ref, "NSR:Quay:") {
		if parent, ok := n.resolver.MapQuayToStopPlace(ref); ok {
			return s.HasFromStop(parent) || s.HasToStop(parent)
		}
	}
	return false
}

func etEnvelope(j *siri.EstimatedVehicleJourney) *siri.Siri {
	return &siri.Siri{
		ServiceDelivery: &siri.ServiceDelivery{
			ResponseTimestamp: siri.NewTimestamp(time.Now()),
			ProducerRef:       "Ukur",
			EstimatedTimetableDeliveries: []siri.EstimatedTimetableDelivery{{
				Version: siri.Version,
				Frames: []siri.EstimatedJourneyVersionFrame{{
					Journeys: []siri.EstimatedVehicleJourney{*j},
				}},
			}},
		},
	}
}

func sxEnvelope(p *siri.PtSituationElement) *siri.Siri {
	return &siri.Siri{
		ServiceDelivery: &siri.ServiceDelivery{
			ResponseTimestamp: siri.NewTimestamp(time.Now()),
			ProducerRef:       "Ukur",
			SituationExchangeDeliveries: []siri.SituationExchangeDelivery{{
				Version:    siri.Version,
				Situations: []siri.PtSituationElement{*p},
			}},
		},
	}
}
