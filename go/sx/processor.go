// Package sx matches situation exchange messages against registered
// subscriptions and notifies the affected subscribers.
package sx

import (
	"sort"

	"github.com/bratomyr/ukur/go/siri"
	"github.com/bratomyr/ukur/go/subscription"
	log "github.com/sirupsen/logrus"
)

// SubscriptionSource yields candidate subscriptions for a stop point, line
// or vehicle.
type SubscriptionSource interface {
	ForStopPoint(ref string) []*subscription.Subscription
	ForLineRef(ref string) []*subscription.Subscription
	ForVehicleRef(ref string) []*subscription.Subscription
}

// Notifier delivers a situation to a set of matched subscriptions.
type Notifier interface {
	NotifySituation(subs []*subscription.Subscription, situation *siri.PtSituationElement)
}

// Processor matches each situation against subscriptions on its affected
// stops, lines and vehicle journeys, and notifies the union once.
type Processor struct {
	subscriptions SubscriptionSource
	notifier      Notifier
}

func NewProcessor(subscriptions SubscriptionSource, notifier Notifier) *Processor {
	return &Processor{subscriptions: subscriptions, notifier: notifier}
}

func (p *Processor) Process(situation *siri.PtSituationElement) {
	situationsProcessed.Inc()

	var lines = situation.AffectedLineRefs()
	var vehicles = situation.AffectedVehicleJourneyRefs()

	var set = make(map[string]*subscription.Subscription)
	var consider = func(subs []*subscription.Subscription) {
		for _, s := range subs {
			if excludedByFilters(s, lines, vehicles) {
				continue
			}
			set[s.ID] = s
		}
	}

	for _, ref := range situation.AffectedStopRefs() {
		consider(p.subscriptions.ForStopPoint(ref))
	}
	for _, ref := range lines {
		consider(p.subscriptions.ForLineRef(ref))
	}
	for _, ref := range vehicles {
		consider(p.subscriptions.ForVehicleRef(ref))
	}

	if len(set) == 0 {
		return
	}
	var subs = make([]*subscription.Subscription, 0, len(set))
	for _, s := range set {
		subs = append(subs, s)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })

	matchedSubscriptions.Add(float64(len(subs)))
	log.WithFields(log.Fields{
		"situationNumber": situation.SituationNumber,
		"subscriptions":   len(subs),
	}).Debug("situation matched subscriptions")
	p.notifier.NotifySituation(subs, situation)
}

// excludedByFilters holds when the subscription names lines or vehicles, the
// situation names them too, and the two share none.
func excludedByFilters(s *subscription.Subscription, lines, vehicles []string) bool {
	if len(s.LineRefs) != 0 && len(lines) != 0 && !anyCommon(s.LineRefs, lines) {
		return true
	}
	if len(s.VehicleRefs) != 0 && len(vehicles) != 0 && !anyCommon(s.VehicleRefs, vehicles) {
		return true
	}
	return false
}

func anyCommon(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
