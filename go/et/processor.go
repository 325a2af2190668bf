// Package et matches estimated-timetable journeys against registered
// subscriptions and hands the affected sets to the notifier.
package et

import (
	"sort"
	"strings"
	"time"

	"github.com/bratomyr/ukur/go/siri"
	"github.com/bratomyr/ukur/go/subscription"
	log "github.com/sirupsen/logrus"
)

// SubscriptionSource yields candidate subscriptions for a stop point, line
// or vehicle. A quay lookup also returns subscriptions on the quay's parent
// stop place.
type SubscriptionSource interface {
	ForStopPoint(ref string) []*subscription.Subscription
	ForLineRef(ref string) []*subscription.Subscription
	ForVehicleRef(ref string) []*subscription.Subscription
}

// Notifier delivers a journey to a set of matched subscriptions.
type Notifier interface {
	NotifyOnStops(subs []*subscription.Subscription, journey *siri.EstimatedVehicleJourney)
	NotifyFullMessage(subs []*subscription.Subscription, journey *siri.EstimatedVehicleJourney)
}

// LiveJourneys records the most recent version of each journey.
type LiveJourneys interface {
	Update(*siri.EstimatedVehicleJourney)
}

// QuayResolver maps a quay reference to its parent stop place.
type QuayResolver interface {
	MapQuayToStopPlace(quay string) (string, bool)
}

// Processor matches each estimated journey against the subscription indexes.
// Subscriptions are notified on their subscribed stops when the journey is
// delayed or cancelled there in the subscribed direction, and with the full
// journey when they watch its line or vehicle.
type Processor struct {
	subscriptions SubscriptionSource
	notifier      Notifier
	journeys      LiveJourneys
	resolver      QuayResolver
	now           func() time.Time
}

func NewProcessor(
	subscriptions SubscriptionSource,
	notifier Notifier,
	journeys LiveJourneys,
	resolver QuayResolver,
) *Processor {
	return &Processor{
		subscriptions: subscriptions,
		notifier:      notifier,
		journeys:      journeys,
		resolver:      resolver,
		now:           time.Now,
	}
}

// Process matches one journey and notifies affected subscriptions. It
// returns false when the journey is ignored outright, and true once it has
// been processed, whether or not anything matched.
func (p *Processor) Process(journey *siri.EstimatedVehicleJourney) bool {
	if journey.HasServiceFeature("freightTrain") {
		log.WithField("lineRef", journey.LineRef).Debug("ignoring freight train journey")
		journeysIgnored.Inc()
		return false
	}
	journeysProcessed.Inc()
	p.journeys.Update(journey)

	var deviations = p.deviations(journey)
	if len(deviations) == 0 {
		return true
	}
	deviationsFound.Add(float64(len(deviations)))
	log.WithFields(log.Fields{
		"lineRef":    journey.LineRef,
		"journeyRef": journey.DatedVehicleJourneyRef,
		"deviations": len(deviations),
	}).Debug("journey has estimated delays or cancellations")

	var stops = p.stopIndex(journey)

	// The same subscription typically matches on both its from and to stop;
	// the set delivers it exactly once.
	var toNotify = make(map[string]*subscription.Subscription)
	for _, d := range deviations {
		for _, s := range p.matchDeviation(d, stops, journey) {
			toNotify[s.ID] = s
		}
	}
	if len(toNotify) != 0 {
		var subs = sortedSubscriptions(toNotify)
		matchedSubscriptions.Add(float64(len(subs)))
		p.notifier.NotifyOnStops(subs, journey)
	}

	if full := p.lineOrVehicleSubscriptions(journey.LineRef, journey.VehicleRef); len(full) != 0 {
		matchedSubscriptions.Add(float64(len(full)))
		p.notifier.NotifyFullMessage(full, journey)
	}
	return true
}

// deviation is one estimated call that is cancelled or running late.
type deviation struct {
	stopPointRef     string
	cancelled        bool
	delayedDeparture bool
	delayedArrival   bool
}

// deviations finds the cancelled and delayed estimated calls that are still
// ahead of the vehicle. A cancelled journey cancels every future call.
func (p *Processor) deviations(journey *siri.EstimatedVehicleJourney) []deviation {
	var now = p.now()
	var out []deviation

	for i := range journey.EstimatedCalls {
		var call = &journey.EstimatedCalls[i]
		if !futureCall(call, now) {
			continue
		}
		if journey.Cancellation || call.Cancellation {
			out = append(out, deviation{stopPointRef: call.StopPointRef, cancelled: true})
			continue
		}
		var delayedDeparture = call.DepartureStatus == siri.CallStatusDelayed ||
			isDelayed(call.AimedDepartureTime, call.ExpectedDepartureTime)
		var delayedArrival = call.ArrivalStatus == siri.CallStatusDelayed ||
			isDelayed(call.AimedArrivalTime, call.ExpectedArrivalTime)
		if delayedDeparture || delayedArrival {
			out = append(out, deviation{
				stopPointRef:     call.StopPointRef,
				delayedDeparture: delayedDeparture,
				delayedArrival:   delayedArrival,
			})
		}
	}
	return out
}

func futureCall(call *siri.EstimatedCall, now time.Time) bool {
	if call.ExpectedDepartureTime != nil {
		return now.Before(call.ExpectedDepartureTime.Time)
	}
	if call.AimedDepartureTime != nil {
		return now.Before(call.AimedDepartureTime.Time)
	}
	return false
}

func isDelayed(aimed, expected *siri.Timestamp) bool {
	return aimed != nil && expected != nil && expected.After(aimed.Time)
}

// stopData is what direction validation needs to know about one stop of the
// journey.
type stopData struct {
	aimedDeparture    *siri.Timestamp
	arrivalActivity   *siri.ArrivalActivity
	departureActivity *siri.DepartureActivity
}

// stopIndex maps every stop point of the journey to its stopData. Quays are
// additionally indexed under their parent stop place so subscriptions on
// either form resolve; when several quays share a parent, one of them wins.
func (p *Processor) stopIndex(journey *siri.EstimatedVehicleJourney) map[string]stopData {
	var stops = make(map[string]stopData)

	for i := range journey.RecordedCalls {
		var call = &journey.RecordedCalls[i]
		if call.StopPointRef != "" {
			stops[call.StopPointRef] = stopData{aimedDeparture: call.AimedDepartureTime}
		}
	}
	for i := range journey.EstimatedCalls {
		var call = &journey.EstimatedCalls[i]
		if call.StopPointRef != "" {
			stops[call.StopPointRef] = stopData{
				aimedDeparture:    call.AimedDepartureTime,
				arrivalActivity:   call.ArrivalBoardingActivity,
				departureActivity: call.DepartureBoardingActivity,
			}
		}
	}

	var parents = make(map[string]stopData)
	for ref, data := range stops {
		if strings.HasPrefix(ref, "NSR:Quay:") {
			if parent, ok := p.resolver.MapQuayToStopPlace(ref); ok {
				parents[parent] = data
			}
		}
	}
	for ref, data := range parents {
		stops[ref] = data
	}
	return stops
}

// matchDeviation returns the subscriptions affected by one deviating stop.
func (p *Processor) matchDeviation(
	d deviation,
	stops map[string]stopData,
	journey *siri.EstimatedVehicleJourney,
) []*subscription.Subscription {
	// Only stop points on the national format are matched.
	if !hasNSRPrefix(d.stopPointRef) {
		return nil
	}

	var out []*subscription.Subscription
	for _, s := range p.subscriptions.ForStopPoint(d.stopPointRef) {
		if !p.validDirection(s, stops) {
			continue
		}
		if !d.cancelled && !p.subscribedStopDelayed(s, d) {
			continue
		}
		if s.ExcludesLine(journey.LineRef) || s.ExcludesVehicle(journey.VehicleRef) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func hasNSRPrefix(ref string) bool {
	return len(ref) >= 4 && strings.EqualFold(ref[:4], "NSR:")
}

// validDirection holds when the journey departs one of the subscription's
// from stops before it reaches one of its to stops.
func (p *Processor) validDirection(s *subscription.Subscription, stops map[string]stopData) bool {
	var from = findDepartureTime(stops, s.FromStopPoints, directionFrom)
	var to = findDepartureTime(stops, s.ToStopPoints, directionTo)
	return from != nil && to != nil && from.Before(*to)
}

type direction int

const (
	directionFrom direction = iota + 1
	directionTo
)

// findDepartureTime resolves the first subscribed stop present in the
// journey to its aimed departure time. A stop where the vehicle does not
// board (from side) or does not let passengers alight (to side) resolves to
// nothing at all.
func findDepartureTime(stops map[string]stopData, points []string, dir direction) *time.Time {
	for _, point := range points {
		var data, ok = stops[point]
		if !ok {
			continue
		}
		switch dir {
		case directionFrom:
			if data.departureActivity != nil && *data.departureActivity != siri.DepartureBoarding {
				return nil
			}
		case directionTo:
			if data.arrivalActivity != nil && *data.arrivalActivity != siri.ArrivalAlighting {
				return nil
			}
		}
		if data.aimedDeparture == nil {
			return nil
		}
		var t = data.aimedDeparture.Time
		return &t
	}
	return nil
}

// subscribedStopDelayed holds when the deviation is a delay on the side the
// subscription watches the stop from. A quay is also checked as its parent
// stop place.
func (p *Processor) subscribedStopDelayed(s *subscription.Subscription, d deviation) bool {
	if (s.HasFromStop(d.stopPointRef) && d.delayedDeparture) ||
		(s.HasToStop(d.stopPointRef) && d.delayedArrival) {
		return true
	}
	if strings.HasPrefix(d.stopPointRef, "NSR:Quay:") {
		if parent, ok := p.resolver.MapQuayToStopPlace(d.stopPointRef); ok {
			return (s.HasFromStop(parent) && d.delayedDeparture) ||
				(s.HasToStop(parent) && d.delayedArrival)
		}
	}
	return false
}

// lineOrVehicleSubscriptions finds subscriptions watching the journey's line
// or vehicle outright. Each side is restricted by the other's filter.
func (p *Processor) lineOrVehicleSubscriptions(lineRef, vehicleRef string) []*subscription.Subscription {
	var set = make(map[string]*subscription.Subscription)
	if lineRef != "" {
		for _, s := range p.subscriptions.ForLineRef(lineRef) {
			if s.ExcludesVehicle(vehicleRef) {
				continue
			}
			set[s.ID] = s
		}
	}
	if vehicleRef != "" {
		for _, s := range p.subscriptions.ForVehicleRef(vehicleRef) {
			if s.ExcludesLine(lineRef) {
				continue
			}
			set[s.ID] = s
		}
	}
	return sortedSubscriptions(set)
}

func sortedSubscriptions(set map[string]*subscription.Subscription) []*subscription.Subscription {
	if len(set) == 0 {
		return nil
	}
	var out = make([]*subscription.Subscription, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
