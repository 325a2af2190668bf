package et

import (
	"testing"
	"time"

	"github.com/bratomyr/ukur/go/siri"
	"github.com/bratomyr/ukur/go/subscription"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

func TestFreightJourneyIgnored(t *testing.T) {
	var p, manager, notifier, journeys = newTestProcessor(t, nil)
	addSubscription(t, manager, "s1", []string{"NSR:StopPlace:1"}, []string{"NSR:StopPlace:2"}, nil, nil)

	var journey = delayedJourney("NSR:StopPlace:1", "NSR:StopPlace:2")
	journey.ServiceFeatureRefs = []string{"freightTrain"}

	require.False(t, p.Process(journey))
	require.Zero(t, journeys.updates)
	require.Empty(t, notifier.onStops)
	require.Empty(t, notifier.fullMessage)
}

func TestDelayMatchesFromSide(t *testing.T) {
	var p, manager, notifier, journeys = newTestProcessor(t, nil)
	addSubscription(t, manager, "s1", []string{"NSR:StopPlace:1"}, []string{"NSR:StopPlace:2"}, nil, nil)

	require.True(t, p.Process(delayedJourney("NSR:StopPlace:1", "NSR:StopPlace:2")))

	require.Equal(t, 1, journeys.updates)
	require.Len(t, notifier.onStops, 1)
	require.Equal(t, []string{"s1"}, ids(notifier.onStops[0]))
	require.Empty(t, notifier.fullMessage)
}

func TestQuayResolvesToSubscribedStopPlace(t *testing.T) {
	var resolver = stubResolver{"NSR:Quay:9": "NSR:StopPlace:1"}
	var p, manager, notifier, _ = newTestProcessor(t, resolver)
	addSubscription(t, manager, "s1", []string{"NSR:StopPlace:1"}, []string{"NSR:StopPlace:2"}, nil, nil)

	// The deviation is on the quay, the subscription on its parent.
	require.True(t, p.Process(delayedJourney("NSR:Quay:9", "NSR:StopPlace:2")))

	require.Len(t, notifier.onStops, 1)
	require.Equal(t, []string{"s1"}, ids(notifier.onStops[0]))
}

func TestWrongDirectionDoesNotMatch(t *testing.T) {
	var p, manager, notifier, _ = newTestProcessor(t, nil)
	addSubscription(t, manager, "s1", []string{"NSR:StopPlace:1"}, []string{"NSR:StopPlace:2"}, nil, nil)

	// The journey serves the to stop before the from stop.
	var journey = delayedJourney("NSR:StopPlace:2", "NSR:StopPlace:1")

	require.True(t, p.Process(journey))
	require.Empty(t, notifier.onStops)
	require.Empty(t, notifier.fullMessage)
}

func TestCancelledJourneyCancelsEveryFutureCall(t *testing.T) {
	var p, manager, notifier, _ = newTestProcessor(t, nil)
	addSubscription(t, manager, "s1", []string{"NSR:StopPlace:1"}, []string{"NSR:StopPlace:2"}, nil, nil)

	var journey = &siri.EstimatedVehicleJourney{
		LineRef:      "NSB:Line:L1",
		Cancellation: true,
		EstimatedCalls: []siri.EstimatedCall{
			{
				StopPointRef:       "NSR:StopPlace:1",
				AimedDepartureTime: at(10, 0),
			},
			{
				StopPointRef:       "NSR:StopPlace:2",
				AimedArrivalTime:   at(10, 20),
				AimedDepartureTime: at(10, 21),
			},
		},
	}

	var devs = p.deviations(journey)
	require.Equal(t, []deviation{
		{stopPointRef: "NSR:StopPlace:1", cancelled: true},
		{stopPointRef: "NSR:StopPlace:2", cancelled: true},
	}, devs)

	require.True(t, p.Process(journey))
	require.Len(t, notifier.onStops, 1)
	require.Equal(t, []string{"s1"}, ids(notifier.onStops[0]))
}

func TestPastCallsEmitNoDeviations(t *testing.T) {
	var p, _, notifier, _ = newTestProcessor(t, nil)

	var journey = &siri.EstimatedVehicleJourney{
		LineRef: "NSB:Line:L1",
		EstimatedCalls: []siri.EstimatedCall{
			{
				StopPointRef:          "NSR:StopPlace:1",
				AimedDepartureTime:    at(8, 0),
				ExpectedDepartureTime: at(8, 30),
				DepartureStatus:       siri.CallStatusDelayed,
			},
		},
	}

	require.Empty(t, p.deviations(journey))
	require.True(t, p.Process(journey))
	require.Empty(t, notifier.onStops)
}

func TestSubscribedSideMustBeDelayed(t *testing.T) {
	var p, manager, notifier, _ = newTestProcessor(t, nil)
	// s1 watches the deviating stop as its destination, but only the
	// departure side is delayed there.
	addSubscription(t, manager, "s1", []string{"NSR:StopPlace:0"}, []string{"NSR:StopPlace:1"}, nil, nil)

	var journey = &siri.EstimatedVehicleJourney{
		LineRef: "NSB:Line:L1",
		EstimatedCalls: []siri.EstimatedCall{
			{
				StopPointRef:       "NSR:StopPlace:0",
				AimedDepartureTime: at(9, 30),
			},
			{
				StopPointRef:          "NSR:StopPlace:1",
				AimedArrivalTime:      at(9, 55),
				AimedDepartureTime:    at(10, 0),
				ExpectedDepartureTime: at(10, 5),
			},
		},
	}

	require.True(t, p.Process(journey))
	require.Empty(t, notifier.onStops)
}

func TestLineAndVehicleFiltersRestrictStopMatches(t *testing.T) {
	var p, manager, notifier, _ = newTestProcessor(t, nil)
	addSubscription(t, manager, "s1", []string{"NSR:StopPlace:1"}, []string{"NSR:StopPlace:2"}, []string{"NSB:Line:L1"}, nil)
	addSubscription(t, manager, "s2", []string{"NSR:StopPlace:1"}, []string{"NSR:StopPlace:2"}, []string{"NSB:Line:R10"}, nil)
	addSubscription(t, manager, "s3", []string{"NSR:StopPlace:1"}, []string{"NSR:StopPlace:2"}, nil, []string{"816"})

	var journey = delayedJourney("NSR:StopPlace:1", "NSR:StopPlace:2")
	journey.VehicleRef = "815"

	require.True(t, p.Process(journey))
	require.Len(t, notifier.onStops, 1)
	require.Equal(t, []string{"s1"}, ids(notifier.onStops[0]))

	// s1 also watches the line outright, so it receives the full message too.
	require.Len(t, notifier.fullMessage, 1)
	require.Equal(t, []string{"s1"}, ids(notifier.fullMessage[0]))
}

func TestBlankJourneyRefsPassFilters(t *testing.T) {
	var p, manager, notifier, _ = newTestProcessor(t, nil)
	addSubscription(t, manager, "s1", []string{"NSR:StopPlace:1"}, []string{"NSR:StopPlace:2"}, []string{"NSB:Line:L1"}, []string{"815"})

	var journey = delayedJourney("NSR:StopPlace:1", "NSR:StopPlace:2")
	journey.LineRef = ""

	require.True(t, p.Process(journey))
	require.Len(t, notifier.onStops, 1)
	require.Equal(t, []string{"s1"}, ids(notifier.onStops[0]))
}

func TestLineSubscriptionGetsFullMessage(t *testing.T) {
	var p, manager, notifier, _ = newTestProcessor(t, nil)
	addSubscription(t, manager, "s1", nil, nil, []string{"NSB:Line:L1"}, nil)
	addSubscription(t, manager, "s2", nil, nil, []string{"NSB:Line:L1"}, []string{"999"})
	addSubscription(t, manager, "s3", nil, nil, nil, []string{"815"})

	var journey = delayedJourney("NSR:StopPlace:1", "NSR:StopPlace:2")
	journey.VehicleRef = "815"

	require.True(t, p.Process(journey))
	require.Empty(t, notifier.onStops)
	require.Len(t, notifier.fullMessage, 1)
	// s2 watches the line but excludes this vehicle.
	require.Equal(t, []string{"s1", "s3"}, ids(notifier.fullMessage[0]))
}

func TestNoDeviationsMeansNoNotifications(t *testing.T) {
	var p, manager, notifier, journeys = newTestProcessor(t, nil)
	addSubscription(t, manager, "s1", nil, nil, []string{"NSB:Line:L1"}, nil)

	var journey = &siri.EstimatedVehicleJourney{
		LineRef: "NSB:Line:L1",
		EstimatedCalls: []siri.EstimatedCall{
			{
				StopPointRef:       "NSR:StopPlace:1",
				AimedDepartureTime: at(10, 0),
			},
		},
	}

	require.True(t, p.Process(journey))
	require.Equal(t, 1, journeys.updates)
	require.Empty(t, notifier.onStops)
	require.Empty(t, notifier.fullMessage)
}

func TestMatchingIsIdempotent(t *testing.T) {
	var p, manager, notifier, _ = newTestProcessor(t, nil)
	addSubscription(t, manager, "s1", []string{"NSR:StopPlace:1"}, []string{"NSR:StopPlace:2"}, nil, nil)

	var journey = delayedJourney("NSR:StopPlace:1", "NSR:StopPlace:2")
	require.True(t, p.Process(journey))
	require.True(t, p.Process(journey))

	require.Len(t, notifier.onStops, 2)
	require.Equal(t, ids(notifier.onStops[0]), ids(notifier.onStops[1]))
}

func TestNonNSRStopsAreSkipped(t *testing.T) {
	var p, manager, notifier, _ = newTestProcessor(t, nil)
	addSubscription(t, manager, "s1", []string{"OTHER:Stop:1"}, []string{"OTHER:Stop:2"}, nil, nil)

	require.True(t, p.Process(delayedJourney("OTHER:Stop:1", "OTHER:Stop:2")))
	require.Empty(t, notifier.onStops)
}

func TestNoBoardingPoisonsFromSide(t *testing.T) {
	var p, manager, notifier, _ = newTestProcessor(t, nil)
	addSubscription(t, manager, "s1", []string{"NSR:StopPlace:1"}, []string{"NSR:StopPlace:2"}, nil, nil)

	var noBoarding = siri.DepartureNoBoarding
	var journey = delayedJourney("NSR:StopPlace:1", "NSR:StopPlace:2")
	journey.EstimatedCalls[0].DepartureBoardingActivity = &noBoarding

	require.True(t, p.Process(journey))
	require.Empty(t, notifier.onStops)
}

// delayedJourney builds a journey departing from with a five minute delay
// at 10:00 and arriving to on time at 10:20.
func delayedJourney(from, to string) *siri.EstimatedVehicleJourney {
	var boarding = siri.DepartureBoarding
	var alighting = siri.ArrivalAlighting
	return &siri.EstimatedVehicleJourney{
		LineRef:                "NSB:Line:L1",
		DatedVehicleJourneyRef: "NSB:ServiceJourney:1-2026-08-24",
		EstimatedCalls: []siri.EstimatedCall{
			{
				StopPointRef:              from,
				AimedDepartureTime:        at(10, 0),
				ExpectedDepartureTime:     at(10, 5),
				DepartureStatus:           siri.CallStatusDelayed,
				DepartureBoardingActivity: &boarding,
			},
			{
				StopPointRef:            to,
				AimedArrivalTime:        at(10, 20),
				ExpectedArrivalTime:     at(10, 20),
				AimedDepartureTime:      at(10, 21),
				ArrivalBoardingActivity: &alighting,
			},
		},
	}
}

func at(hour, min int) *siri.Timestamp {
	return &siri.Timestamp{Time: time.Date(2026, 8, 24, hour, min, 0, 0, time.UTC)}
}

func newTestProcessor(t *testing.T, resolver stubResolver) (*Processor, *subscription.Manager, *recordingNotifier, *countingJourneys) {
	var manager, err = subscription.NewManager(nil, resolver)
	require.NoError(t, err)

	var notifier = &recordingNotifier{}
	var journeys = &countingJourneys{}
	var p = NewProcessor(manager, notifier, journeys, resolver)
	p.now = func() time.Time { return testNow }
	return p, manager, notifier, journeys
}

func addSubscription(t *testing.T, manager *subscription.Manager, id string, from, to, lines, vehicles []string) {
	var _, err = manager.Add(&subscription.Subscription{
		ID:             id,
		PushAddress:    "http://push.example/" + id,
		FromStopPoints: from,
		ToStopPoints:   to,
		LineRefs:       lines,
		VehicleRefs:    vehicles,
	})
	require.NoError(t, err)
}

func ids(subs []*subscription.Subscription) []string {
	var out []string
	for _, s := range subs {
		out = append(out, s.ID)
	}
	return out
}

type recordingNotifier struct {
	onStops     [][]*subscription.Subscription
	fullMessage [][]*subscription.Subscription
}

func (n *recordingNotifier) NotifyOnStops(subs []*subscription.Subscription, _ *siri.EstimatedVehicleJourney) {
	n.onStops = append(n.onStops, subs)
}

func (n *recordingNotifier) NotifyFullMessage(subs []*subscription.Subscription, _ *siri.EstimatedVehicleJourney) {
	n.fullMessage = append(n.fullMessage, subs)
}

type countingJourneys struct {
	updates int
}

func (c *countingJourneys) Update(*siri.EstimatedVehicleJourney) {
	c.updates++
}

type stubResolver map[string]string

func (r stubResolver) MapQuayToStopPlace(quay string) (string, bool) {
	var parent, ok = r[quay]
	return parent, ok
}
