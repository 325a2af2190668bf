package journeys

import (
	"testing"
	"time"

	"github.com/bratomyr/ukur/go/siri"
	"github.com/stretchr/testify/require"
)

func TestUpdateReplacesSameJourney(t *testing.T) {
	var cache, err = NewCache(DefaultCapacity, nil)
	require.NoError(t, err)

	var journey = &siri.EstimatedVehicleJourney{
		LineRef:                "NSB:Line:L1",
		DatedVehicleJourneyRef: "NSB:ServiceJourney:1-2026-08-24",
		VehicleRef:             "815",
	}
	cache.Update(journey)
	require.Equal(t, 1, cache.Len())

	// A fresh version of the same dated journey replaces the old one.
	var updated = &siri.EstimatedVehicleJourney{
		LineRef:                "NSB:Line:L1",
		DatedVehicleJourneyRef: "NSB:ServiceJourney:1-2026-08-24",
		VehicleRef:             "815",
		Cancellation:           true,
	}
	cache.Update(updated)
	require.Equal(t, 1, cache.Len())

	var listed = cache.List("NSB:Line:L1")
	require.Len(t, listed, 1)
	require.True(t, listed[0].Cancellation)
}

func TestListFiltersByLine(t *testing.T) {
	var cache, err = NewCache(DefaultCapacity, nil)
	require.NoError(t, err)

	cache.Update(&siri.EstimatedVehicleJourney{LineRef: "NSB:Line:L1", DatedVehicleJourneyRef: "j1"})
	cache.Update(&siri.EstimatedVehicleJourney{LineRef: "NSB:Line:L1", DatedVehicleJourneyRef: "j2"})
	cache.Update(&siri.EstimatedVehicleJourney{LineRef: "NSB:Line:R10", DatedVehicleJourneyRef: "j3"})

	require.Len(t, cache.List(""), 3)
	require.Len(t, cache.List("NSB:Line:L1"), 2)
	require.Len(t, cache.List("NSB:Line:R10"), 1)
	require.Empty(t, cache.List("NSB:Line:F2"))
}

func TestFlushDropsFinishedJourneys(t *testing.T) {
	var current = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	var cache, err = NewCache(DefaultCapacity, func() time.Time { return current })
	require.NoError(t, err)

	var at = func(tm time.Time) *siri.Timestamp { return &siri.Timestamp{Time: tm} }

	// Finished an hour ago.
	cache.Update(&siri.EstimatedVehicleJourney{
		DatedVehicleJourneyRef: "finished",
		EstimatedCalls: []siri.EstimatedCall{
			{StopPointRef: "NSR:Quay:1", AimedDepartureTime: at(current.Add(-2 * time.Hour))},
			{StopPointRef: "NSR:Quay:2", AimedArrivalTime: at(current.Add(-time.Hour))},
		},
	})
	// Still running: last call expected after now.
	cache.Update(&siri.EstimatedVehicleJourney{
		DatedVehicleJourneyRef: "running",
		EstimatedCalls: []siri.EstimatedCall{
			{StopPointRef: "NSR:Quay:1", AimedDepartureTime: at(current.Add(-time.Minute))},
			{StopPointRef: "NSR:Quay:2", AimedArrivalTime: at(current.Add(-time.Minute)), ExpectedArrivalTime: at(current.Add(3 * time.Hour))},
		},
	})
	// No call times at all.
	cache.Update(&siri.EstimatedVehicleJourney{DatedVehicleJourneyRef: "opaque"})

	require.Equal(t, 1, cache.Flush())
	require.Equal(t, 2, cache.Len())
	require.Len(t, cache.List(""), 2)

	// The journey without call times ages out eventually.
	current = current.Add(2 * time.Hour)
	require.Equal(t, 1, cache.Flush())
	require.Equal(t, 1, cache.Len())
}

func TestCapacityBound(t *testing.T) {
	var cache, err = NewCache(2, nil)
	require.NoError(t, err)

	cache.Update(&siri.EstimatedVehicleJourney{DatedVehicleJourneyRef: "j1"})
	cache.Update(&siri.EstimatedVehicleJourney{DatedVehicleJourneyRef: "j2"})
	cache.Update(&siri.EstimatedVehicleJourney{DatedVehicleJourneyRef: "j3"})

	require.Equal(t, 2, cache.Len())
}
