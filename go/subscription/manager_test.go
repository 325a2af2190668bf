package subscription

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubscriptionValidation(t *testing.T) {
	var s = &Subscription{}
	require.EqualError(t, s.Validate(), "subscription requires a pushAddress")

	s = &Subscription{PushAddress: "http://push.example/cb"}
	require.EqualError(t, s.Validate(),
		"subscription requires fromStopPoints and toStopPoints, or lineRefs or vehicleRefs")

	// From without to is not a usable stop pair.
	s = &Subscription{
		PushAddress:    "http://push.example/cb",
		FromStopPoints: []string{"NSR:StopPlace:1"},
	}
	require.Error(t, s.Validate())

	s = &Subscription{
		PushAddress: "http://push.example/cb/",
		LineRefs:    []string{"NSB:Line:L1"},
	}
	require.NoError(t, s.Validate())
	require.Equal(t, "http://push.example/cb", s.PushAddress)
	require.NotEmpty(t, s.ID)
}

func TestSubscriptionFilters(t *testing.T) {
	var s = &Subscription{
		LineRefs:    []string{"NSB:Line:L1"},
		VehicleRefs: []string{"2230"},
	}

	// A populated filter excludes other values, but never a blank one.
	require.True(t, s.ExcludesLine("NSB:Line:L12"))
	require.False(t, s.ExcludesLine("NSB:Line:L1"))
	require.False(t, s.ExcludesLine(""))
	require.True(t, s.ExcludesVehicle("501"))
	require.False(t, s.ExcludesVehicle("2230"))
	require.False(t, s.ExcludesVehicle(""))

	// An empty filter excludes nothing.
	var open = &Subscription{}
	require.False(t, open.ExcludesLine("NSB:Line:L1"))
	require.False(t, open.ExcludesVehicle("2230"))
}

func TestManagerIndexing(t *testing.T) {
	var m, err = NewManager(nil, stubResolver{"NSR:Quay:9": "NSR:StopPlace:1"})
	require.NoError(t, err)

	s1, err := m.Add(&Subscription{
		ID:             "s1",
		PushAddress:    "http://push.example/one/",
		FromStopPoints: []string{"NSR:StopPlace:1"},
		ToStopPoints:   []string{"NSR:StopPlace:2"},
	})
	require.NoError(t, err)
	require.Equal(t, "http://push.example/one", s1.PushAddress)

	_, err = m.Add(&Subscription{
		ID:          "s2",
		PushAddress: "http://push.example/two",
		LineRefs:    []string{"NSB:Line:L1"},
	})
	require.NoError(t, err)

	_, err = m.Add(&Subscription{
		ID:          "s3",
		PushAddress: "http://push.example/three",
		VehicleRefs: []string{"2230"},
	})
	require.NoError(t, err)

	_, err = m.Add(&Subscription{
		ID:             "s4",
		PushAddress:    "http://push.example/four",
		FromStopPoints: []string{"NSR:Quay:22"},
		ToStopPoints:   []string{"NSR:StopPlace:2"},
	})
	require.NoError(t, err)

	// Direct lookups.
	require.Equal(t, []string{"s1"}, ids(m.ForStopPoint("NSR:StopPlace:1")))
	require.Equal(t, []string{"s2"}, ids(m.ForLineRef("NSB:Line:L1")))
	require.Equal(t, []string{"s3"}, ids(m.ForVehicleRef("2230")))
	require.Equal(t, []string{"s4"}, ids(m.ForStopPoint("NSR:Quay:22")))

	// A quay deviation reaches subscriptions on its parent stop place.
	require.Equal(t, []string{"s1"}, ids(m.ForStopPoint("NSR:Quay:9")))
	require.Empty(t, m.ForStopPoint("NSR:Quay:404"))

	// Destination stops are indexed too.
	require.Equal(t, []string{"s1", "s4"}, ids(m.ForStopPoint("NSR:StopPlace:2")))

	// Replacing a subscription drops its old index entries.
	_, err = m.Add(&Subscription{
		ID:             "s1",
		PushAddress:    "http://push.example/one",
		FromStopPoints: []string{"NSR:StopPlace:3"},
		ToStopPoints:   []string{"NSR:StopPlace:4"},
	})
	require.NoError(t, err)
	require.Empty(t, m.ForStopPoint("NSR:StopPlace:1"))
	require.Equal(t, []string{"s1"}, ids(m.ForStopPoint("NSR:StopPlace:3")))

	require.Equal(t, 4, m.Count())
	require.NoError(t, m.Remove("s2"))
	require.Empty(t, m.ForLineRef("NSB:Line:L1"))
	require.EqualError(t, m.Remove("s2"), "no subscription with id s2")

	require.Equal(t, []string{"s1", "s3", "s4"}, ids(m.List()))

	got, ok := m.Get("s3")
	require.True(t, ok)
	require.Equal(t, "http://push.example/three", got.PushAddress)
	_, ok = m.Get("s2")
	require.False(t, ok)
}

func ids(subs []*Subscription) []string {
	var out = make([]string, len(subs))
	for i, s := range subs {
		out[i] = s.ID
	}
	return out
}

type stubResolver map[string]string

func (r stubResolver) MapQuayToStopPlace(quay string) (string, bool) {
	var parent, ok = r[quay]
	return parent, ok
}
