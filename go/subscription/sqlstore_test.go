package subscription

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLStoreRoundTrip(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "subscriptions.db")

	var store, err = OpenSQLStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Upsert(&Subscription{
		ID:          "s1",
		PushAddress: "http://push.example/one",
		LineRefs:    []string{"NSB:Line:L1"},
	}))
	require.NoError(t, store.Upsert(&Subscription{
		ID:             "s2",
		PushAddress:    "http://push.example/two",
		FromStopPoints: []string{"NSR:StopPlace:1"},
		ToStopPoints:   []string{"NSR:StopPlace:2"},
	}))
	// Upsert of an existing ID replaces the row.
	require.NoError(t, store.Upsert(&Subscription{
		ID:          "s1",
		PushAddress: "http://push.example/one-moved",
		LineRefs:    []string{"NSB:Line:L1"},
	}))

	subs, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, subs, 2)
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	require.Equal(t, "http://push.example/one-moved", subs[0].PushAddress)
	require.Equal(t, []string{"NSR:StopPlace:1"}, subs[1].FromStopPoints)

	require.NoError(t, store.Delete("s2"))
	subs, err = store.LoadAll()
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.NoError(t, store.Close())

	// A Manager boots from what the store persisted.
	store2, err := OpenSQLStore(path)
	require.NoError(t, err)
	defer store2.Close()

	m, err := NewManager(store2, nil)
	require.NoError(t, err)
	require.Equal(t, 1, m.Count())

	got, ok := m.Get("s1")
	require.True(t, ok)
	require.Equal(t, "http://push.example/one-moved", got.PushAddress)
	require.Equal(t, []string{"s1"}, ids(m.ForLineRef("NSB:Line:L1")))
}
