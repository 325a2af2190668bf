package service

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bratomyr/ukur/go/journeys"
	"github.com/bratomyr/ukur/go/scheduler"
	"github.com/bratomyr/ukur/go/siri"
	"github.com/bratomyr/ukur/go/subscription"
	"github.com/bratomyr/ukur/go/tiamat"
	"github.com/gorilla/mux"
	"github.com/nsf/jsondiff"
	"github.com/stretchr/testify/require"
	"go.gazette.dev/core/task"
)

type fixedLeadership map[string]bool

func (l fixedLeadership) IsLeader(trigger string) bool { return l[trigger] }

func TestStatusReportsTriggersAndCounts(t *testing.T) {
	var leadership = fixedLeadership{"FlushOldJourneys": true}
	var sched = scheduler.New(leadership, scheduler.NewInflight())
	sched.Register(scheduler.Trigger{
		Name: "FlushOldJourneys", Workflow: "flushOldJourneys", Period: 30 * time.Second})
	sched.Register(scheduler.Trigger{
		Name: "AnsharPollET", Workflow: "pollAnsharET", Period: 30 * time.Second})

	var manager, err = subscription.NewManager(nil, nil)
	require.NoError(t, err)
	_, err = manager.Add(&subscription.Subscription{
		ID:             "s1",
		PushAddress:    "http://subscriber/push",
		FromStopPoints: []string{"NSR:StopPlace:1"},
		ToStopPoints:   []string{"NSR:StopPlace:2"},
	})
	require.NoError(t, err)

	cache, err := journeys.NewCache(journeys.DefaultCapacity, time.Now)
	require.NoError(t, err)

	var stops = tiamat.NewStopPlaces()
	stops.Update(map[string][]string{"NSR:StopPlace:1": {"NSR:Quay:11"}})

	var status = &Status{
		started:       time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC),
		hostname:      "node-1",
		requestorID:   "ukur-123",
		mode:          "polling",
		leadership:    leadership,
		scheduler:     sched,
		journeys:      cache,
		subscriptions: manager,
		stops:         stops,
	}
	var router = mux.NewRouter()
	status.RegisterAPIs(router)

	var w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health/routes", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var expected = `{
		"nodeStarted": "2026-08-24 09:00:00",
		"hostname": "node-1",
		"requestorId": "ukur-123",
		"mode": "polling",
		"subscriptions": 1,
		"liveJourneys": 0,
		"mappedQuays": 1,
		"triggers": [
			{"name": "FlushOldJourneys", "workflow": "flushOldJourneys", "period": "30s", "leader": true},
			{"name": "AnsharPollET", "workflow": "pollAnsharET", "period": "30s", "leader": false}
		]
	}`
	var opts = jsondiff.DefaultConsoleOptions()
	var mode, diff = jsondiff.Compare(w.Body.Bytes(), []byte(expected), &opts)
	require.Equal(t, jsondiff.FullMatch, mode, diff)
}

func TestJourneyListingFiltersByLine(t *testing.T) {
	var cache, err = journeys.NewCache(journeys.DefaultCapacity, time.Now)
	require.NoError(t, err)
	cache.Update(&siri.EstimatedVehicleJourney{
		LineRef: "NSB:Line:L1", DatedVehicleJourneyRef: "journey-1"})
	cache.Update(&siri.EstimatedVehicleJourney{
		LineRef: "NSB:Line:L2", DatedVehicleJourneyRef: "journey-2"})

	var status = &Status{journeys: cache}
	var router = mux.NewRouter()
	status.RegisterAPIs(router)

	var w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/journeys?lineRef=NSB:Line:L1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var listed []*siri.EstimatedVehicleJourney
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	require.Equal(t, "journey-1", listed[0].DatedVehicleJourneyRef)
}

func TestServerServesUntilCancelled(t *testing.T) {
	var srv, err = NewServer(0)
	require.NoError(t, err)
	srv.Router.Path("/ping").Methods("GET").HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })

	var tasks = task.NewGroup(context.Background())
	srv.QueueTasks(tasks)
	tasks.GoRun()

	_, port, err := net.SplitHostPort(srv.Endpoint())
	require.NoError(t, err)

	resp, err := http.Get("http://127.0.0.1:" + port + "/ping")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, "pong", string(body))

	tasks.Cancel()
	require.NoError(t, tasks.Wait())
}
