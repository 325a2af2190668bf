package service

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/bratomyr/ukur/go/cluster"
	"github.com/bratomyr/ukur/go/journeys"
	"github.com/bratomyr/ukur/go/scheduler"
	"github.com/bratomyr/ukur/go/subscription"
	"github.com/bratomyr/ukur/go/tiamat"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const startedTimeFormat = "2006-01-02 15:04:05"

// Status serves the health and introspection APIs of one replica.
type Status struct {
	started       time.Time
	hostname      string
	requestorID   string
	mode          string
	leadership    cluster.Leadership
	scheduler     *scheduler.Scheduler
	journeys      *journeys.Cache
	subscriptions *subscription.Manager
	stops         *tiamat.StopPlaces
}

// NodeStarted is when this replica came up.
func (s *Status) NodeStarted() time.Time { return s.started }

// RequestorID is the cluster-wide upstream requestor identity.
func (s *Status) RequestorID() string { return s.requestorID }

type triggerStatus struct {
	Name     string `json:"name"`
	Workflow string `json:"workflow"`
	Period   string `json:"period"`
	Leader   bool   `json:"leader"`
}

type statusReport struct {
	NodeStarted   string          `json:"nodeStarted"`
	Hostname      string          `json:"hostname"`
	RequestorID   string          `json:"requestorId"`
	Mode          string          `json:"mode"`
	Subscriptions int             `json:"subscriptions"`
	LiveJourneys  int             `json:"liveJourneys"`
	MappedQuays   int             `json:"mappedQuays"`
	Triggers      []triggerStatus `json:"triggers"`
}

// RegisterAPIs registers the health and journey routes with the router.
func (s *Status) RegisterAPIs(router *mux.Router) {
	router.Path("/health/live").Methods("GET").HandlerFunc(s.serveLive)
	router.Path("/health/ready").Methods("GET").HandlerFunc(s.serveReady)
	router.Path("/health/routes").Methods("GET").HandlerFunc(s.serveRoutes)
	router.Path("/journeys").Methods("GET").HandlerFunc(s.serveJourneys)
}

func (s *Status) serveLive(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "OK")
}

func (s *Status) serveReady(w http.ResponseWriter, _ *http.Request) {
	_, _ = io.WriteString(w, "OK")
}

func (s *Status) serveRoutes(w http.ResponseWriter, r *http.Request) {
	var report = statusReport{
		NodeStarted:   s.started.Format(startedTimeFormat),
		Hostname:      s.hostname,
		RequestorID:   s.requestorID,
		Mode:          s.mode,
		Subscriptions: s.subscriptions.Count(),
		LiveJourneys:  s.journeys.Len(),
		MappedQuays:   s.stops.Count(),
		Triggers:      []triggerStatus{},
	}
	for _, t := range s.scheduler.Triggers() {
		report.Triggers = append(report.Triggers, triggerStatus{
			Name:     t.Name,
			Workflow: t.Workflow,
			Period:   t.Period.String(),
			Leader:   s.leadership.IsLeader(t.Name),
		})
	}

	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		log.WithFields(log.Fields{"err": err, "client": r.RemoteAddr}).
			Warn("writing status report")
	}
}

func (s *Status) serveJourneys(w http.ResponseWriter, r *http.Request) {
	var listed = s.journeys.List(r.URL.Query().Get("lineRef"))

	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(listed); err != nil {
		log.WithFields(log.Fields{"err": err, "client": r.RemoteAddr}).
			Warn("writing journey list")
	}
}
