package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bratomyr/ukur/go/anshar"
	"github.com/bratomyr/ukur/go/archive"
	"github.com/bratomyr/ukur/go/cluster"
	"github.com/bratomyr/ukur/go/et"
	"github.com/bratomyr/ukur/go/journeys"
	"github.com/bratomyr/ukur/go/scheduler"
	"github.com/bratomyr/ukur/go/subscription"
	"github.com/bratomyr/ukur/go/sx"
	"github.com/bratomyr/ukur/go/tiamat"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.gazette.dev/core/task"
)

// stateMapPrefix is the etcd prefix of the shared cluster state map, and
// electionPrefix that of the per-trigger elections.
const stateMapPrefix = "/ukur/state"
const electionPrefix = "/ukur"

// Args bundles the dependencies of a ukur service instance.
type Args struct {
	// Config of the service.
	Config *Config
	// Server all HTTP APIs are registered against.
	Server *Server
	// Tasks are independent, cancelable goroutines having the lifetime of
	// the service, such as service loops and the like.
	Tasks *task.Group
	// Etcd client backing the shared state map and trigger elections.
	Etcd *clientv3.Client
}

// Start wires up the service: shared cluster state, the stop place mapping,
// subscriptions and their notifier, the live journey cache, the per-kind
// Anshar feeds, and the trigger schedule. All HTTP APIs are registered
// against args.Server and all service loops queued onto args.Tasks.
func Start(args Args) (*Status, error) {
	var cfg = args.Config
	var tasks = args.Tasks
	var hostname = anshar.ClientID()
	var identity = fmt.Sprintf("%s-%d", hostname, os.Getpid())

	var state = cluster.NewEtcdMap(args.Etcd, stateMapPrefix)

	requestorID, err := anshar.RequestorID(tasks.Context(), state)
	if err != nil {
		return nil, err
	}

	// Stop place mapping, refreshed from Tiamat when enabled. Every replica
	// also fetches once at startup, so quay resolution works before this
	// replica first leads the refresh trigger.
	var stops = tiamat.NewStopPlaces()
	var refresher *tiamat.Refresher
	if cfg.Tiamat.Enabled {
		refresher = tiamat.NewRefresher(cfg.Tiamat.URL, anshar.ClientName, hostname, stops)
		tasks.Queue("tiamat.initialRefresh", func() error {
			if err := refresher.Refresh(tasks.Context()); err != nil {
				log.WithField("err", err).Warn("initial stop place refresh failed")
			}
			return nil
		})
	}

	store, err := subscription.OpenSQLStore(cfg.Ukur.SubscriptionDB)
	if err != nil {
		return nil, err
	}
	tasks.Queue("subscription.store.Close", func() error {
		<-tasks.Context().Done()
		if err := store.Close(); err != nil {
			log.WithField("err", err).Warn("failed to close subscription store cleanly")
		}
		return nil
	})

	manager, err := subscription.NewManager(store, stops)
	if err != nil {
		return nil, fmt.Errorf("loading subscriptions: %w", err)
	}
	var notifier = subscription.NewPushNotifier(stops)
	notifier.QueueTasks(tasks)

	cache, err := journeys.NewCache(journeys.DefaultCapacity, time.Now)
	if err != nil {
		return nil, fmt.Errorf("building journey cache: %w", err)
	}

	var arch anshar.Archiver
	if cfg.Ukur.StoreMessages {
		arch = archive.NewWriter(cfg.Ukur.ArchiveDir)
	}

	var pipelines []*anshar.Pipeline
	if cfg.ETEnabled() {
		var p = anshar.NewETPipeline(
			cfg.Anshar.Operator, et.NewProcessor(manager, notifier, cache, stops), arch)
		p.QueueTasks(tasks)
		pipelines = append(pipelines, p)
	}
	if cfg.SXEnabled() {
		var p = anshar.NewSXPipeline(
			cfg.Anshar.Operator, sx.NewProcessor(manager, notifier), arch)
		p.QueueTasks(tasks)
		pipelines = append(pipelines, p)
	}

	var coordinator = cluster.NewCoordinator(args.Etcd, electionPrefix, identity, cfg.Etcd.LeaseTTL)
	var sched = scheduler.New(coordinator, scheduler.NewInflight())

	sched.Register(scheduler.Trigger{
		Name:     "FlushOldJourneys",
		Workflow: "flushOldJourneys",
		Period:   cfg.Ukur.PollingInterval,
		Fire: func(context.Context) error {
			cache.Flush()
			return nil
		},
	})
	if cfg.Tiamat.Enabled {
		sched.Register(scheduler.Trigger{
			Name:     "TiamatRefresh",
			Workflow: "tiamatRefresh",
			Period:   cfg.Tiamat.Interval,
			Fire:     refresher.Refresh,
		})
	}

	var mode = "polling"
	if cfg.Anshar.UseSubscription {
		mode = "subscribing"

		if len(pipelines) == 0 {
			log.Warn("no point in maintaining an Anshar subscription with both ET and SX disabled")
		} else {
			var kinds []anshar.Kind
			for _, p := range pipelines {
				kinds = append(kinds, p.Kind())
			}
			var subscriber = anshar.NewSubscriber(
				cfg.Anshar.SubscriptionURL, cfg.Anshar.OwnBaseURL, requestorID, kinds, state)

			sched.Register(scheduler.Trigger{
				Name:     "AnsharSubscriptionRenewer",
				Workflow: "renewAnsharSubscription",
				Period:   anshar.SubscriptionDuration,
				Fire:     subscriber.Renew,
			})
			sched.Register(scheduler.Trigger{
				Name:     "AnsharSubscriptionChecker",
				Workflow: "checkAnsharSubscription",
				Period:   anshar.HeartbeatInterval,
				Fire:     subscriber.Check,
			})
		}
	} else {
		for _, p := range pipelines {
			var url string
			switch p.Kind() {
			case anshar.KindET:
				url = anshar.PollURL(cfg.Anshar.ETPollingURL, requestorID)
			case anshar.KindSX:
				url = anshar.PollURL(cfg.Anshar.SXPollingURL, requestorID)
			}
			var poller = anshar.NewPoller(p, url)

			sched.Register(scheduler.Trigger{
				Name:     "AnsharPoll" + p.Kind().Tag(),
				Workflow: "pollAnshar" + p.Kind().Tag(),
				Period:   cfg.Ukur.PollingInterval,
				Fire:     poller.Poll,
			})
		}
	}

	for _, t := range sched.Triggers() {
		coordinator.Enroll(t.Name)
	}
	coordinator.QueueTasks(tasks)
	sched.QueueTasks(tasks)

	subscription.RegisterAPIs(args.Server.Router, manager)
	anshar.NewCallbackAPI(requestorID, state, pipelines...).RegisterAPIs(args.Server.Router)

	var status = &Status{
		started:       time.Now(),
		hostname:      hostname,
		requestorID:   requestorID,
		mode:          mode,
		leadership:    coordinator,
		scheduler:     sched,
		journeys:      cache,
		subscriptions: manager,
		stops:         stops,
	}
	status.RegisterAPIs(args.Server.Router)
	args.Server.Router.Path("/metrics").Methods("GET").Handler(promhttp.Handler())

	log.WithFields(log.Fields{
		"requestorId": requestorID,
		"mode":        mode,
		"triggers":    len(sched.Triggers()),
	}).Info("service started")

	return status, nil
}
