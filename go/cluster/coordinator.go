package cluster

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"go.gazette.dev/core/task"
)

// Leadership answers whether this replica currently leads a named trigger.
// Leadership is lease-based and advisory: a replica that loses its lease
// drops the flag at once, but a brief window where two replicas both
// believe they lead is tolerated by the consumers of this interface.
type Leadership interface {
	IsLeader(trigger string) bool
}

const campaignRetryInterval = 5 * time.Second
const resignTimeout = 5 * time.Second

// Coordinator campaigns in one etcd election per enrolled trigger. Elections
// live under <prefix>/lock/<trigger>, each backed by its own lease session so
// triggers fail over independently.
type Coordinator struct {
	client   *clientv3.Client
	prefix   string
	identity string
	leaseTTL time.Duration

	mu        sync.Mutex
	campaigns map[string]*campaign
}

type campaign struct {
	leading atomic.Bool
}

func NewCoordinator(client *clientv3.Client, prefix, identity string, leaseTTL time.Duration) *Coordinator {
	return &Coordinator{
		client:    client,
		prefix:    prefix,
		identity:  identity,
		leaseTTL:  leaseTTL,
		campaigns: make(map[string]*campaign),
	}
}

// Enroll registers a trigger for election. Enroll before QueueTasks; an
// un-enrolled trigger is never led.
func (c *Coordinator) Enroll(trigger string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.campaigns[trigger]; !ok {
		c.campaigns[trigger] = &campaign{}
	}
}

func (c *Coordinator) IsLeader(trigger string) bool {
	c.mu.Lock()
	var camp = c.campaigns[trigger]
	c.mu.Unlock()
	return camp != nil && camp.leading.Load()
}

// QueueTasks queues a campaign loop for every enrolled trigger.
func (c *Coordinator) QueueTasks(tasks *task.Group) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for trigger, camp := range c.campaigns {
		tasks.Queue("election:"+trigger, func() error {
			return c.campaignLoop(tasks.Context(), trigger, camp)
		})
	}
}

func (c *Coordinator) campaignLoop(ctx context.Context, trigger string, camp *campaign) error {
	var electionPrefix = c.prefix + "/lock/" + trigger

	for {
		var err = c.campaignOnce(ctx, trigger, electionPrefix, camp)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			log.WithFields(log.Fields{
				"trigger": trigger,
				"err":     err,
			}).Warn("election campaign failed, retrying")
			campaignRestarts.WithLabelValues(trigger).Inc()
		}
		select {
		case <-time.After(campaignRetryInterval):
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Coordinator) campaignOnce(ctx context.Context, trigger, electionPrefix string, camp *campaign) error {
	session, err := concurrency.NewSession(c.client,
		concurrency.WithTTL(int(c.leaseTTL.Seconds())),
		concurrency.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("establishing election session: %w", err)
	}
	defer session.Close()

	var election = concurrency.NewElection(session, electionPrefix)
	if err = election.Campaign(ctx, c.identity); err != nil {
		return fmt.Errorf("campaigning: %w", err)
	}

	camp.leading.Store(true)
	leaderGauge.WithLabelValues(trigger).Set(1)
	log.WithFields(log.Fields{
		"trigger":  trigger,
		"identity": c.identity,
	}).Info("gained trigger leadership")

	select {
	case <-session.Done():
		// Lease expired. The candidacy key is gone and some other replica
		// may already lead.
	case <-ctx.Done():
		// Graceful shutdown: hand off now rather than waiting out the lease.
		var rctx, cancel = context.WithTimeout(context.Background(), resignTimeout)
		_ = election.Resign(rctx)
		cancel()
	}

	camp.leading.Store(false)
	leaderGauge.WithLabelValues(trigger).Set(0)
	log.WithField("trigger", trigger).Info("lost trigger leadership")
	return nil
}
