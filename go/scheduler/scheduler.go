package scheduler

import (
	"context"
	"time"

	"github.com/bratomyr/ukur/go/cluster"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/core/task"
)

// warmupDelay holds back the first firing of every trigger, giving service
// startup (elections, HTTP listener) time to settle.
const warmupDelay = 5 * time.Second

// Trigger periodically dispatches a workflow. Name is the election this
// trigger is gated on; Workflow names the work in the inflight registry.
type Trigger struct {
	Name     string
	Workflow string
	Period   time.Duration
	Fire     func(ctx context.Context) error
}

// Scheduler runs one timer loop per registered trigger. A firing is skipped,
// not queued, when this replica does not lead the trigger or when the
// workflow is still executing; the next chance is the next tick.
type Scheduler struct {
	leadership cluster.Leadership
	inflight   *Inflight
	warmup     time.Duration
	triggers   []Trigger
}

func New(leadership cluster.Leadership, inflight *Inflight) *Scheduler {
	return &Scheduler{
		leadership: leadership,
		inflight:   inflight,
		warmup:     warmupDelay,
	}
}

func (s *Scheduler) Register(t Trigger) {
	s.triggers = append(s.triggers, t)
}

// Triggers returns the registered triggers, for status reporting.
func (s *Scheduler) Triggers() []Trigger {
	return s.triggers
}

// QueueTasks queues the timer loop of every registered trigger.
func (s *Scheduler) QueueTasks(tasks *task.Group) {
	for _, t := range s.triggers {
		tasks.Queue("trigger:"+t.Name, func() error {
			s.run(tasks.Context(), t)
			return nil
		})
	}
}

func (s *Scheduler) run(ctx context.Context, t Trigger) {
	var timer = time.NewTimer(s.warmup)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if !s.leadership.IsLeader(t.Name) {
			triggerSkips.WithLabelValues(t.Name, "not_leader").Inc()
		} else if !s.inflight.Idle(t.Workflow) {
			triggerSkips.WithLabelValues(t.Name, "busy").Inc()
		} else {
			s.dispatch(ctx, t)
		}
		timer.Reset(t.Period)
	}
}

// dispatch runs one invocation on its own goroutine. The timer loop never
// blocks on the workflow; a slow invocation is observed as busy by later
// ticks.
func (s *Scheduler) dispatch(ctx context.Context, t Trigger) {
	var done = s.inflight.Begin(t.Workflow)
	triggerFirings.WithLabelValues(t.Name).Inc()

	go func() {
		defer done()
		var started = time.Now()

		if err := t.Fire(ctx); err != nil {
			workflowErrors.WithLabelValues(t.Workflow).Inc()
			log.WithFields(log.Fields{
				"trigger":  t.Name,
				"workflow": t.Workflow,
				"err":      err,
			}).Error("workflow invocation failed")
		}
		workflowDuration.WithLabelValues(t.Workflow).Observe(time.Since(started).Seconds())
	}()
}
