// Package scheduler fires registered workflows on periodic timers, gating
// each firing on trigger leadership and on the workflow being idle. Timers
// tick on every replica; the gates decide which replica actually runs.
package scheduler

import "sync"

// Inflight counts workflow invocations currently executing on this replica.
// It is advisory and per-replica: other replicas running the same workflow
// are not visible here.
type Inflight struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewInflight() *Inflight {
	return &Inflight{counts: make(map[string]int)}
}

// Begin records the start of an invocation and returns its completion
// callback. Call done exactly once.
func (r *Inflight) Begin(workflow string) (done func()) {
	r.mu.Lock()
	r.counts[workflow]++
	inflightGauge.WithLabelValues(workflow).Set(float64(r.counts[workflow]))
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		r.counts[workflow]--
		inflightGauge.WithLabelValues(workflow).Set(float64(r.counts[workflow]))
		r.mu.Unlock()
	}
}

// Idle reports whether no invocation of workflow is executing.
func (r *Inflight) Idle(workflow string) bool {
	return r.Count(workflow) == 0
}

// Count returns the number of executing invocations of workflow.
func (r *Inflight) Count(workflow string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[workflow]
}
