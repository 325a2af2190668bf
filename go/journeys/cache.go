// Package journeys caches the most recent version of each live vehicle
// journey, bounded by an LRU and flushed periodically once journeys finish.
package journeys

import (
	"fmt"
	"sort"
	"time"

	"github.com/bratomyr/ukur/go/siri"
	lru "github.com/hashicorp/golang-lru/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultCapacity = 10000

// maxIdle ages out journeys that never carried usable call times.
const maxIdle = time.Hour

type Entry struct {
	Journey   *siri.EstimatedVehicleJourney
	UpdatedAt time.Time
}

// Cache holds live journeys keyed by dated vehicle journey (or line and
// vehicle, when the dated reference is absent). Updates replace the prior
// version of the same journey.
type Cache struct {
	cache *lru.Cache[string, *Entry]
	now   func() time.Time
}

func NewCache(capacity int, now func() time.Time) (*Cache, error) {
	var inner, err = lru.New[string, *Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("building journey cache: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Cache{cache: inner, now: now}, nil
}

// Update stores the journey as the current version of itself.
func (c *Cache) Update(j *siri.EstimatedVehicleJourney) {
	c.cache.Add(journeyKey(j), &Entry{Journey: j, UpdatedAt: c.now()})
	liveJourneys.Set(float64(c.cache.Len()))
}

// Flush drops journeys whose final call is in the past, and journeys with no
// call times that have not been updated within maxIdle. It returns the number
// dropped.
func (c *Cache) Flush() int {
	var now = c.now()
	var flushed int

	for _, key := range c.cache.Keys() {
		var entry, ok = c.cache.Peek(key)
		if !ok {
			continue
		}
		if last := lastCallTime(entry.Journey); last != nil {
			if last.Before(now) {
				c.cache.Remove(key)
				flushed++
			}
		} else if entry.UpdatedAt.Add(maxIdle).Before(now) {
			c.cache.Remove(key)
			flushed++
		}
	}

	if flushed != 0 {
		flushedJourneys.Add(float64(flushed))
		log.WithField("count", flushed).Info("flushed finished journeys")
	}
	liveJourneys.Set(float64(c.cache.Len()))
	return flushed
}

// List returns cached journeys, restricted to lineRef when non-empty,
// ordered by key.
func (c *Cache) List(lineRef string) []*siri.EstimatedVehicleJourney {
	var keys = c.cache.Keys()
	sort.Strings(keys)

	var out []*siri.EstimatedVehicleJourney
	for _, key := range keys {
		if entry, ok := c.cache.Peek(key); ok {
			if lineRef == "" || entry.Journey.LineRef == lineRef {
				out = append(out, entry.Journey)
			}
		}
	}
	return out
}

// Len returns the number of cached journeys.
func (c *Cache) Len() int {
	return c.cache.Len()
}

func journeyKey(j *siri.EstimatedVehicleJourney) string {
	if j.DatedVehicleJourneyRef != "" {
		return j.DatedVehicleJourneyRef
	}
	return j.LineRef + ":" + j.VehicleRef
}

// lastCallTime finds the latest time across all of the journey's calls.
func lastCallTime(j *siri.EstimatedVehicleJourney) *time.Time {
	var last *time.Time
	var observe = func(ts *siri.Timestamp) {
		if ts == nil {
			return
		}
		if last == nil || ts.After(*last) {
			var t = ts.Time
			last = &t
		}
	}

	for i := range j.RecordedCalls {
		observe(j.RecordedCalls[i].AimedArrivalTime)
		observe(j.RecordedCalls[i].ActualArrivalTime)
		observe(j.RecordedCalls[i].AimedDepartureTime)
		observe(j.RecordedCalls[i].ActualDepartureTime)
	}
	for i := range j.EstimatedCalls {
		observe(j.EstimatedCalls[i].AimedArrivalTime)
		observe(j.EstimatedCalls[i].ExpectedArrivalTime)
		observe(j.EstimatedCalls[i].AimedDepartureTime)
		observe(j.EstimatedCalls[i].ExpectedDepartureTime)
	}
	return last
}
