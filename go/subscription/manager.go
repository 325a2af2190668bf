package subscription

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// QuayResolver maps a quay reference to its parent stop place.
type QuayResolver interface {
	MapQuayToStopPlace(quay string) (string, bool)
}

// Store persists subscriptions across restarts. A Manager with a nil Store
// keeps them in memory only.
type Store interface {
	LoadAll() ([]*Subscription, error)
	Upsert(*Subscription) error
	Delete(id string) error
	Close() error
}

// Manager indexes subscriptions by stop point, line and vehicle for the
// matching engines, and mediates all mutation.
type Manager struct {
	store    Store
	resolver QuayResolver

	mu        sync.RWMutex
	byID      map[string]*Subscription
	byStop    map[string]map[string]*Subscription
	byLine    map[string]map[string]*Subscription
	byVehicle map[string]map[string]*Subscription
}

// NewManager builds a Manager, loading any persisted subscriptions from
// store. Either store or resolver may be nil.
func NewManager(store Store, resolver QuayResolver) (*Manager, error) {
	var m = &Manager{
		store:     store,
		resolver:  resolver,
		byID:      make(map[string]*Subscription),
		byStop:    make(map[string]map[string]*Subscription),
		byLine:    make(map[string]map[string]*Subscription),
		byVehicle: make(map[string]map[string]*Subscription),
	}

	if store != nil {
		subs, err := store.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("loading persisted subscriptions: %w", err)
		}
		for _, s := range subs {
			m.index(s)
		}
		log.WithField("count", len(subs)).Info("loaded persisted subscriptions")
	}
	return m, nil
}

// Add validates, persists and indexes a subscription. An existing ID is
// replaced.
func (m *Manager) Add(s *Subscription) (*Subscription, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if m.store != nil {
		if err := m.store.Upsert(s); err != nil {
			return nil, fmt.Errorf("persisting subscription %s: %w", s.ID, err)
		}
	}

	m.mu.Lock()
	if prior, ok := m.byID[s.ID]; ok {
		m.unindex(prior)
	}
	m.index(s)
	var count = len(m.byID)
	m.mu.Unlock()

	subscriptionsGauge.Set(float64(count))
	log.WithFields(log.Fields{
		"id":   s.ID,
		"name": s.Name,
	}).Info("added subscription")
	return s, nil
}

// Remove deletes a subscription by ID.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	var s, ok = m.byID[id]
	if ok {
		m.unindex(s)
	}
	var count = len(m.byID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no subscription with id %s", id)
	}
	if m.store != nil {
		if err := m.store.Delete(id); err != nil {
			return fmt.Errorf("deleting subscription %s: %w", id, err)
		}
	}
	subscriptionsGauge.Set(float64(count))
	log.WithField("id", id).Info("removed subscription")
	return nil
}

// Get returns the subscription with the given ID.
func (m *Manager) Get(id string) (*Subscription, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var s, ok = m.byID[id]
	return s, ok
}

// List returns all subscriptions ordered by ID.
func (m *Manager) List() []*Subscription {
	m.mu.RLock()
	var out = make([]*Subscription, 0, len(m.byID))
	for _, s := range m.byID {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of registered subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// ForStopPoint returns subscriptions watching the stop, either directly or
// through the stop place a quay reference resolves to.
func (m *Manager) ForStopPoint(ref string) []*Subscription {
	m.mu.RLock()
	var set = make(map[string]*Subscription)
	for id, s := range m.byStop[ref] {
		set[id] = s
	}
	m.mu.RUnlock()

	if m.resolver != nil && strings.HasPrefix(ref, "NSR:Quay:") {
		if parent, ok := m.resolver.MapQuayToStopPlace(ref); ok {
			m.mu.RLock()
			for id, s := range m.byStop[parent] {
				set[id] = s
			}
			m.mu.RUnlock()
		}
	}
	return sorted(set)
}

// ForLineRef returns subscriptions watching the line.
func (m *Manager) ForLineRef(ref string) []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sorted(m.byLine[ref])
}

// ForVehicleRef returns subscriptions watching the vehicle.
func (m *Manager) ForVehicleRef(ref string) []*Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sorted(m.byVehicle[ref])
}

// index adds s to all lookup maps. Caller holds mu.
func (m *Manager) index(s *Subscription) {
	m.byID[s.ID] = s
	for _, stop := range s.FromStopPoints {
		indexInto(m.byStop, stop, s)
	}
	for _, stop := range s.ToStopPoints {
		indexInto(m.byStop, stop, s)
	}
	for _, line := range s.LineRefs {
		indexInto(m.byLine, line, s)
	}
	for _, vehicle := range s.VehicleRefs {
		indexInto(m.byVehicle, vehicle, s)
	}
}

// unindex removes s from all lookup maps. Caller holds mu.
func (m *Manager) unindex(s *Subscription) {
	delete(m.byID, s.ID)
	for _, stop := range s.FromStopPoints {
		unindexFrom(m.byStop, stop, s.ID)
	}
	for _, stop := range s.ToStopPoints {
		unindexFrom(m.byStop, stop, s.ID)
	}
	for _, line := range s.LineRefs {
		unindexFrom(m.byLine, line, s.ID)
	}
	for _, vehicle := range s.VehicleRefs {
		unindexFrom(m.byVehicle, vehicle, s.ID)
	}
}

func indexInto(index map[string]map[string]*Subscription, key string, s *Subscription) {
	if index[key] == nil {
		index[key] = make(map[string]*Subscription)
	}
	index[key][s.ID] = s
}

func unindexFrom(index map[string]map[string]*Subscription, key, id string) {
	delete(index[key], id)
	if len(index[key]) == 0 {
		delete(index, key)
	}
}

func sorted(set map[string]*Subscription) []*Subscription {
	var out = make([]*Subscription, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
