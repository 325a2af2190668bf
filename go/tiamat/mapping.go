// Package tiamat maintains the quay to stop place mapping published by the
// Tiamat stop place registry. The mapping is fetched wholesale and swapped
// atomically; lookups between refreshes see one consistent snapshot.
package tiamat

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// StopPlaces answers which stop place a quay belongs to.
type StopPlaces struct {
	mu              sync.RWMutex
	quayToStopPlace map[string]string
	updatedAt       time.Time
}

func NewStopPlaces() *StopPlaces {
	return &StopPlaces{quayToStopPlace: make(map[string]string)}
}

// Update replaces the whole mapping. The input maps each stop place to its
// quays, as published by Tiamat, and is inverted for lookup.
func (s *StopPlaces) Update(stopPlaceQuays map[string][]string) {
	var inverted = make(map[string]string, 2*len(stopPlaceQuays))
	for stopPlace, quays := range stopPlaceQuays {
		for _, quay := range quays {
			inverted[quay] = stopPlace
		}
	}

	s.mu.Lock()
	s.quayToStopPlace = inverted
	s.updatedAt = time.Now()
	s.mu.Unlock()

	mappedQuays.Set(float64(len(inverted)))
	log.WithFields(log.Fields{
		"stopPlaces": len(stopPlaceQuays),
		"quays":      len(inverted),
	}).Info("updated stop place mapping")
}

// MapQuayToStopPlace returns the stop place owning quay, if known.
func (s *StopPlaces) MapQuayToStopPlace(quay string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var stopPlace, ok = s.quayToStopPlace[quay]
	return stopPlace, ok
}

// Count returns the number of mapped quays.
func (s *StopPlaces) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quayToStopPlace)
}

// UpdatedAt returns when the mapping was last replaced, zero if never.
func (s *StopPlaces) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}
