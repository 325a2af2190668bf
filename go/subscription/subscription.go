// Package subscription holds registered subscriptions, indexes them for the
// matching engines, persists them, and pushes notifications to their
// subscribers.
package subscription

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Subscription is one subscriber registration. A journey deviation matches
// when it travels from one of FromStopPoints towards one of ToStopPoints;
// LineRefs and VehicleRefs, when non-empty, restrict matches to the named
// lines and vehicles. A subscription carrying only line or vehicle refs is
// matched on those alone.
type Subscription struct {
	ID             string   `json:"id"`
	Name           string   `json:"name,omitempty"`
	PushAddress    string   `json:"pushAddress"`
	FromStopPoints []string `json:"fromStopPoints,omitempty"`
	ToStopPoints   []string `json:"toStopPoints,omitempty"`
	LineRefs       []string `json:"lineRefs,omitempty"`
	VehicleRefs    []string `json:"vehicleRefs,omitempty"`
}

// Validate checks the subscription and normalizes its push address. An ID is
// assigned when absent.
func (s *Subscription) Validate() error {
	s.PushAddress = strings.TrimSuffix(strings.TrimSpace(s.PushAddress), "/")
	if s.PushAddress == "" {
		return fmt.Errorf("subscription requires a pushAddress")
	}

	var hasStops = len(s.FromStopPoints) != 0 && len(s.ToStopPoints) != 0
	var hasRefs = len(s.LineRefs) != 0 || len(s.VehicleRefs) != 0
	if !hasStops && !hasRefs {
		return fmt.Errorf("subscription requires fromStopPoints and toStopPoints, or lineRefs or vehicleRefs")
	}

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// HasFromStop reports whether ref is one of the subscribed origin stops.
func (s *Subscription) HasFromStop(ref string) bool {
	return contains(s.FromStopPoints, ref)
}

// HasToStop reports whether ref is one of the subscribed destination stops.
func (s *Subscription) HasToStop(ref string) bool {
	return contains(s.ToStopPoints, ref)
}

// ExcludesLine reports whether a non-empty line filter rules out lineRef.
// A blank lineRef never excludes.
func (s *Subscription) ExcludesLine(lineRef string) bool {
	return len(s.LineRefs) != 0 && lineRef != "" && !contains(s.LineRefs, lineRef)
}

// ExcludesVehicle reports whether a non-empty vehicle filter rules out
// vehicleRef. A blank vehicleRef never excludes.
func (s *Subscription) ExcludesVehicle(vehicleRef string) bool {
	return len(s.VehicleRefs) != 0 && vehicleRef != "" && !contains(s.VehicleRefs, vehicleRef)
}

func contains(refs []string, ref string) bool {
	for _, r := range refs {
		if r == ref {
			return true
		}
	}
	return false
}
