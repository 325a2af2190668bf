package siri

import "encoding/xml"

// PtSituationElement is one situation within an SX delivery. Only the fields
// needed for participant filtering and affect extraction are modelled.
type PtSituationElement struct {
	XMLName         xml.Name         `xml:"PtSituationElement"`
	CreationTime    *Timestamp       `xml:"CreationTime,omitempty"`
	ParticipantRef  string           `xml:"ParticipantRef,omitempty"`
	SituationNumber string           `xml:"SituationNumber,omitempty"`
	Progress        string           `xml:"Progress,omitempty"`
	ValidityPeriods []ValidityPeriod `xml:"ValidityPeriod"`
	Severity        string           `xml:"Severity,omitempty"`
	ReportType      string           `xml:"ReportType,omitempty"`
	Summary         string           `xml:"Summary,omitempty"`
	Description     string           `xml:"Description,omitempty"`
	Affects         *Affects         `xml:"Affects,omitempty"`
}

type ValidityPeriod struct {
	StartTime *Timestamp `xml:"StartTime,omitempty"`
	EndTime   *Timestamp `xml:"EndTime,omitempty"`
}

type Affects struct {
	Networks        []AffectedNetwork        `xml:"Networks>AffectedNetwork"`
	StopPoints      []AffectedStopPoint      `xml:"StopPoints>AffectedStopPoint"`
	VehicleJourneys []AffectedVehicleJourney `xml:"VehicleJourneys>AffectedVehicleJourney"`
}

type AffectedNetwork struct {
	Lines []AffectedLine `xml:"AffectedLine"`
}

type AffectedLine struct {
	LineRef string `xml:"LineRef,omitempty"`
}

type AffectedStopPoint struct {
	StopPointRef string `xml:"StopPointRef,omitempty"`
}

type AffectedVehicleJourney struct {
	VehicleJourneyRefs []string        `xml:"VehicleJourneyRef"`
	Routes             []AffectedRoute `xml:"Route"`
}

type AffectedRoute struct {
	StopPoints []AffectedStopPoint `xml:"StopPoints>AffectedStopPoint"`
}

// AffectedStopRefs collects every stop reference the situation names, both
// directly and inside affected vehicle journey routes. Duplicates are removed,
// encounter order is kept.
func (p *PtSituationElement) AffectedStopRefs() []string {
	if p.Affects == nil {
		return nil
	}
	var seen = make(map[string]struct{})
	var refs []string
	var add = func(ref string) {
		if ref == "" {
			return
		}
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	for _, sp := range p.Affects.StopPoints {
		add(sp.StopPointRef)
	}
	for _, vj := range p.Affects.VehicleJourneys {
		for _, route := range vj.Routes {
			for _, sp := range route.StopPoints {
				add(sp.StopPointRef)
			}
		}
	}
	return refs
}

// AffectedLineRefs collects the line references named under affected networks.
func (p *PtSituationElement) AffectedLineRefs() []string {
	if p.Affects == nil {
		return nil
	}
	var refs []string
	for _, network := range p.Affects.Networks {
		for _, line := range network.Lines {
			if line.LineRef != "" {
				refs = append(refs, line.LineRef)
			}
		}
	}
	return refs
}

// AffectedVehicleJourneyRefs collects affected vehicle journey references.
func (p *PtSituationElement) AffectedVehicleJourneyRefs() []string {
	if p.Affects == nil {
		return nil
	}
	var refs []string
	for _, vj := range p.Affects.VehicleJourneys {
		refs = append(refs, vj.VehicleJourneyRefs...)
	}
	return refs
}
