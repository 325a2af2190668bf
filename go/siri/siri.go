// Package siri models the subset of SIRI 2.0 exchanged with the Anshar
// aggregator: estimated timetables, situation exchange, and the outbound
// subscription request. Two representations are provided: typed structs for
// matching and message building, and an element-tree Document for cheap
// filtering of raw deliveries before they are decoded.
package siri

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

// Version is the SIRI protocol version stamped on every outbound message.
const Version = "2.0"

// Namespace is the SIRI 2.0 XML namespace.
const Namespace = "http://www.siri.org.uk/siri"

// Siri is the top-level envelope of every SIRI message.
type Siri struct {
	XMLName             xml.Name             `xml:"Siri"`
	Version             string               `xml:"version,attr"`
	Xmlns               string               `xml:"xmlns,attr,omitempty"`
	ServiceDelivery     *ServiceDelivery     `xml:"ServiceDelivery,omitempty"`
	SubscriptionRequest *SubscriptionRequest `xml:"SubscriptionRequest,omitempty"`
}

// ServiceDelivery carries zero or more per-kind deliveries. MoreData signals
// that the producer holds further pages for the same requestor.
type ServiceDelivery struct {
	ResponseTimestamp *Timestamp `xml:"ResponseTimestamp,omitempty"`
	ProducerRef       string     `xml:"ProducerRef,omitempty"`
	MoreData          bool       `xml:"MoreData,omitempty"`

	EstimatedTimetableDeliveries []EstimatedTimetableDelivery `xml:"EstimatedTimetableDelivery"`
	SituationExchangeDeliveries  []SituationExchangeDelivery  `xml:"SituationExchangeDelivery"`
}

type EstimatedTimetableDelivery struct {
	Version string                         `xml:"version,attr,omitempty"`
	Frames  []EstimatedJourneyVersionFrame `xml:"EstimatedJourneyVersionFrame"`
}

type EstimatedJourneyVersionFrame struct {
	RecordedAtTime *Timestamp                `xml:"RecordedAtTime,omitempty"`
	Journeys       []EstimatedVehicleJourney `xml:"EstimatedVehicleJourney"`
}

type SituationExchangeDelivery struct {
	Version    string               `xml:"version,attr,omitempty"`
	Situations []PtSituationElement `xml:"Situations>PtSituationElement"`
}

// EstimatedVehicleJourney is one versioned journey within an ET delivery.
type EstimatedVehicleJourney struct {
	XMLName                xml.Name        `xml:"EstimatedVehicleJourney"`
	LineRef                string          `xml:"LineRef,omitempty"`
	DirectionRef           string          `xml:"DirectionRef,omitempty"`
	DatedVehicleJourneyRef string          `xml:"DatedVehicleJourneyRef,omitempty"`
	Cancellation           bool            `xml:"Cancellation,omitempty"`
	VehicleMode            string          `xml:"VehicleMode,omitempty"`
	OperatorRef            string          `xml:"OperatorRef,omitempty"`
	ServiceFeatureRefs     []string        `xml:"ServiceFeatureRef"`
	VehicleRef             string          `xml:"VehicleRef,omitempty"`
	RecordedCalls          []RecordedCall  `xml:"RecordedCalls>RecordedCall"`
	EstimatedCalls         []EstimatedCall `xml:"EstimatedCalls>EstimatedCall"`
	IsCompleteStopSequence bool            `xml:"IsCompleteStopSequence,omitempty"`
}

// HasServiceFeature reports whether the journey carries the named service
// feature, compared case-insensitively.
func (j *EstimatedVehicleJourney) HasServiceFeature(feature string) bool {
	for _, ref := range j.ServiceFeatureRefs {
		if strings.EqualFold(ref, feature) {
			return true
		}
	}
	return false
}

// RecordedCall is a stop the vehicle has already served.
type RecordedCall struct {
	StopPointRef        string     `xml:"StopPointRef,omitempty"`
	StopPointName       string     `xml:"StopPointName,omitempty"`
	AimedArrivalTime    *Timestamp `xml:"AimedArrivalTime,omitempty"`
	ActualArrivalTime   *Timestamp `xml:"ActualArrivalTime,omitempty"`
	AimedDepartureTime  *Timestamp `xml:"AimedDepartureTime,omitempty"`
	ActualDepartureTime *Timestamp `xml:"ActualDepartureTime,omitempty"`
}

// EstimatedCall is a stop the vehicle has yet to serve.
type EstimatedCall struct {
	StopPointRef              string             `xml:"StopPointRef,omitempty"`
	StopPointName             string             `xml:"StopPointName,omitempty"`
	Cancellation              bool               `xml:"Cancellation,omitempty"`
	AimedArrivalTime          *Timestamp         `xml:"AimedArrivalTime,omitempty"`
	ExpectedArrivalTime       *Timestamp         `xml:"ExpectedArrivalTime,omitempty"`
	ArrivalStatus             CallStatus         `xml:"ArrivalStatus,omitempty"`
	ArrivalBoardingActivity   *ArrivalActivity   `xml:"ArrivalBoardingActivity,omitempty"`
	AimedDepartureTime        *Timestamp         `xml:"AimedDepartureTime,omitempty"`
	ExpectedDepartureTime     *Timestamp         `xml:"ExpectedDepartureTime,omitempty"`
	DepartureStatus           CallStatus         `xml:"DepartureStatus,omitempty"`
	DepartureBoardingActivity *DepartureActivity `xml:"DepartureBoardingActivity,omitempty"`
}

// CallStatus is the SIRI call status enumeration, lower camel case on the wire.
type CallStatus string

const (
	CallStatusOnTime    CallStatus = "onTime"
	CallStatusEarly     CallStatus = "early"
	CallStatusDelayed   CallStatus = "delayed"
	CallStatusCancelled CallStatus = "cancelled"
	CallStatusArrived   CallStatus = "arrived"
	CallStatusDeparted  CallStatus = "departed"
	CallStatusMissed    CallStatus = "missed"
	CallStatusNoReport  CallStatus = "noReport"
)

// ArrivalActivity enumerates ArrivalBoardingActivity.
type ArrivalActivity string

const (
	ArrivalAlighting   ArrivalActivity = "alighting"
	ArrivalNoAlighting ArrivalActivity = "noAlighting"
	ArrivalPassThru    ArrivalActivity = "passThru"
)

// DepartureActivity enumerates DepartureBoardingActivity.
type DepartureActivity string

const (
	DepartureBoarding   DepartureActivity = "boarding"
	DepartureNoBoarding DepartureActivity = "noBoarding"
	DeparturePassThru   DepartureActivity = "passThru"
)

// Parse decodes a complete SIRI envelope.
func Parse(data []byte) (*Siri, error) {
	var s Siri
	if err := xml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding Siri envelope: %w", err)
	}
	return &s, nil
}

// ParseEstimatedVehicleJourney decodes a bare EstimatedVehicleJourney fragment.
func ParseEstimatedVehicleJourney(data []byte) (*EstimatedVehicleJourney, error) {
	var j EstimatedVehicleJourney
	if err := xml.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decoding EstimatedVehicleJourney: %w", err)
	}
	return &j, nil
}

// ParsePtSituationElement decodes a bare PtSituationElement fragment.
func ParsePtSituationElement(data []byte) (*PtSituationElement, error) {
	var p PtSituationElement
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding PtSituationElement: %w", err)
	}
	return &p, nil
}

// Marshal renders a SIRI envelope with XML header, indented. The envelope
// version and namespace are filled if unset.
func Marshal(s *Siri) ([]byte, error) {
	if s.Version == "" {
		s.Version = Version
	}
	if s.Xmlns == "" {
		s.Xmlns = Namespace
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	var enc = xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("encoding Siri envelope: %w", err)
	}
	return buf.Bytes(), nil
}
