package siri

import "encoding/xml"

// SubscriptionRequest asks a SIRI producer to push deliveries to Address.
// Exactly one of the per-kind sub-requests is set.
type SubscriptionRequest struct {
	XMLName           xml.Name             `xml:"SubscriptionRequest"`
	RequestTimestamp  Timestamp            `xml:"RequestTimestamp"`
	Address           string               `xml:"Address"`
	RequestorRef      string               `xml:"RequestorRef"`
	MessageIdentifier string               `xml:"MessageIdentifier"`
	Context           *SubscriptionContext `xml:"SubscriptionContext,omitempty"`

	EstimatedTimetable *EstimatedTimetableSubscription `xml:"EstimatedTimetableSubscriptionRequest,omitempty"`
	SituationExchange  *SituationExchangeSubscription  `xml:"SituationExchangeSubscriptionRequest,omitempty"`
}

type SubscriptionContext struct {
	HeartbeatInterval Duration `xml:"HeartbeatInterval"`
}

type EstimatedTimetableSubscription struct {
	SubscriberRef          string                    `xml:"SubscriberRef"`
	SubscriptionIdentifier string                    `xml:"SubscriptionIdentifier"`
	InitialTerminationTime Timestamp                 `xml:"InitialTerminationTime"`
	Request                EstimatedTimetableRequest `xml:"EstimatedTimetableRequest"`
}

type EstimatedTimetableRequest struct {
	Version          string    `xml:"version,attr"`
	RequestTimestamp Timestamp `xml:"RequestTimestamp"`
}

type SituationExchangeSubscription struct {
	SubscriberRef          string                   `xml:"SubscriberRef"`
	SubscriptionIdentifier string                   `xml:"SubscriptionIdentifier"`
	InitialTerminationTime Timestamp                `xml:"InitialTerminationTime"`
	Request                SituationExchangeRequest `xml:"SituationExchangeRequest"`
}

type SituationExchangeRequest struct {
	Version          string    `xml:"version,attr"`
	RequestTimestamp Timestamp `xml:"RequestTimestamp"`
}
