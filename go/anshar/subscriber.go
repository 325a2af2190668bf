package anshar

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bratomyr/ukur/go/cluster"
	"github.com/bratomyr/ukur/go/siri"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Subscription lifecycle constants, fixed by the upstream contract.
const (
	HeartbeatInterval    = time.Minute
	SubscriptionDuration = 720 * time.Minute
)

// livenessThreshold is how long pushes may stay away before the checker
// re-subscribes.
const livenessThreshold = 3 * HeartbeatInterval

// Subscriber maintains push subscriptions with the upstream. Renew
// (re-)establishes them; Check re-establishes them when pushes have stopped
// arriving.
type Subscriber struct {
	client          *http.Client
	subscriptionURL string
	callbackBase    string
	requestorID     string
	kinds           []Kind
	state           cluster.SharedMap
	clientID        string
	now             func() time.Time
}

func NewSubscriber(
	subscriptionURL, callbackBase, requestorID string,
	kinds []Kind,
	state cluster.SharedMap,
) *Subscriber {
	return &Subscriber{
		client:          &http.Client{Timeout: 30 * time.Second},
		subscriptionURL: subscriptionURL,
		callbackBase:    strings.TrimSuffix(callbackBase, "/"),
		requestorID:     requestorID,
		kinds:           kinds,
		state:           state,
		clientID:        ClientID(),
		now:             time.Now,
	}
}

// Renew (re-)establishes the subscription for every configured kind. The
// kinds fail independently and their errors are combined.
func (s *Subscriber) Renew(ctx context.Context) error {
	var combined error
	for _, kind := range s.kinds {
		if err := s.renewKind(ctx, kind); err != nil {
			log.WithFields(log.Fields{"kind": kind, "err": err}).Error("failed to renew subscription")
			combined = multierr.Append(combined, err)
			continue
		}
		subscriptionRenewals.WithLabelValues(string(kind)).Inc()
		log.WithFields(log.Fields{
			"kind":           kind,
			"subscriptionId": s.subscriptionID(kind),
		}).Info("renewed subscription")
	}
	return combined
}

func (s *Subscriber) renewKind(ctx context.Context, kind Kind) error {
	var body, err = siri.Marshal(s.subscriptionRequest(kind, s.now()))
	if err != nil {
		return fmt.Errorf("building %s subscription request: %w", kind, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.subscriptionURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building %s subscription request: %w", kind, err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("ET-Client-Name", ClientName)
	req.Header.Set("ET-Client-ID", s.clientID)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", kind, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("subscribing to %s: status %d", kind, resp.StatusCode)
	}
	return nil
}

func (s *Subscriber) subscriptionRequest(kind Kind, now time.Time) *siri.Siri {
	var request = &siri.SubscriptionRequest{
		RequestTimestamp:  siri.Timestamp{Time: now},
		Address:           fmt.Sprintf("%s/siriMessages/%s/%s", s.callbackBase, s.requestorID, kind),
		RequestorRef:      ClientName,
		MessageIdentifier: fmt.Sprintf("required-by-siri-spec-%d", now.UnixMilli()),
		Context:           &siri.SubscriptionContext{HeartbeatInterval: siri.Duration(HeartbeatInterval)},
	}
	var termination = siri.Timestamp{Time: now.Add(SubscriptionDuration)}

	switch kind {
	case KindET:
		request.EstimatedTimetable = &siri.EstimatedTimetableSubscription{
			SubscriberRef:          ClientName,
			SubscriptionIdentifier: s.subscriptionID(kind),
			InitialTerminationTime: termination,
			Request: siri.EstimatedTimetableRequest{
				Version:          siri.Version,
				RequestTimestamp: siri.Timestamp{Time: now},
			},
		}
	case KindSX:
		request.SituationExchange = &siri.SituationExchangeSubscription{
			SubscriberRef:          ClientName,
			SubscriptionIdentifier: s.subscriptionID(kind),
			InitialTerminationTime: termination,
			Request: siri.SituationExchangeRequest{
				Version:          siri.Version,
				RequestTimestamp: siri.Timestamp{Time: now},
			},
		}
	}
	return &siri.Siri{SubscriptionRequest: request}
}

func (s *Subscriber) subscriptionID(kind Kind) string {
	return s.requestorID + "-" + kind.Tag()
}

// Check reads each kind's last-received heartbeat and renews every
// subscription once any kind has gone quiet past the liveness threshold.
// Kinds that never received a push are left alone.
func (s *Subscriber) Check(ctx context.Context) error {
	var stale bool
	for _, kind := range s.kinds {
		value, ok, err := s.state.Get(ctx, livenessKey(kind))
		if err != nil {
			return fmt.Errorf("reading %s liveness: %w", kind, err)
		}
		if !ok {
			continue
		}
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			log.WithFields(log.Fields{"kind": kind, "value": value}).Warn("unreadable liveness value")
			continue
		}
		var last = time.UnixMilli(ms)
		if s.now().Sub(last) > livenessThreshold {
			log.WithFields(log.Fields{"kind": kind, "lastReceived": last}).
				Warn("pushes have stopped arriving")
			stale = true
		}
	}
	if !stale {
		return nil
	}
	return s.Renew(ctx)
}
