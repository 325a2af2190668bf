// Package anshar maintains the data feed from the Anshar SIRI aggregator.
// Each kind (estimated timetables, situation exchange) flows through a
// Pipeline that filters deliveries to the configured operator and fans
// fragments out to its matching engine. The feed itself runs in one of two
// modes: a Poller that pulls pages on a timer, or a Subscriber plus
// CallbackAPI that maintain a push subscription with the upstream.
package anshar

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bratomyr/ukur/go/cluster"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Kind names one of the SIRI feeds consumed from Anshar.
type Kind string

const (
	KindET Kind = "et"
	KindSX Kind = "sx"
)

// Tag is the uppercase form used in subscription identifiers.
func (k Kind) Tag() string { return strings.ToUpper(string(k)) }

// ClientName identifies this service in ET-Client-Name headers and as the
// SIRI requestor and subscriber reference.
const ClientName = "Ukur"

// ClientID is the per-host value of the ET-Client-ID header.
func ClientID() string {
	var hostname, err = os.Hostname()
	if err != nil || hostname == "" {
		return "Ukur-UnknownHost"
	}
	return hostname
}

const requestorIDKey = "AnsharRequestorId"

// livenessKey is the shared-map key tracking when a push for the kind last
// arrived, as epoch milliseconds.
func livenessKey(kind Kind) string { return "AnsharLastReceived-" + string(kind) }

// RequestorID returns the requestor identity shared by all replicas,
// claiming a fresh one when none has been negotiated yet.
func RequestorID(ctx context.Context, state cluster.SharedMap) (string, error) {
	var proposal = "ukur-" + uuid.NewString()
	var id, err = state.PutIfAbsent(ctx, requestorIDKey, proposal)
	if err != nil {
		return "", fmt.Errorf("negotiating requestor id: %w", err)
	}
	if id == proposal {
		log.WithField("requestorId", id).Info("claimed new requestor id")
	} else {
		log.WithField("requestorId", id).Info("reusing negotiated requestor id")
	}
	return id, nil
}
