package anshar

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bratomyr/ukur/go/cluster"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// CallbackAPI accepts pushed SIRI deliveries addressed to this requestor.
// Every replica serves it; it is not leadership gated. The handler updates
// the kind's liveness key and queues the body, deferring parsing to the
// pipeline workers.
type CallbackAPI struct {
	requestorID string
	state       cluster.SharedMap
	pipelines   map[Kind]*Pipeline
	now         func() time.Time
}

func NewCallbackAPI(requestorID string, state cluster.SharedMap, pipelines ...*Pipeline) *CallbackAPI {
	var byKind = make(map[Kind]*Pipeline)
	for _, p := range pipelines {
		byKind[p.Kind()] = p
	}
	return &CallbackAPI{
		requestorID: requestorID,
		state:       state,
		pipelines:   byKind,
		now:         time.Now,
	}
}

// RegisterAPIs registers the push endpoint with the router.
func (a *CallbackAPI) RegisterAPIs(router *mux.Router) {
	router.
		Path("/siriMessages/{requestorId}/{kind}").
		Methods("POST").
		HandlerFunc(a.serveMessage)
}

func (a *CallbackAPI) serveMessage(w http.ResponseWriter, r *http.Request) {
	var vars = mux.Vars(r)
	var kind = Kind(vars["kind"])
	var pipeline, enabled = a.pipelines[kind]

	if vars["requestorId"] != a.requestorID || !enabled {
		rejectedCallbacks.Inc()
		log.WithFields(log.Fields{
			"requestorId": vars["requestorId"],
			"kind":        vars["kind"],
			"client":      r.RemoteAddr,
		}).Info("rejected push callback")
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, "FORBIDDEN\n\n")
		return
	}

	var body, err = io.ReadAll(r.Body)
	if err != nil {
		// The push still counts as a sign of life.
		malformedMessages.WithLabelValues(string(kind)).Inc()
		log.WithFields(log.Fields{"kind": kind, "err": err}).Warn("failed to read pushed delivery")
	}

	if err = a.state.Set(r.Context(), livenessKey(kind), strconv.FormatInt(a.now().UnixMilli(), 10)); err != nil {
		log.WithFields(log.Fields{"kind": kind, "err": err}).Warn("failed to update liveness key")
	}
	callbacksReceived.WithLabelValues(string(kind)).Inc()
	if len(body) != 0 {
		pipeline.Dispatch(body)
	}

	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK\n\n")
}
