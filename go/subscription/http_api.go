package subscription

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// RegisterAPIs registers the subscription CRUD routes with the router.
func RegisterAPIs(router *mux.Router, manager *Manager) {
	router.
		Path("/subscription").
		Methods("GET").
		HandlerFunc(func(w http.ResponseWriter, r *http.Request) { serveList(manager, w, r) })
	router.
		Path("/subscription").
		Methods("POST", "PUT").
		HandlerFunc(func(w http.ResponseWriter, r *http.Request) { serveAdd(manager, w, r) })
	router.
		Path("/subscription/{id}").
		Methods("DELETE").
		HandlerFunc(func(w http.ResponseWriter, r *http.Request) { serveRemove(manager, w, r) })
}

func serveList(m *Manager, w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(m.List()); err != nil {
		log.WithFields(log.Fields{"err": err, "client": r.RemoteAddr}).
			Warn("writing subscription list")
	}
}

func serveAdd(m *Manager, w http.ResponseWriter, r *http.Request) {
	var sub Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var added, err = m.Add(&sub)
	if err != nil {
		log.WithFields(log.Fields{"err": err, "client": r.RemoteAddr}).
			Warn("rejected subscription")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(added); err != nil {
		log.WithFields(log.Fields{"err": err, "client": r.RemoteAddr}).
			Warn("writing added subscription")
	}
}

func serveRemove(m *Manager, w http.ResponseWriter, r *http.Request) {
	var id = mux.Vars(r)["id"]
	if err := m.Remove(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}
