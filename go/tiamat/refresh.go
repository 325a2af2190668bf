package tiamat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Refresher fetches the stop place mapping from Tiamat and applies it.
// One Refresh is one workflow invocation; failures leave the current
// snapshot in place.
type Refresher struct {
	url        string
	clientName string
	clientID   string
	client     *http.Client
	stops      *StopPlaces
}

func NewRefresher(url, clientName, clientID string, stops *StopPlaces) *Refresher {
	return &Refresher{
		url:        url,
		clientName: clientName,
		clientID:   clientID,
		client:     &http.Client{Timeout: 30 * time.Second},
		stops:      stops,
	}
}

// Refresh fetches and swaps in the current mapping.
func (r *Refresher) Refresh(ctx context.Context) error {
	var started = time.Now()

	req, err := http.NewRequestWithContext(ctx, "GET", r.url, nil)
	if err != nil {
		return fmt.Errorf("building Tiamat request: %w", err)
	}
	req.Header.Set("ET-Client-Name", r.clientName)
	req.Header.Set("ET-Client-ID", r.clientID)

	resp, err := r.client.Do(req)
	if err != nil {
		refreshFailures.Inc()
		return fmt.Errorf("fetching stop places from %s: %w", r.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		refreshFailures.Inc()
		return fmt.Errorf("fetching stop places from %s: status %d", r.url, resp.StatusCode)
	}

	var stopPlaceQuays map[string][]string
	if err = json.NewDecoder(resp.Body).Decode(&stopPlaceQuays); err != nil {
		refreshFailures.Inc()
		return fmt.Errorf("decoding stop places: %w", err)
	}

	r.stops.Update(stopPlaceQuays)
	log.WithField("took", time.Since(started).String()).Debug("stop place refresh complete")
	return nil
}
