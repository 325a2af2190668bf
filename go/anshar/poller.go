package anshar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// maxPageSize bounds how many elements one polling request returns.
const maxPageSize = 500

// maxChainLength bounds a single fire's MoreData chain.
const maxChainLength = 100

// PollURL builds the polling URL for a negotiated requestor id.
func PollURL(base, requestorID string) string {
	var sep = "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "requestorId=" + requestorID + "&maxSize=" + strconv.Itoa(maxPageSize)
}

// Poller drives one kind's polling mode. Each fire fetches pages, chaining
// immediately while the upstream reports more data for this requestor.
type Poller struct {
	client   *http.Client
	pipeline *Pipeline
	url      string
	clientID string
}

func NewPoller(pipeline *Pipeline, url string) *Poller {
	return &Poller{
		client:   &http.Client{Timeout: 30 * time.Second},
		pipeline: pipeline,
		url:      url,
		clientID: ClientID(),
	}
}

// Poll fetches until the upstream reports no more data. Any failure ends
// the chain; the next scheduled fire retries from scratch.
func (p *Poller) Poll(ctx context.Context) error {
	for hops := 1; ; hops++ {
		var more, err = p.fetchPage(ctx)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if hops == maxChainLength {
			return fmt.Errorf("upstream still reports more data after %d pages", hops)
		}
	}
}

func (p *Poller) fetchPage(ctx context.Context) (moreData bool, err error) {
	var kind = string(p.pipeline.Kind())

	req, err := http.NewRequestWithContext(ctx, "GET", p.url, nil)
	if err != nil {
		return false, fmt.Errorf("building %s poll request: %w", kind, err)
	}
	req.Header.Set("ET-Client-Name", ClientName)
	req.Header.Set("ET-Client-ID", p.clientID)

	resp, err := p.client.Do(req)
	if err != nil {
		pollFailures.WithLabelValues(kind).Inc()
		return false, fmt.Errorf("polling %s: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		pollFailures.WithLabelValues(kind).Inc()
		return false, fmt.Errorf("polling %s: status %d", kind, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		pollFailures.WithLabelValues(kind).Inc()
		return false, fmt.Errorf("reading %s poll response: %w", kind, err)
	}

	if moreData, err = p.pipeline.Ingest(body); err != nil {
		return false, err
	}
	log.WithFields(log.Fields{"kind": kind, "size": len(body), "moreData": moreData}).
		Debug("polled upstream page")
	return moreData, nil
}
