package anshar

import (
	"context"
	"fmt"

	"github.com/bratomyr/ukur/go/siri"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/core/task"
)

const (
	deliveryQueueDepth = 64
	fragmentQueueDepth = 1024
	fragmentWorkers    = 2
)

// EstimatedJourneyHandler processes one decoded journey, reporting whether
// it was processed. Ignored journeys are not archived.
type EstimatedJourneyHandler interface {
	Process(*siri.EstimatedVehicleJourney) bool
}

// SituationHandler processes one decoded situation.
type SituationHandler interface {
	Process(*siri.PtSituationElement)
}

// Archiver persists processed messages when file storage is enabled.
type Archiver interface {
	Store(kind, ref string, body []byte) error
}

// Pipeline carries one kind's deliveries from ingestion to its matching
// engine. Raw documents are parsed and filtered down to the configured
// operator's fragments, which consumer workers decode and process. Both
// queues shed load rather than block their producers.
type Pipeline struct {
	kind       Kind
	operator   string
	deliveries chan []byte
	fragments  chan []byte
	consume    func([]byte)
}

// NewETPipeline routes estimated timetable deliveries to handler.
func NewETPipeline(operator string, handler EstimatedJourneyHandler, arch Archiver) *Pipeline {
	var p = newPipeline(KindET, operator)
	p.consume = func(fragment []byte) {
		var journey, err = siri.ParseEstimatedVehicleJourney(fragment)
		if err != nil {
			p.dropMalformed(len(fragment), err)
			return
		}
		if handler.Process(journey) && arch != nil {
			if err = arch.Store(string(KindET), journey.DatedVehicleJourneyRef, fragment); err != nil {
				log.WithField("err", err).Error("failed to archive journey")
			}
		}
	}
	return p
}

// NewSXPipeline routes situation exchange deliveries to handler.
func NewSXPipeline(operator string, handler SituationHandler, arch Archiver) *Pipeline {
	var p = newPipeline(KindSX, operator)
	p.consume = func(fragment []byte) {
		var situation, err = siri.ParsePtSituationElement(fragment)
		if err != nil {
			p.dropMalformed(len(fragment), err)
			return
		}
		handler.Process(situation)
		if arch != nil {
			if err = arch.Store(string(KindSX), situation.SituationNumber, fragment); err != nil {
				log.WithField("err", err).Error("failed to archive situation")
			}
		}
	}
	return p
}

func newPipeline(kind Kind, operator string) *Pipeline {
	return &Pipeline{
		kind:       kind,
		operator:   operator,
		deliveries: make(chan []byte, deliveryQueueDepth),
		fragments:  make(chan []byte, fragmentQueueDepth),
	}
}

func (p *Pipeline) Kind() Kind { return p.kind }

// Ingest parses one SIRI document and queues its operator-attributed
// fragments for the consumer workers. It reports whether the upstream holds
// further pages for this requestor.
func (p *Pipeline) Ingest(body []byte) (moreData bool, err error) {
	var doc *siri.Document
	if doc, err = siri.ParseDocument(body); err != nil {
		p.dropMalformed(len(body), err)
		return false, err
	}

	var fragments [][]byte
	switch p.kind {
	case KindET:
		fragments, err = doc.EstimatedVehicleJourneys(p.operator)
	case KindSX:
		fragments, err = doc.PtSituationElements(p.operator)
	}
	if err != nil {
		p.dropMalformed(len(body), err)
		return false, err
	}

	for _, fragment := range fragments {
		select {
		case p.fragments <- fragment:
			fragmentsEnqueued.WithLabelValues(string(p.kind)).Inc()
		default:
			queueDrops.WithLabelValues(string(p.kind)).Inc()
			log.WithField("kind", p.kind).Warn("fragment queue full, dropping fragment")
		}
	}
	queueDepth.WithLabelValues(string(p.kind)).Set(float64(len(p.fragments)))
	return doc.MoreData(), nil
}

// Dispatch queues a raw delivery for ingestion off the caller's goroutine.
// It never blocks; a full queue drops the delivery.
func (p *Pipeline) Dispatch(body []byte) {
	select {
	case p.deliveries <- body:
	default:
		queueDrops.WithLabelValues(string(p.kind)).Inc()
		log.WithField("kind", p.kind).Warn("delivery queue full, dropping delivery")
	}
}

// QueueTasks starts the delivery dispatcher and fragment consumers.
func (p *Pipeline) QueueTasks(tasks *task.Group) {
	tasks.Queue(fmt.Sprintf("anshar.%s.dispatcher", p.kind), func() error {
		p.serveDeliveries(tasks.Context())
		return nil
	})
	for i := 0; i != fragmentWorkers; i++ {
		tasks.Queue(fmt.Sprintf("anshar.%s.consumer.%d", p.kind, i), func() error {
			p.serveFragments(tasks.Context())
			return nil
		})
	}
}

func (p *Pipeline) serveDeliveries(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case body := <-p.deliveries:
			// Ingest counts and logs its own failures.
			_, _ = p.Ingest(body)
		}
	}
}

func (p *Pipeline) serveFragments(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fragment := <-p.fragments:
			p.consume(fragment)
			queueDepth.WithLabelValues(string(p.kind)).Set(float64(len(p.fragments)))
		}
	}
}

func (p *Pipeline) dropMalformed(size int, err error) {
	malformedMessages.WithLabelValues(string(p.kind)).Inc()
	log.WithFields(log.Fields{"kind": p.kind, "size": size, "err": err}).
		Warn("dropping malformed message")
}
