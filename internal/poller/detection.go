package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/spignelon/roadvision-assignment/internal/metrics"
	"github.com/spignelon/roadvision-assignment/internal/models"
	"github.com/spignelon/roadvision-assignment/internal/store"
)

// DetectionFetcher is the slice of the upstream client the detection poller
// needs.
type DetectionFetcher interface {
	Detections(ctx context.Context, streamID string) (models.DetectionRecord, error)
}

// EventPublisher emits detection events to the alerting pipeline.
type EventPublisher interface {
	SendDetectionEvent(event models.DetectionEvent) error
}

// DetectionArchive persists detection records.
type DetectionArchive interface {
	InsertDetections(ctx context.Context, streamID string, rec models.DetectionRecord) error
}

// DetectionPoller keeps the latest DetectionRecord per stream, on its own
// cadence, independent of image fetching. Each tick fans out one request per
// roster stream with no extra concurrency cap: это независимые запросы, а не
// resource-bound операция.
type DetectionPoller struct {
	fetcher DetectionFetcher
	store   *store.DetectionStore
	roster  *store.RosterStore

	interval time.Duration

	publisher EventPublisher
	archive   DetectionArchive
}

// NewDetectionPoller wires a poller over the given stores. publisher and
// archive may be nil.
func NewDetectionPoller(fetcher DetectionFetcher, s *store.DetectionStore,
	roster *store.RosterStore, interval time.Duration) *DetectionPoller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &DetectionPoller{
		fetcher:  fetcher,
		store:    s,
		roster:   roster,
		interval: interval,
	}
}

// WithPublisher enables Kafka detection events.
func (p *DetectionPoller) WithPublisher(pub EventPublisher) *DetectionPoller {
	p.publisher = pub
	return p
}

// WithArchive enables the Postgres detection archive.
func (p *DetectionPoller) WithArchive(a DetectionArchive) *DetectionPoller {
	p.archive = a
	return p
}

// Start runs the tick loop until ctx is cancelled.
func (p *DetectionPoller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Detection poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick fetches the detection record for every roster stream concurrently and
// replaces stored records wholesale. A failed fetch keeps the previous
// record; a stream that has never succeeded gets an empty record stamped with
// the current time, so consumers never observe an absent record.
func (p *DetectionPoller) Tick(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)

	for _, id := range p.roster.IDs() {
		id := id
		g.Go(func() error {
			rec, err := p.fetcher.Detections(ctx, id)
			if err != nil {
				metrics.DetectionFetches.WithLabelValues("error").Inc()
				log.Debug().Msgf("Detections %s: fetch error: %v", id, err)
				p.store.EnsureRecord(id)
				return nil
			}

			metrics.DetectionFetches.WithLabelValues("ok").Inc()
			p.store.Replace(id, rec)
			p.publishAndArchive(ctx, id, rec)
			return nil
		})
	}

	_ = g.Wait()
}

func (p *DetectionPoller) publishAndArchive(ctx context.Context, streamID string, rec models.DetectionRecord) {
	if p.publisher != nil {
		if persons := rec.Persons(); persons > 0 {
			err := p.publisher.SendDetectionEvent(models.DetectionEvent{
				StreamID:      streamID,
				Persons:       persons,
				MotionRegions: len(rec.Motion),
				TimeStamp:     rec.Time().UTC(),
			})
			if err != nil {
				log.Warn().Msgf("Detections %s: event publish error: %v", streamID, err)
			}
		}
	}

	if p.archive != nil && (len(rec.Detections) > 0 || len(rec.Motion) > 0) {
		if err := p.archive.InsertDetections(ctx, streamID, rec); err != nil {
			log.Warn().Msgf("Detections %s: archive error: %v", streamID, err)
		}
	}
}
