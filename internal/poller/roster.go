package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spignelon/roadvision-assignment/internal/cache"
	"github.com/spignelon/roadvision-assignment/internal/gate"
	"github.com/spignelon/roadvision-assignment/internal/metrics"
	"github.com/spignelon/roadvision-assignment/internal/models"
	"github.com/spignelon/roadvision-assignment/internal/store"
)

// RosterFetcher is the slice of the upstream client the roster poller needs.
type RosterFetcher interface {
	Streams(ctx context.Context) ([]models.StreamDescriptor, error)
}

// RosterPoller refreshes the stream roster on a coarse fixed interval and
// evicts per-stream resources for ids that left the roster. A mutation
// through the dashboard API requests an immediate refresh via Refresh.
type RosterPoller struct {
	fetcher    RosterFetcher
	roster     *store.RosterStore
	cache      *cache.ImageCache
	detections *store.DetectionStore
	gate       *gate.ViewGate

	interval time.Duration
	kick     chan struct{}
}

func NewRosterPoller(fetcher RosterFetcher, roster *store.RosterStore, c *cache.ImageCache,
	d *store.DetectionStore, g *gate.ViewGate, interval time.Duration) *RosterPoller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &RosterPoller{
		fetcher:    fetcher,
		roster:     roster,
		cache:      c,
		detections: d,
		gate:       g,
		interval:   interval,
		kick:       make(chan struct{}, 1),
	}
}

// Refresh requests an immediate roster re-fetch. Non-blocking; a refresh
// already pending is enough.
func (p *RosterPoller) Refresh() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Start runs the refresh loop until ctx is cancelled.
func (p *RosterPoller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Roster poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		case <-p.kick:
			p.Tick(ctx)
		}
	}
}

// Tick re-fetches the roster and wholesale-replaces the stored mapping. Ids
// gone from the roster lose their image handle, detection record and focus.
func (p *RosterPoller) Tick(ctx context.Context) {
	streams, err := p.fetcher.Streams(ctx)
	if err != nil {
		log.Warn().Msgf("Roster: fetch error: %v", err)
		return
	}

	removed := p.roster.Replace(streams)
	for _, id := range removed {
		p.cache.Remove(id)
		p.detections.Remove(id)
		p.gate.UnfocusIf(id)
		log.Info().Msgf("Roster: stream %s removed, resources released", id)
	}

	metrics.RosterSize.Set(float64(p.roster.Len()))
}
