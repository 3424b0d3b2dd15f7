package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spignelon/roadvision-assignment/internal/models"
)

// StatsFetcher is the slice of the upstream client the stats poller needs.
type StatsFetcher interface {
	Stats(ctx context.Context) (models.Stats, error)
}

// StatsPoller refreshes aggregate system statistics on a coarse interval.
// Consumers read the last successful snapshot; a failed fetch keeps it.
type StatsPoller struct {
	fetcher  StatsFetcher
	interval time.Duration
	latest   atomic.Value // models.Stats
}

func NewStatsPoller(fetcher StatsFetcher, interval time.Duration) *StatsPoller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	p := &StatsPoller{fetcher: fetcher, interval: interval}
	p.latest.Store(models.Stats{Streams: []models.StreamDescriptor{}})
	return p
}

// Latest returns the last successfully fetched stats snapshot.
func (p *StatsPoller) Latest() models.Stats {
	return p.latest.Load().(models.Stats)
}

// Start runs the refresh loop until ctx is cancelled.
func (p *StatsPoller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stats poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick fetches a fresh stats snapshot.
func (p *StatsPoller) Tick(ctx context.Context) {
	stats, err := p.fetcher.Stats(ctx)
	if err != nil {
		log.Debug().Msgf("Stats: fetch error: %v", err)
		return
	}
	p.latest.Store(stats)
}
