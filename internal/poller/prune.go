package poller

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Pruner drops archived detection records older than the retention window.
type Pruner interface {
	PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// PrunePoller enforces the archive retention window on a coarse interval so
// the detection archive does not grow without bound.
type PrunePoller struct {
	pruner    Pruner
	retention time.Duration
	interval  time.Duration
}

func NewPrunePoller(pruner Pruner, retention, interval time.Duration) *PrunePoller {
	if interval <= 0 {
		interval = time.Hour
	}
	return &PrunePoller{
		pruner:    pruner,
		retention: retention,
		interval:  interval,
	}
}

// Start runs one prune immediately, then on every interval until ctx is
// cancelled. The immediate pass trims whatever accumulated while the
// dashboard was down.
func (p *PrunePoller) Start(ctx context.Context) {
	p.Tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Archive pruner stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick prunes records older than the retention window.
func (p *PrunePoller) Tick(ctx context.Context) {
	pruned, err := p.pruner.PruneOlderThan(ctx, p.retention)
	if err != nil {
		log.Warn().Msgf("Archive: prune error: %v", err)
		return
	}
	if pruned > 0 {
		log.Info().Msgf("Archive: pruned %d records older than %s", pruned, p.retention)
	}
}
