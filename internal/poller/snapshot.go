// Package poller contains the timer-driven refresh loops: snapshots,
// detections, roster and stats. Each loop follows the same ticker+select
// shape and swallows per-stream errors so one unreachable stream never
// stalls the others.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/spignelon/roadvision-assignment/internal/cache"
	"github.com/spignelon/roadvision-assignment/internal/gate"
	"github.com/spignelon/roadvision-assignment/internal/metrics"
	"github.com/spignelon/roadvision-assignment/internal/scheduler"
	"github.com/spignelon/roadvision-assignment/internal/store"
)

// SnapshotFetcher is the slice of the upstream client the snapshot poller
// needs.
type SnapshotFetcher interface {
	Snapshot(ctx context.Context, streamID string) ([]byte, error)
}

// SnapshotArchiver persists preview frames to long-term storage.
type SnapshotArchiver interface {
	ArchiveSnapshot(ctx context.Context, streamID string, data []byte) error
}

// SnapshotPoller keeps the image cache populated with a recent preview frame
// per visible, non-focused stream. At most Concurrency fetches run at once,
// system-wide: a tick whose previous sweep is still draining is skipped.
type SnapshotPoller struct {
	fetcher SnapshotFetcher
	cache   *cache.ImageCache
	gate    *gate.ViewGate
	roster  *store.RosterStore

	interval    time.Duration
	concurrency int

	guard   scheduler.Guard
	sweepWG sync.WaitGroup
	seq     atomic.Uint64

	// Архивация кадров: не чаще одного кадра на поток за archiveEvery
	archiver     SnapshotArchiver
	archiveEvery time.Duration
	archiveMu    sync.Mutex
	lastArchived map[string]time.Time
}

// NewSnapshotPoller wires a poller over the given stores. archiver may be nil.
func NewSnapshotPoller(fetcher SnapshotFetcher, c *cache.ImageCache, g *gate.ViewGate,
	roster *store.RosterStore, interval time.Duration, concurrency int) *SnapshotPoller {
	if interval <= 0 {
		interval = time.Second
	}
	if concurrency < 1 {
		concurrency = 2
	}
	return &SnapshotPoller{
		fetcher:      fetcher,
		cache:        c,
		gate:         g,
		roster:       roster,
		interval:     interval,
		concurrency:  concurrency,
		lastArchived: make(map[string]time.Time),
	}
}

// WithArchiver enables periodic frame archival.
func (p *SnapshotPoller) WithArchiver(a SnapshotArchiver, every time.Duration) *SnapshotPoller {
	p.archiver = a
	if every <= 0 {
		every = time.Minute
	}
	p.archiveEvery = every
	return p
}

// Start runs the tick loop until ctx is cancelled. Cancellation stops further
// ticks; an in-flight sweep drains naturally without admitting new work.
func (p *SnapshotPoller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Snapshot poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one scheduling tick. If the previous sweep has not drained yet
// the tick is skipped entirely, keeping total concurrency at K system-wide.
func (p *SnapshotPoller) Tick(ctx context.Context) {
	if !p.guard.TryAcquire() {
		metrics.SweepsSkipped.Inc()
		log.Debug().Msg("Snapshot tick skipped: previous sweep still draining")
		return
	}

	// Кандидаты вычисляются в момент тика: фокус во время sweep блокирует
	// только будущие допуски, уже запущенные fetch'и довыполняются
	candidates := lo.Filter(p.roster.IDs(), func(id string, _ int) bool {
		return p.gate.Allows(id)
	})

	p.sweepWG.Add(1)
	go func() {
		defer p.sweepWG.Done()
		defer p.guard.Release()
		failed := scheduler.Sweep(ctx, p.concurrency, candidates, p.fetchOne)
		if failed > 0 {
			log.Debug().Msgf("Snapshot sweep: %d of %d fetches failed", failed, len(candidates))
		}
		metrics.CachedHandles.Set(float64(p.cache.Len()))
	}()
}

// fetchOne fetches a single preview frame. A failure leaves the previous
// handle in place until the next successful tick.
func (p *SnapshotPoller) fetchOne(ctx context.Context, streamID string) error {
	seq := p.seq.Add(1)

	metrics.SnapshotInflight.Inc()
	defer metrics.SnapshotInflight.Dec()

	data, err := p.fetcher.Snapshot(ctx, streamID)
	if err != nil {
		metrics.SnapshotFetches.WithLabelValues("error").Inc()
		log.Debug().Msgf("Snapshot %s: fetch error: %v", streamID, err)
		return err
	}

	if h := p.cache.Put(streamID, seq, data); h == nil {
		metrics.SnapshotFetches.WithLabelValues("stale").Inc()
		return nil
	}
	metrics.SnapshotFetches.WithLabelValues("ok").Inc()

	p.maybeArchive(ctx, streamID, data)
	return nil
}

func (p *SnapshotPoller) maybeArchive(ctx context.Context, streamID string, data []byte) {
	if p.archiver == nil {
		return
	}

	p.archiveMu.Lock()
	last := p.lastArchived[streamID]
	due := time.Since(last) >= p.archiveEvery
	if due {
		p.lastArchived[streamID] = time.Now()
	}
	p.archiveMu.Unlock()
	if !due {
		return
	}

	if err := p.archiver.ArchiveSnapshot(ctx, streamID, data); err != nil {
		log.Warn().Msgf("Snapshot %s: archive error: %v", streamID, err)
	}
}

// Draining reports whether a sweep is currently in flight.
func (p *SnapshotPoller) Draining() bool {
	if p.guard.TryAcquire() {
		p.guard.Release()
		return false
	}
	return true
}

// Drain blocks until any in-flight sweep has settled. Called at teardown,
// after ticking has stopped, so the cache can be cleared safely.
func (p *SnapshotPoller) Drain() {
	p.sweepWG.Wait()
}
