// Package dashboard is the composition root: it wires the stores, cache,
// gate and pollers together and owns their lifecycle.
package dashboard

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/spignelon/roadvision-assignment/internal/api"
	"github.com/spignelon/roadvision-assignment/internal/cache"
	"github.com/spignelon/roadvision-assignment/internal/config"
	"github.com/spignelon/roadvision-assignment/internal/gate"
	"github.com/spignelon/roadvision-assignment/internal/poller"
	"github.com/spignelon/roadvision-assignment/internal/store"
	"github.com/spignelon/roadvision-assignment/internal/vms"
)

// Options carries the optional side-channels: nil disables the feature.
type Options struct {
	FrameArchiver    poller.SnapshotArchiver
	EventPublisher   poller.EventPublisher
	DetectionArchive poller.DetectionArchive
	ArchivePruner    poller.Pruner
	History          api.History
}

type Dashboard struct {
	Roster     *store.RosterStore
	Detections *store.DetectionStore
	Cache      *cache.ImageCache
	Gate       *gate.ViewGate

	client *vms.Client

	rosterPoller    *poller.RosterPoller
	snapshotPoller  *poller.SnapshotPoller
	detectionPoller *poller.DetectionPoller
	statsPoller     *poller.StatsPoller
	prunePoller     *poller.PrunePoller

	history api.History
	wg      sync.WaitGroup
}

// New builds the full polling engine from config.
func New(cfg *config.Config, client *vms.Client, opts Options) *Dashboard {
	d := &Dashboard{
		Roster:     store.NewRoster(),
		Detections: store.NewDetections(),
		Cache:      cache.New(),
		client:     client,
		history:    opts.History,
	}

	mode := gate.ModeExcludeFocused
	if cfg.API.SuspendAll {
		mode = gate.ModeSuspendAll
	}
	d.Gate = gate.New(mode)

	d.rosterPoller = poller.NewRosterPoller(client, d.Roster, d.Cache, d.Detections, d.Gate, cfg.Roster.Interval)
	d.statsPoller = poller.NewStatsPoller(client, cfg.Stats.Interval)

	d.snapshotPoller = poller.NewSnapshotPoller(client, d.Cache, d.Gate, d.Roster,
		cfg.Snapshot.Interval, cfg.Snapshot.Concurrency)
	if opts.FrameArchiver != nil {
		d.snapshotPoller.WithArchiver(opts.FrameArchiver, cfg.Snapshot.ArchiveInterval)
	}

	d.detectionPoller = poller.NewDetectionPoller(client, d.Detections, d.Roster, cfg.Detection.Interval)
	if opts.EventPublisher != nil {
		d.detectionPoller.WithPublisher(opts.EventPublisher)
	}
	if opts.DetectionArchive != nil {
		d.detectionPoller.WithArchive(opts.DetectionArchive)
	}

	if opts.ArchivePruner != nil && cfg.Postgres.Retention > 0 {
		d.prunePoller = poller.NewPrunePoller(opts.ArchivePruner, cfg.Postgres.Retention, cfg.Postgres.PruneInterval)
	}

	return d
}

// Start launches the refresh loops. They run until ctx is cancelled.
func (d *Dashboard) Start(ctx context.Context) {
	// Первичное наполнение ростера до старта фоновых циклов
	d.rosterPoller.Tick(ctx)
	d.statsPoller.Tick(ctx)

	loops := []func(context.Context){
		d.rosterPoller.Start,
		d.statsPoller.Start,
		d.snapshotPoller.Start,
		d.detectionPoller.Start,
	}
	if d.prunePoller != nil {
		loops = append(loops, d.prunePoller.Start)
	}

	for _, loop := range loops {
		loop := loop
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			loop(ctx)
		}()
	}

	log.Info().Msgf("Dashboard engine started: %d streams in roster", d.Roster.Len())
}

// Shutdown waits for the loops to stop and releases every cached handle.
// Call after cancelling the Start context.
func (d *Dashboard) Shutdown() {
	d.wg.Wait()
	d.snapshotPoller.Drain()
	d.Cache.Clear()
	log.Info().Msg("Dashboard engine stopped, cache cleared")
}

// Handlers builds the HTTP API over the engine's stores.
func (d *Dashboard) Handlers() *api.Handlers {
	return api.NewHandlers(d.Roster, d.Detections, d.Cache, d.Gate,
		d.client, d.statsPoller, d.rosterPoller, d.history)
}
