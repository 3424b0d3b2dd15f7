// Package metrics exposes Prometheus counters for the polling engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SnapshotFetches counts snapshot fetch attempts by result (ok, error, stale).
	SnapshotFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_snapshot_fetch_total",
		Help: "Snapshot fetch attempts by result.",
	}, []string{"result"})

	// DetectionFetches counts detection fetch attempts by result.
	DetectionFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_detection_fetch_total",
		Help: "Detection fetch attempts by result.",
	}, []string{"result"})

	// SweepsSkipped counts snapshot ticks skipped because the previous sweep
	// was still draining.
	SweepsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_sweeps_skipped_total",
		Help: "Snapshot ticks skipped while a previous sweep was draining.",
	})

	// SnapshotInflight tracks currently running snapshot fetches.
	SnapshotInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_snapshot_inflight",
		Help: "Snapshot fetches currently in flight.",
	})

	// CachedHandles tracks live image handles in the resource cache.
	CachedHandles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_cached_handles",
		Help: "Live preview image handles.",
	})

	// RosterSize tracks the current roster size.
	RosterSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashboard_roster_size",
		Help: "Streams in the current roster.",
	})
)
