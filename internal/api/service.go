// Package api is the dashboard's own HTTP surface: the grid UI reads cached
// snapshots and detection records from here instead of hammering the
// upstream service directly.
package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spignelon/roadvision-assignment/internal/cache"
	"github.com/spignelon/roadvision-assignment/internal/database"
	"github.com/spignelon/roadvision-assignment/internal/gate"
	"github.com/spignelon/roadvision-assignment/internal/models"
	"github.com/spignelon/roadvision-assignment/internal/store"
)

// Upstream is the slice of the VMS client the API proxies through.
type Upstream interface {
	AddStream(ctx context.Context, streamURL, id string) (string, error)
	DeleteStream(ctx context.Context, streamID string) error
	StreamStatus(ctx context.Context, streamID string) (models.StreamDescriptor, error)
	VideoFeed(ctx context.Context, streamID string) (io.ReadCloser, string, error)
	Config(ctx context.Context) (models.UpstreamConfig, error)
	UpdateConfig(ctx context.Context, patch map[string]any) (models.UpstreamConfig, error)
}

// History reads the Postgres detection archive. Nil when archiving is off.
type History interface {
	RecentDetections(ctx context.Context, streamID string, limit int) ([]database.ArchivedDetection, error)
}

// StatsSource returns the latest aggregate statistics snapshot.
type StatsSource interface {
	Latest() models.Stats
}

// Refresher requests an immediate roster re-fetch after a mutation.
type Refresher interface {
	Refresh()
}

type Handlers struct {
	roster     *store.RosterStore
	detections *store.DetectionStore
	cache      *cache.ImageCache
	gate       *gate.ViewGate
	upstream   Upstream
	stats      StatsSource
	refresher  Refresher
	history    History
}

func NewHandlers(roster *store.RosterStore, detections *store.DetectionStore, c *cache.ImageCache,
	g *gate.ViewGate, upstream Upstream, stats StatsSource, refresher Refresher, history History) *Handlers {
	return &Handlers{
		roster:     roster,
		detections: detections,
		cache:      c,
		gate:       g,
		upstream:   upstream,
		stats:      stats,
		refresher:  refresher,
		history:    history,
	}
}

// Router builds the dashboard route table.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	// Регистрация обработчиков
	r.HandleFunc("/api/streams", h.GetStreamsHandler).Methods("GET")
	r.HandleFunc("/api/streams", h.AddStreamHandler).Methods("POST")
	r.HandleFunc("/api/streams/{stream_id}", h.DeleteStreamHandler).Methods("DELETE")
	r.HandleFunc("/api/streams/{stream_id}/status", h.GetStreamStatusHandler).Methods("GET")
	r.HandleFunc("/api/streams/{stream_id}/snapshot", h.GetSnapshotHandler).Methods("GET")
	r.HandleFunc("/api/streams/{stream_id}/detections", h.GetDetectionsHandler).Methods("GET")
	r.HandleFunc("/api/streams/{stream_id}/history", h.GetHistoryHandler).Methods("GET")
	r.HandleFunc("/api/streams/{stream_id}/video_feed", h.VideoFeedHandler).Methods("GET")
	r.HandleFunc("/api/stats", h.GetStatsHandler).Methods("GET")
	r.HandleFunc("/api/config", h.GetConfigHandler).Methods("GET")
	r.HandleFunc("/api/config", h.UpdateConfigHandler).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encodeJSON(w, payload)
}
