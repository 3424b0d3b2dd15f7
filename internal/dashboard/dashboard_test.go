package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spignelon/roadvision-assignment/internal/config"
	"github.com/spignelon/roadvision-assignment/internal/vms"
)

// stubVMS имитирует внешний сервис детекции: ростер из двух потоков,
// snapshot и detections на каждый.
func stubVMS(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var snapshotHits atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("/api/streams", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"s1","name":"cam1","running":true,"fps":10,"detection_enabled":true,"motion_enabled":true,"is_local_file":false},
			{"id":"s2","name":"cam2","running":true,"fps":10,"detection_enabled":true,"motion_enabled":true,"is_local_file":false}
		]`))
	})
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total_streams":2,"active_streams":2,"streams":[]}`))
	})
	for _, id := range []string{"s1", "s2"} {
		mux.HandleFunc(fmt.Sprintf("/api/streams/%s/snapshot", id), func(w http.ResponseWriter, r *http.Request) {
			snapshotHits.Add(1)
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write([]byte{0xff, 0xd8, 0xff})
		})
		mux.HandleFunc(fmt.Sprintf("/api/streams/%s/detections", id), func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"timestamp":1656023854.1,"detections":[{"bbox":[1,2,3,4],"confidence":0.9,"label":"person"}],"motion":[]}`))
		})
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &snapshotHits
}

func testConfig(endpoint string) *config.Config {
	cfg, _ := config.LoadConfig("")
	cfg.Upstream.Endpoint = endpoint
	cfg.Snapshot.Interval = 20 * time.Millisecond
	cfg.Detection.Interval = 20 * time.Millisecond
	cfg.Roster.Interval = 50 * time.Millisecond
	cfg.Stats.Interval = 50 * time.Millisecond
	return cfg
}

func TestEngineEndToEnd(t *testing.T) {
	srv, snapshotHits := stubVMS(t)
	cfg := testConfig(srv.URL)

	d := New(cfg, vms.NewClient(srv.URL, time.Second), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	// Первичный roster-тик синхронный
	require.Equal(t, 2, d.Roster.Len())

	// Ждём пока оба поллера наполнят кэш и стор
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.Cache.Get("s1") != nil && d.Cache.Get("s2") != nil {
			if _, ok := d.Detections.Get("s1"); ok {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
	}

	require.NotNil(t, d.Cache.Get("s1"))
	require.NotNil(t, d.Cache.Get("s2"))
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, d.Cache.Get("s1").Bytes())

	rec, ok := d.Detections.Get("s1")
	require.True(t, ok)
	assert.Len(t, rec.Detections, 1)

	assert.Equal(t, 2, d.statsPoller.Latest().TotalStreams)
	assert.Positive(t, snapshotHits.Load())

	cancel()
	d.Shutdown()

	// После останова все handles освобождены
	assert.Equal(t, 0, d.Cache.Len())
}

type noopPruner struct{}

func (noopPruner) PruneOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

func TestPrunerWiredOnlyWithRetention(t *testing.T) {
	srv, _ := stubVMS(t)
	cfg := testConfig(srv.URL)

	d := New(cfg, vms.NewClient(srv.URL, time.Second), Options{ArchivePruner: noopPruner{}})
	assert.NotNil(t, d.prunePoller)

	cfg.Postgres.Retention = 0
	d = New(cfg, vms.NewClient(srv.URL, time.Second), Options{ArchivePruner: noopPruner{}})
	assert.Nil(t, d.prunePoller, "retention 0 must disable pruning")

	d = New(cfg, vms.NewClient(srv.URL, time.Second), Options{})
	assert.Nil(t, d.prunePoller)
}

func TestFocusedStreamNotPolledByEngine(t *testing.T) {
	srv, _ := stubVMS(t)
	cfg := testConfig(srv.URL)

	d := New(cfg, vms.NewClient(srv.URL, time.Second), Options{})
	d.Gate.Focus("s1")

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	time.Sleep(200 * time.Millisecond)
	cancel()
	d.Shutdown()

	assert.Nil(t, d.Cache.Get("s1"), "focused stream must not be snapshot-polled")
}
