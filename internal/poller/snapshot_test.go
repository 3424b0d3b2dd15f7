package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spignelon/roadvision-assignment/internal/cache"
	"github.com/spignelon/roadvision-assignment/internal/gate"
	"github.com/spignelon/roadvision-assignment/internal/models"
	"github.com/spignelon/roadvision-assignment/internal/store"
)

type fakeSnapshots struct {
	mu      sync.Mutex
	fetched []string
	fn      func(streamID string) ([]byte, error)
}

func (f *fakeSnapshots) Snapshot(ctx context.Context, streamID string) ([]byte, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, streamID)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(streamID)
	}
	return []byte("jpeg:" + streamID), nil
}

func (f *fakeSnapshots) fetchedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}

func rosterOf(ids ...string) *store.RosterStore {
	r := store.NewRoster()
	descriptors := make([]models.StreamDescriptor, 0, len(ids))
	for _, id := range ids {
		descriptors = append(descriptors, models.StreamDescriptor{ID: id, Running: true})
	}
	r.Replace(descriptors)
	return r
}

func waitDrained(t *testing.T, p *SnapshotPoller) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.Draining() {
		if time.Now().After(deadline) {
			t.Fatal("sweep did not drain in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestExcludedStreamNeverFetched(t *testing.T) {
	fetcher := &fakeSnapshots{}
	g := gate.New(gate.ModeExcludeFocused)
	g.Focus("s2")

	p := NewSnapshotPoller(fetcher, cache.New(), g, rosterOf("s1", "s2", "s3"), time.Second, 2)
	for i := 0; i < 3; i++ {
		p.Tick(context.Background())
		waitDrained(t, p)
	}

	for _, id := range fetcher.fetchedIDs() {
		assert.NotEqual(t, "s2", id, "focused stream was admitted to a sweep")
	}
	assert.NotEmpty(t, fetcher.fetchedIDs())
}

func TestUnfocusReadmitsStream(t *testing.T) {
	fetcher := &fakeSnapshots{}
	g := gate.New(gate.ModeExcludeFocused)
	g.Focus("s1")

	p := NewSnapshotPoller(fetcher, cache.New(), g, rosterOf("s1"), time.Second, 2)
	p.Tick(context.Background())
	waitDrained(t, p)
	assert.Empty(t, fetcher.fetchedIDs())

	g.Unfocus()
	p.Tick(context.Background())
	waitDrained(t, p)
	assert.Equal(t, []string{"s1"}, fetcher.fetchedIDs())
}

func TestFailedFetchRetainsStaleHandle(t *testing.T) {
	var fail atomic.Bool
	fetcher := &fakeSnapshots{fn: func(streamID string) ([]byte, error) {
		if fail.Load() {
			return nil, errors.New("connection refused")
		}
		return []byte("fresh"), nil
	}}

	c := cache.New()
	p := NewSnapshotPoller(fetcher, c, gate.New(gate.ModeExcludeFocused), rosterOf("s1"), time.Second, 2)

	p.Tick(context.Background())
	waitDrained(t, p)
	require.Equal(t, []byte("fresh"), c.Get("s1").Bytes())

	fail.Store(true)
	p.Tick(context.Background())
	waitDrained(t, p)

	// Неудачный fetch оставляет прежний кадр на месте
	require.NotNil(t, c.Get("s1"))
	assert.Equal(t, []byte("fresh"), c.Get("s1").Bytes())
}

func TestTickSkippedWhileDraining(t *testing.T) {
	block := make(chan struct{})
	fetcher := &fakeSnapshots{fn: func(string) ([]byte, error) {
		<-block
		return []byte("img"), nil
	}}

	p := NewSnapshotPoller(fetcher, cache.New(), gate.New(gate.ModeExcludeFocused), rosterOf("s1", "s2"), time.Second, 2)

	p.Tick(context.Background())
	time.Sleep(10 * time.Millisecond)
	require.True(t, p.Draining())

	p.Tick(context.Background())
	p.Tick(context.Background())
	time.Sleep(10 * time.Millisecond)

	close(block)
	waitDrained(t, p)

	// Перекрывающиеся sweep'ы запрещены: повторные тики не добавили работы
	assert.Len(t, fetcher.fetchedIDs(), 2)
}

func TestFocusMidSweepCompletesInflightFetch(t *testing.T) {
	block := make(chan struct{})
	fetcher := &fakeSnapshots{fn: func(streamID string) ([]byte, error) {
		if streamID == "s1" {
			<-block
		}
		return []byte("img:" + streamID), nil
	}}

	c := cache.New()
	g := gate.New(gate.ModeExcludeFocused)
	p := NewSnapshotPoller(fetcher, c, g, rosterOf("s1"), time.Second, 1)

	p.Tick(context.Background())
	time.Sleep(10 * time.Millisecond)

	// Фокус после диспатча: уже запущенный fetch должен довыполниться
	// и всё ещё обновить кэш
	g.Focus("s1")
	close(block)
	waitDrained(t, p)

	require.NotNil(t, c.Get("s1"))
	assert.Equal(t, []byte("img:s1"), c.Get("s1").Bytes())

	// А вот следующий тик поток уже не получает
	p.Tick(context.Background())
	waitDrained(t, p)
	assert.Len(t, fetcher.fetchedIDs(), 1)
}

func TestSweepConcurrencyBounded(t *testing.T) {
	var inflight, peak atomic.Int64
	fetcher := &fakeSnapshots{fn: func(string) ([]byte, error) {
		cur := inflight.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inflight.Add(-1)
		return []byte("img"), nil
	}}

	ids := make([]string, 8)
	for i := range ids {
		ids[i] = fmt.Sprintf("s%d", i)
	}
	p := NewSnapshotPoller(fetcher, cache.New(), gate.New(gate.ModeExcludeFocused), rosterOf(ids...), time.Second, 2)

	p.Tick(context.Background())
	waitDrained(t, p)

	assert.Len(t, fetcher.fetchedIDs(), 8)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

type fakeFrameArchiver struct {
	mu    sync.Mutex
	saved map[string]int
}

func (a *fakeFrameArchiver) ArchiveSnapshot(ctx context.Context, streamID string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.saved == nil {
		a.saved = make(map[string]int)
	}
	a.saved[streamID]++
	return nil
}

func TestArchiverThrottledPerStream(t *testing.T) {
	fetcher := &fakeSnapshots{}
	archiver := &fakeFrameArchiver{}

	p := NewSnapshotPoller(fetcher, cache.New(), gate.New(gate.ModeExcludeFocused), rosterOf("s1"), time.Second, 2).
		WithArchiver(archiver, time.Hour)

	for i := 0; i < 4; i++ {
		p.Tick(context.Background())
		waitDrained(t, p)
	}

	archiver.mu.Lock()
	defer archiver.mu.Unlock()
	assert.Equal(t, 1, archiver.saved["s1"], "archive interval not honoured")
}
