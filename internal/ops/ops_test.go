package ops

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salterio-site/internal/backend"
	"salterio-site/internal/backend/backendtest"
	"salterio-site/internal/backend/memstore"
	"salterio-site/internal/intake"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeHost(string) HostStats {
	return HostStats{ProcessRSSBytes: 1 << 20, SystemMemoryTotal: 8 << 30, SystemMemoryUsed: 2 << 30, SystemCPULoad: 0.25}
}

func newCollector(t *testing.T, rows backend.RowStore) *Collector {
	t.Helper()
	c := NewCollector(rows, t.TempDir(), nil)
	c.host = fakeHost
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	c.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * 5 * time.Second)
	}
	return c
}

func TestCaptureCountsContent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	_, err := store.Insert(ctx, backend.TableEvents, backend.Row{"date": "2026-06-01", "title": "Concert"})
	require.NoError(t, err)
	_, err = store.Insert(ctx, backend.TableEnquiries,
		backend.Row{"name": "A", "email": "a@b.co", "status": intake.StatusOpen},
		backend.Row{"name": "B", "email": "b@b.co", "status": intake.StatusHandled})
	require.NoError(t, err)

	s, err := newCollector(t, store).Capture(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Events)
	assert.Equal(t, 0, s.Gallery)
	assert.Equal(t, 1, s.OpenEnquiries)
	assert.Equal(t, int64(1<<20), s.ProcessRSSBytes)

	n, err := store.Count(ctx, backend.TableMetricSamples, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestHistoryOldestFirst(t *testing.T) {
	ctx := context.Background()
	c := newCollector(t, memstore.New())
	var captured []time.Time
	for i := 0; i < 5; i++ {
		s, err := c.Capture(ctx)
		require.NoError(t, err)
		captured = append(captured, s.CapturedAt)
	}

	h, err := c.History(ctx, 3)
	require.NoError(t, err)
	require.Len(t, h, 3)
	assert.True(t, h[0].CapturedAt.Equal(captured[2]))
	assert.True(t, h[2].CapturedAt.Equal(captured[4]))
	assert.Equal(t, 0.25, h[2].SystemCPULoad)

	all, err := c.History(ctx, 10_000)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestCaptureCountFailure(t *testing.T) {
	rows := backendtest.NewRowStore(memstore.New())
	rows.FailOn("count", backend.TableMembers, errors.New("down"))
	_, err := newCollector(t, rows).Capture(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count members")
}

func TestRunPublishesSamples(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newCollector(t, memstore.New())

	got := make(chan Sample, 1)
	go c.Run(ctx, 10*time.Millisecond, func(s Sample) {
		select {
		case got <- s:
		default:
		}
	})

	select {
	case s := <-got:
		assert.False(t, s.CapturedAt.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("no sample published")
	}
}

func TestHubBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(nil)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Add(conn)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)
	hub.Broadcast(Sample{Events: 7})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var s Sample
	require.NoError(t, client.ReadJSON(&s))
	assert.Equal(t, 7, s.Events)
}
