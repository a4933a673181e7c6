package gallery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"salterio-site/internal/backend"
	"salterio-site/internal/backend/backendtest"
	"salterio-site/internal/backend/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func steppingClock() func() time.Time {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

// seed inserts n images alternating between Concert and Rehearsal, oldest
// first, so path "n-1" is the newest.
func seed(t *testing.T, n int) *memstore.Store {
	t.Helper()
	s := memstore.New().WithClock(steppingClock())
	for i := 0; i < n; i++ {
		tag := "Concert"
		if i%2 == 1 {
			tag = "Rehearsal"
		}
		_, err := s.Insert(context.Background(), backend.TableGallery, backend.Row{
			"path": fmt.Sprint(i), "url": fmt.Sprintf("http://x/%d.jpg", i), "caption": fmt.Sprintf("Photo %d", i), "tag": tag,
		})
		require.NoError(t, err)
	}
	return s
}

func paths(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Path)
	}
	return out
}

func TestViewerOpenAll(t *testing.T) {
	v := NewViewer(seed(t, 30), 12, nil)
	s := v.Open(context.Background(), "", 0)

	assert.Equal(t, 30, s.TotalCount)
	assert.Equal(t, []string{TagAll, "Concert", "Rehearsal"}, s.Tags)
	require.Len(t, s.Items, 12)
	assert.Equal(t, "29", s.Items[0].Path)
	assert.Equal(t, "18", s.Items[11].Path)
	assert.Equal(t, "Page 1 of 3", s.Indicator())
}

func TestViewerPagesThroughTag(t *testing.T) {
	ctx := context.Background()
	v := NewViewer(seed(t, 30), 12, nil)

	s := v.Open(ctx, "Concert", 1)
	assert.Equal(t, 15, s.TotalCount)
	assert.Equal(t, 1, s.PageIndex)
	assert.Equal(t, []string{"4", "2", "0"}, paths(s.Items))

	s = v.Dispatch(ctx, s, PrevPage{})
	assert.Len(t, s.Items, 12)
	assert.Equal(t, "28", s.Items[0].Path)

	s = v.Dispatch(ctx, s, ChangeTag{Tag: "Rehearsal"})
	assert.Equal(t, 0, s.PageIndex)
	assert.Equal(t, "29", s.Items[0].Path)
}

func TestViewerDispatchClampsHeldState(t *testing.T) {
	ctx := context.Background()
	v := NewViewer(seed(t, 2), 12, nil)

	s := v.Dispatch(ctx, State{Tag: TagAll, PageSize: 12, TotalCount: 2, PageIndex: -3}, NextPage{})
	assert.Equal(t, 0, s.PageIndex)
	assert.Equal(t, []string{"1", "0"}, paths(s.Items))
	assert.Equal(t, "Page 1 of 1", s.Indicator())

	s = v.Dispatch(ctx, State{Tag: TagAll, PageSize: 12, TotalCount: 2, PageIndex: 7}, PrevPage{})
	assert.Equal(t, 0, s.PageIndex)
	assert.True(t, s.PrevDisabled())
	assert.Equal(t, []string{"1", "0"}, paths(s.Items))
	assert.Equal(t, "Page 1 of 1", s.Indicator())
}

func TestViewerEmptyGallery(t *testing.T) {
	v := NewViewer(memstore.New(), 12, nil)
	s := v.Open(context.Background(), "", 0)
	assert.Equal(t, MsgEmptyView, s.Message)
	assert.Equal(t, "Page 0 of 1", s.Indicator())

	snap := s.Snapshot()
	assert.NotNil(t, snap.State.Items)
	assert.Equal(t, []Chip{{Tag: TagAll, Active: true}}, snap.Chips)
	assert.True(t, snap.PrevDisabled)
	assert.True(t, snap.NextDisabled)
}

func TestViewerCountFailure(t *testing.T) {
	rows := backendtest.NewRowStore(seed(t, 5))
	rows.FailOn("count", backend.TableGallery, errors.New("connection reset"))

	s := NewViewer(rows, 12, nil).Open(context.Background(), "", 0)
	assert.Equal(t, MsgLoadFailed, s.Message)
	assert.Empty(t, s.Items)
	assert.Equal(t, 2, rows.CallCount(), "no page read after a failed count")
}

func TestViewerSelectFailure(t *testing.T) {
	rows := backendtest.NewRowStore(seed(t, 5))
	rows.FailOn("select", backend.TableGallery, errors.New("connection reset"))

	s := NewViewer(rows, 12, nil).Open(context.Background(), "", 0)
	assert.Equal(t, []string{TagAll}, s.Tags)
	assert.Equal(t, 5, s.TotalCount)
	assert.Equal(t, MsgLoadFailed, s.Message)
}
