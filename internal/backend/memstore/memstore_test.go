package memstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"salterio-site/internal/backend"

	"github.com/google/go-cmp/cmp"
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

func TestInsertAndSelectByCreatedAtDesc(t *testing.T) {
	s := New().WithClock(steppingClock())
	ctx := context.Background()

	for i, tag := range []string{"Concert", "Rehearsal", "Concert"} {
		_, err := s.Insert(ctx, backend.TableGallery, backend.Row{"path": fmt.Sprintf("2026-03/%d.jpg", i), "url": "u", "tag": tag})
		require.NoError(t, err)
	}

	rows, err := s.Select(ctx, backend.TableGallery,
		backend.Query{}.Where(backend.Eq("tag", "Concert")).OrderBy("created_at", false))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Time("created_at").After(rows[1].Time("created_at")))
}

func TestRangeIsInclusiveAndClamped(t *testing.T) {
	s := New().WithClock(steppingClock())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := s.Insert(ctx, backend.TableMembers, backend.Row{"name": string(rune('A' + i)), "section": "Bass", "sort": i})
		require.NoError(t, err)
	}

	rows, err := s.Select(ctx, backend.TableMembers, backend.Query{}.OrderBy("sort", true).Between(3, 10))
	require.NoError(t, err)
	got := []string{}
	for _, r := range rows {
		got = append(got, r.String("name"))
	}
	if diff := cmp.Diff([]string{"D", "E"}, got); diff != "" {
		t.Errorf("page mismatch (-want +got):\n%s", diff)
	}

	rows, err = s.Select(ctx, backend.TableMembers, backend.Query{}.Between(12, 23))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRangeBeforeFirstRow(t *testing.T) {
	s := New().WithClock(steppingClock())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Insert(ctx, backend.TableMembers, backend.Row{"name": string(rune('A' + i)), "section": "Alto", "sort": i})
		require.NoError(t, err)
	}

	rows, err := s.Select(ctx, backend.TableMembers, backend.Query{}.OrderBy("sort", true).Between(-36, -25))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = s.Select(ctx, backend.TableMembers, backend.Query{}.OrderBy("sort", true).Between(-1, 1))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].String("name"))
}

func TestMutationsWithoutFilterAreRejected(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Insert(ctx, backend.TableEvents, backend.Row{"date": "2026-01-01", "title": "Keep"})
	require.NoError(t, err)

	err = s.Update(ctx, backend.TableEvents, backend.Row{"title": "x"}, nil)
	assert.ErrorIs(t, err, backend.ErrMissingFilter)
	err = s.Delete(ctx, backend.TableEvents, nil)
	assert.ErrorIs(t, err, backend.ErrMissingFilter)

	rows, err := s.Select(ctx, backend.TableEvents, backend.Query{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Keep", rows[0].String("title"))
}

func TestGteOnDates(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, d := range []string{"2026-01-01", "2026-10-14", "2026-12-24"} {
		_, err := s.Insert(ctx, backend.TableEvents, backend.Row{"date": d, "title": d})
		require.NoError(t, err)
	}
	n, err := s.Count(ctx, backend.TableEvents, []backend.Filter{backend.Gte("date", "2026-10-14")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpdateAndDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	rows, err := s.Insert(ctx, backend.TableEnquiries, backend.Row{"name": "A", "email": "a@b.co", "status": "open"})
	require.NoError(t, err)
	id := rows[0].String("id")

	require.NoError(t, s.Update(ctx, backend.TableEnquiries, backend.Row{"status": "handled"}, []backend.Filter{backend.Eq("id", id)}))
	got, err := s.Select(ctx, backend.TableEnquiries, backend.Query{})
	require.NoError(t, err)
	assert.Equal(t, "handled", got[0].String("status"))

	require.NoError(t, s.Delete(ctx, backend.TableEnquiries, []backend.Filter{backend.Eq("id", id)}))
	n, err := s.Count(ctx, backend.TableEnquiries, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSelectReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Insert(ctx, backend.TableEvents, backend.Row{"date": "2026-01-01", "title": "Original"})
	require.NoError(t, err)

	rows, err := s.Select(ctx, backend.TableEvents, backend.Query{})
	require.NoError(t, err)
	rows[0]["title"] = "Mutated"

	rows, err = s.Select(ctx, backend.TableEvents, backend.Query{})
	require.NoError(t, err)
	assert.Equal(t, "Original", rows[0].String("title"))
}

func TestUniqueGalleryPath(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.Insert(ctx, backend.TableGallery, backend.Row{"path": "2026-03/x.jpg", "url": "u"})
	require.NoError(t, err)
	_, err = s.Insert(ctx, backend.TableGallery, backend.Row{"path": "2026-03/x.jpg", "url": "u"})
	var qerr *backend.QueryError
	assert.True(t, errors.As(err, &qerr))
}

func TestUnknownColumnRejected(t *testing.T) {
	s := New()
	_, err := s.Select(context.Background(), backend.TableEvents, backend.Query{}.Where(backend.Eq("nope", 1)))
	assert.True(t, errors.Is(err, backend.ErrUnknownColumn))
}
