package enquiries

import (
	"context"
	"errors"
	"testing"
	"time"

	"salterio-site/internal/backend"
	"salterio-site/internal/backend/backendtest"
	"salterio-site/internal/backend/memstore"
	"salterio-site/internal/intake"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) (*Service, *backendtest.RowStore) {
	t.Helper()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	n := 0
	store := memstore.New().WithClock(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Hour)
	})
	intakeSvc := intake.NewService(store, nil)
	for _, name := range []string{"Alice", "Bwalya", "Chileshe"} {
		_, err := intakeSvc.SubmitEnquiry(context.Background(), intake.EnquiryForm{Name: name, Email: name + "@example.com"})
		require.NoError(t, err)
	}
	rows := backendtest.NewRowStore(store)
	return NewService(rows, time.UTC, nil), rows
}

func names(l Listing) []string {
	out := []string{}
	for _, c := range l.Cards {
		out = append(out, c.Name)
	}
	return out
}

func TestParseFilter(t *testing.T) {
	assert.Equal(t, FilterOpen, ParseFilter(" Open "))
	assert.Equal(t, FilterHandled, ParseFilter("handled"))
	assert.Equal(t, FilterAll, ParseFilter(""))
	assert.Equal(t, FilterAll, ParseFilter("archived"))
}

func TestListAndMarkHandled(t *testing.T) {
	svc, rows := seeded(t)
	ctx := context.Background()

	all, err := svc.List(ctx, "all")
	require.NoError(t, err)
	assert.Equal(t, []string{"Chileshe", "Bwalya", "Alice"}, names(all))
	for _, c := range all.Cards {
		assert.True(t, c.MarkHandled)
	}

	bwalya := all.Cards[1].ID
	require.NoError(t, svc.MarkHandled(ctx, bwalya))
	require.NoError(t, svc.MarkHandled(ctx, bwalya), "second call is a no-op")

	open, err := svc.List(ctx, "open")
	require.NoError(t, err)
	assert.Equal(t, []string{"Chileshe", "Alice"}, names(open))

	handled, err := svc.List(ctx, "handled")
	require.NoError(t, err)
	require.Len(t, handled.Cards, 1)
	assert.False(t, handled.Cards[0].MarkHandled)
	assert.NotContains(t, handled.Cards[0].HTML, "data-mark")

	n, err := rows.Count(ctx, backend.TableEnquiries, []backend.Filter{backend.Eq("status", intake.StatusHandled)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEmptyAndFailure(t *testing.T) {
	svc := NewService(memstore.New(), nil, nil)
	l, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, MsgNone, l.Message)
	assert.NotNil(t, l.Cards)

	rows := backendtest.NewRowStore(memstore.New())
	rows.FailOn("select", backend.TableEnquiries, errors.New("down"))
	l, err = NewService(rows, nil, nil).List(context.Background(), "open")
	require.Error(t, err)
	assert.Equal(t, MsgLoadFailed, l.Message)
}

func TestRenderCardEscapes(t *testing.T) {
	html, err := RenderCard(Enquiry{
		ID:      "e1",
		Name:    `<script>alert("x")</script>`,
		Email:   "a@b.co",
		Message: `<img src=x onerror=alert(1)>`,
		Status:  intake.StatusOpen,
	}, time.UTC)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.NotContains(t, html, "<img")
	assert.Contains(t, html, "&lt;script&gt;")
	assert.Contains(t, html, `mailto:a@b.co`)
	assert.Contains(t, html, `data-mark="e1"`)
}
