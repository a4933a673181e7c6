//go:build integration

package sqlstore

import (
	"context"
	"testing"
	"time"

	"salterio-site/internal/backend"
	"salterio-site/internal/db"
	"salterio-site/internal/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestPostgresRoundTrip(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("salterio"),
		postgres.WithUsername("salterio"),
		postgres.WithPassword("salterio"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	d, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	require.NoError(t, migrations.Apply(d))

	s := New(d)
	_, err = s.Insert(ctx, backend.TableEvents,
		backend.Row{"date": "2026-09-01", "title": "Autumn Evensong", "venue": "Cathedral"},
		backend.Row{"date": "2026-01-01", "title": "New Year"},
	)
	require.NoError(t, err)

	rows, err := s.Select(ctx, backend.TableEvents,
		backend.Query{}.Where(backend.Gte("date", "2026-06-01")).OrderBy("date", true))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-09-01", rows[0].Date("date"))
	assert.Equal(t, "Cathedral", rows[0].String("venue"))

	n, err := s.Count(ctx, backend.TableEvents, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, backend.TableEvents, []backend.Filter{backend.Eq("id", rows[0].String("id"))}))
	n, err = s.Count(ctx, backend.TableEvents, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
