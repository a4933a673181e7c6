// Package memstore is an in-memory backend.RowStore. It backs the
// "memory://" database URL and the controller tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"salterio-site/internal/backend"

	"github.com/google/uuid"
)

type Store struct {
	mu     sync.RWMutex
	tables map[string][]backend.Row
	now    func() time.Time
}

func New() *Store {
	return &Store{
		tables: map[string][]backend.Row{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used to stamp created_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Select(_ context.Context, table string, q backend.Query) ([]backend.Row, error) {
	if err := backend.ValidateQuery(table, q); err != nil {
		return nil, backend.WrapQuery(table, "select", err)
	}
	s.mu.RLock()
	matched := make([]backend.Row, 0)
	for _, r := range s.tables[table] {
		if matches(r, q.Filters) {
			matched = append(matched, r.Clone())
		}
	}
	s.mu.RUnlock()

	if len(q.Orders) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, o := range q.Orders {
				c := compare(matched[i][o.Column], matched[j][o.Column])
				if c == 0 {
					continue
				}
				if o.Ascending {
					return c < 0
				}
				return c > 0
			}
			return false
		})
	}
	if q.Range != nil {
		rng := q.Range.Clamped()
		from := rng.From
		if from > len(matched) {
			from = len(matched)
		}
		to := from + rng.Limit()
		if to > len(matched) {
			to = len(matched)
		}
		matched = matched[from:to]
	}
	if len(q.Columns) > 0 {
		for i, r := range matched {
			projected := make(backend.Row, len(q.Columns))
			for _, c := range q.Columns {
				projected[c] = r[c]
			}
			matched[i] = projected
		}
	}
	return matched, nil
}

func (s *Store) Count(_ context.Context, table string, filters []backend.Filter) (int, error) {
	if err := backend.ValidateTable(table); err != nil {
		return 0, backend.WrapQuery(table, "count", err)
	}
	if err := backend.ValidateFilters(table, filters); err != nil {
		return 0, backend.WrapQuery(table, "count", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.tables[table] {
		if matches(r, filters) {
			n++
		}
	}
	return n, nil
}

func (s *Store) Insert(_ context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	if err := backend.ValidateTable(table); err != nil {
		return nil, backend.WrapQuery(table, "insert", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]backend.Row, 0, len(rows))
	for _, row := range rows {
		r := row.Clone()
		if r.String("id") == "" {
			r["id"] = uuid.NewString()
		}
		if _, ok := r["created_at"]; !ok {
			r["created_at"] = s.now()
		}
		if err := backend.ValidateRow(table, r); err != nil {
			return stored, backend.WrapQuery(table, "insert", err)
		}
		if err := s.checkUnique(table, r); err != nil {
			return stored, backend.WrapQuery(table, "insert", err)
		}
		s.tables[table] = append(s.tables[table], r)
		stored = append(stored, r.Clone())
	}
	return stored, nil
}

func (s *Store) Update(_ context.Context, table string, patch backend.Row, filters []backend.Filter) error {
	if err := backend.ValidateTable(table); err != nil {
		return backend.WrapQuery(table, "update", err)
	}
	if err := backend.ValidateRow(table, patch); err != nil {
		return backend.WrapQuery(table, "update", err)
	}
	if len(filters) == 0 {
		return backend.WrapQuery(table, "update", backend.ErrMissingFilter)
	}
	if err := backend.ValidateFilters(table, filters); err != nil {
		return backend.WrapQuery(table, "update", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.tables[table] {
		if !matches(r, filters) {
			continue
		}
		for k, v := range patch {
			r[k] = v
		}
	}
	return nil
}

func (s *Store) Delete(_ context.Context, table string, filters []backend.Filter) error {
	if err := backend.ValidateTable(table); err != nil {
		return backend.WrapQuery(table, "delete", err)
	}
	if len(filters) == 0 {
		return backend.WrapQuery(table, "delete", backend.ErrMissingFilter)
	}
	if err := backend.ValidateFilters(table, filters); err != nil {
		return backend.WrapQuery(table, "delete", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tables[table][:0]
	for _, r := range s.tables[table] {
		if !matches(r, filters) {
			kept = append(kept, r)
		}
	}
	s.tables[table] = kept
	return nil
}

// uniqueColumns mirrors the UNIQUE constraints of the SQL migrations.
var uniqueColumns = map[string][]string{
	backend.TableGallery: {"id", "path"},
	backend.TableUsers:   {"id", "email"},
}

func (s *Store) checkUnique(table string, r backend.Row) error {
	cols, ok := uniqueColumns[table]
	if !ok {
		cols = []string{"id"}
	}
	for _, existing := range s.tables[table] {
		for _, c := range cols {
			if compare(existing[c], r[c]) == 0 && r[c] != nil {
				return fmt.Errorf("duplicate value for %s.%s", table, c)
			}
		}
	}
	return nil
}

func matches(r backend.Row, filters []backend.Filter) bool {
	for _, f := range filters {
		c := compare(r[f.Column], f.Value)
		switch f.Op {
		case backend.OpEq:
			if r[f.Column] == nil || c != 0 {
				return false
			}
		case backend.OpGte:
			if r[f.Column] == nil || c < 0 {
				return false
			}
		}
	}
	return true
}

// compare orders two column values. nil sorts first; mixed numeric types are
// compared as float64 and anything else falls back to its string form.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
