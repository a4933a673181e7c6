// Package sqlstore implements backend.RowStore on top of sqlx. Statements are
// written with "?" placeholders and rebound for the connected driver, so the
// same store serves PostgreSQL (pgx) and SQLite.
package sqlstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"salterio-site/internal/backend"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) Select(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	if err := backend.ValidateQuery(table, q); err != nil {
		return nil, backend.WrapQuery(table, "select", err)
	}
	cols := "*"
	if len(q.Columns) > 0 {
		quoted := make([]string, 0, len(q.Columns))
		for _, c := range q.Columns {
			quoted = append(quoted, quoteIdent(c))
		}
		cols = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + cols + " FROM " + quoteIdent(table))
	where, args := buildWhere(q.Filters)
	sb.WriteString(where)
	if len(q.Orders) > 0 {
		parts := make([]string, 0, len(q.Orders))
		for _, o := range q.Orders {
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			parts = append(parts, quoteIdent(o.Column)+" "+dir)
		}
		sb.WriteString(" ORDER BY " + strings.Join(parts, ", "))
	}
	if q.Range != nil {
		sb.WriteString(" LIMIT ? OFFSET ?")
		rng := q.Range.Clamped()
		args = append(args, rng.Limit(), rng.From)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(sb.String()), args...)
	if err != nil {
		return nil, backend.WrapQuery(table, "select", err)
	}
	defer rows.Close()

	out := []backend.Row{}
	for rows.Next() {
		m := map[string]any{}
		if err := rows.MapScan(m); err != nil {
			return nil, backend.WrapQuery(table, "select", err)
		}
		out = append(out, normalize(m))
	}
	if err := rows.Err(); err != nil {
		return nil, backend.WrapQuery(table, "select", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, table string, filters []backend.Filter) (int, error) {
	if err := backend.ValidateTable(table); err != nil {
		return 0, backend.WrapQuery(table, "count", err)
	}
	if err := backend.ValidateFilters(table, filters); err != nil {
		return 0, backend.WrapQuery(table, "count", err)
	}
	where, args := buildWhere(filters)
	var n int
	query := "SELECT COUNT(*) FROM " + quoteIdent(table) + where
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
		return 0, backend.WrapQuery(table, "count", err)
	}
	return n, nil
}

func (s *Store) Insert(ctx context.Context, table string, rows ...backend.Row) ([]backend.Row, error) {
	if err := backend.ValidateTable(table); err != nil {
		return nil, backend.WrapQuery(table, "insert", err)
	}
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
		cols := sortedKeys(r)
		quoted := make([]string, len(cols))
		marks := make([]string, len(cols))
		args := make([]any, len(cols))
		for i, c := range cols {
			quoted[i] = quoteIdent(c)
			marks[i] = "?"
			args[i] = r[c]
		}
		query := "INSERT INTO " + quoteIdent(table) +
			" (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ")"
		if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
			return stored, backend.WrapQuery(table, "insert", err)
		}
		stored = append(stored, r)
	}
	return stored, nil
}

func (s *Store) Update(ctx context.Context, table string, patch backend.Row, filters []backend.Filter) error {
	if err := backend.ValidateTable(table); err != nil {
		return backend.WrapQuery(table, "update", err)
	}
	if len(filters) == 0 {
		return backend.WrapQuery(table, "update", backend.ErrMissingFilter)
	}
	if err := backend.ValidateRow(table, patch); err != nil {
		return backend.WrapQuery(table, "update", err)
	}
	if err := backend.ValidateFilters(table, filters); err != nil {
		return backend.WrapQuery(table, "update", err)
	}
	if len(patch) == 0 {
		return nil
	}
	cols := sortedKeys(patch)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(filters))
	for i, c := range cols {
		sets[i] = quoteIdent(c) + " = ?"
		args = append(args, patch[c])
	}
	where, whereArgs := buildWhere(filters)
	args = append(args, whereArgs...)
	query := "UPDATE " + quoteIdent(table) + " SET " + strings.Join(sets, ", ") + where
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return backend.WrapQuery(table, "update", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, table string, filters []backend.Filter) error {
	if err := backend.ValidateTable(table); err != nil {
		return backend.WrapQuery(table, "delete", err)
	}
	if len(filters) == 0 {
		return backend.WrapQuery(table, "delete", backend.ErrMissingFilter)
	}
	if err := backend.ValidateFilters(table, filters); err != nil {
		return backend.WrapQuery(table, "delete", err)
	}
	where, args := buildWhere(filters)
	query := "DELETE FROM " + quoteIdent(table) + where
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return backend.WrapQuery(table, "delete", err)
	}
	return nil
}

func buildWhere(filters []backend.Filter) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		op := "="
		if f.Op == backend.OpGte {
			op = ">="
		}
		parts = append(parts, quoteIdent(f.Column)+" "+op+" ?")
		args = append(args, f.Value)
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// quoteIdent double-quotes an identifier that already passed schema
// validation. Both PostgreSQL and SQLite accept the form.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

func sortedKeys(r backend.Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalize(m map[string]any) backend.Row {
	row := make(backend.Row, len(m))
	for k, v := range m {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
			continue
		}
		row[k] = v
	}
	return row
}
