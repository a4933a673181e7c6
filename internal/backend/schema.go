package backend

import "fmt"

// Schema lists the columns each table exposes. Stores reject any table or
// column outside it, which keeps identifiers out of user input.
var Schema = map[string][]string{
	TableEvents:    {"id", "date", "title", "venue", "type", "created_at"},
	TableGallery:   {"id", "path", "url", "caption", "tag", "created_at"},
	TableMembers:   {"id", "name", "section", "role", "sort", "photo_url", "created_at"},
	TableEnquiries: {"id", "name", "email", "phone", "message", "status", "created_at"},
	TableUsers:     {"id", "email", "password_hash", "status", "created_at", "last_login_at"},
	TableMetricSamples: {
		"id", "captured_at", "process_rss_bytes", "system_memory_total_bytes",
		"system_memory_used_bytes", "disk_total_bytes", "disk_used_bytes",
		"process_cpu_load", "system_cpu_load", "events_count", "gallery_count",
		"members_count", "open_enquiries_count", "created_at",
	},
}

func ValidateTable(table string) error {
	if _, ok := Schema[table]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	return nil
}

func ValidateColumn(table, column string) error {
	cols, ok := Schema[table]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
	for _, c := range cols {
		if c == column {
			return nil
		}
	}
	return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, column)
}

// ValidateQuery checks every identifier a query references.
func ValidateQuery(table string, q Query) error {
	if err := ValidateTable(table); err != nil {
		return err
	}
	for _, c := range q.Columns {
		if err := ValidateColumn(table, c); err != nil {
			return err
		}
	}
	if err := ValidateFilters(table, q.Filters); err != nil {
		return err
	}
	for _, o := range q.Orders {
		if err := ValidateColumn(table, o.Column); err != nil {
			return err
		}
	}
	return nil
}

func ValidateFilters(table string, filters []Filter) error {
	for _, f := range filters {
		if err := ValidateColumn(table, f.Column); err != nil {
			return err
		}
		if f.Op != OpEq && f.Op != OpGte {
			return fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}
	return nil
}

func ValidateRow(table string, row Row) error {
	for c := range row {
		if err := ValidateColumn(table, c); err != nil {
			return err
		}
	}
	return nil
}
