package recordstore

import "fmt"

// tableSchema lists the writable columns of a table and which timestamp
// columns the store maintains.
type tableSchema struct {
	columns   map[string]bool
	createdAt string
	updatedAt string
}

func newTableSchema(createdAt, updatedAt string, cols ...string) tableSchema {
	s := tableSchema{
		columns:   make(map[string]bool, len(cols)),
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
	for _, c := range cols {
		s.columns[c] = true
	}
	return s
}

var schemas = map[string]tableSchema{
	TableTasks: newTableSchema("created_at", "updated_at",
		"id", "title", "description", "column_key", "owner_id",
		"priority", "comments_count", "created_at", "updated_at"),
	TableChecklistItems: newTableSchema("created_at", "updated_at",
		"id", "task_id", "text", "completed", "created_at", "updated_at"),
	TableReleaseUpdates: newTableSchema("created_at", "",
		"id", "version_tag", "title", "content_html", "created_at"),
	TableUserUpdateViews: newTableSchema("", "last_seen_at",
		"id", "user_id", "release_update_id", "login_count_for_update", "last_seen_at"),
}

// lookup returns the schema for table, rejecting unknown tables.
func lookup(table string) (tableSchema, error) {
	s, ok := schemas[table]
	if !ok {
		return tableSchema{}, fmt.Errorf("unknown table %q", table)
	}
	return s, nil
}

// check rejects columns that the table does not have. Column names are
// interpolated into SQL, so this is the only gate between callers and the
// query text.
func (s tableSchema) check(table string, cols ...string) error {
	for _, c := range cols {
		if !s.columns[c] {
			return fmt.Errorf("unknown column %q on table %q", c, table)
		}
	}
	return nil
}

func (s tableSchema) checkFilter(table string, f Filter) error {
	for _, c := range f.conds {
		if err := s.check(table, c.column); err != nil {
			return err
		}
	}
	return nil
}

// stamp fills the maintained timestamp columns of rec. created_at is only
// set when absent so client-supplied values survive.
func (s tableSchema) stamp(rec Record, now any, inserting bool) {
	if inserting && s.createdAt != "" {
		if v, ok := rec[s.createdAt]; !ok || v == nil {
			rec[s.createdAt] = now
		}
	}
	if s.updatedAt != "" {
		rec[s.updatedAt] = now
	}
}
