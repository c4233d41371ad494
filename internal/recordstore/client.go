// Package recordstore is the generic persistence collaborator of the board.
// It exposes select/insert/update/upsert/delete over a handful of known
// tables and reports failures as structured RemoteErrors.
package recordstore

import (
	"context"
	"errors"
)

// Table names.
const (
	TableTasks           = "tasks"
	TableChecklistItems  = "checklist_items"
	TableReleaseUpdates  = "release_updates"
	TableUserUpdateViews = "user_update_views"
)

// Record is one row keyed by column name.
type Record map[string]any

// Client is the contract the board needs from a record store.
// Implementations assign created_at/updated_at on write.
type Client interface {
	// Select returns the records of table matching filter.
	Select(ctx context.Context, table string, filter Filter, opts ...SelectOption) ([]Record, error)

	// Insert adds rec and returns it as stored, timestamps included.
	Insert(ctx context.Context, table string, rec Record) (Record, error)

	// Update applies patch to every record matching filter. Matching
	// nothing is not an error.
	Update(ctx context.Context, table string, patch Record, filter Filter) error

	// Upsert inserts recs, updating in place those whose conflictKey
	// already exists. created_at of existing rows is preserved.
	Upsert(ctx context.Context, table string, recs []Record, conflictKey string) error

	// Delete removes every record matching filter. Matching nothing is
	// not an error.
	Delete(ctx context.Context, table string, filter Filter) error
}

// ErrNotFound is returned when a single-record lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var re *RemoteError
	return errors.As(err, &re) && re.Code == CodeNotFound
}

// ErrUnfiltered guards against table-wide updates and deletes.
var ErrUnfiltered = errors.New("update and delete require a filter")

// condition is a single column predicate.
type condition struct {
	column string
	values []any
	in     bool
}

// Filter is a conjunction of column predicates.
type Filter struct {
	conds []condition
}

// Where returns an empty filter that matches every record.
func Where() Filter { return Filter{} }

// Eq returns a filter matching column == value.
func Eq(column string, value any) Filter { return Where().Eq(column, value) }

// In returns a filter matching column IN values.
func In(column string, values ...any) Filter { return Where().In(column, values...) }

// Eq adds column == value to f.
func (f Filter) Eq(column string, value any) Filter {
	return f.with(condition{column: column, values: []any{value}})
}

// In adds column IN values to f. An empty value list matches nothing.
func (f Filter) In(column string, values ...any) Filter {
	return f.with(condition{column: column, values: values, in: true})
}

// Empty reports whether f has no predicates.
func (f Filter) Empty() bool { return len(f.conds) == 0 }

func (f Filter) with(c condition) Filter {
	conds := make([]condition, len(f.conds), len(f.conds)+1)
	copy(conds, f.conds)
	return Filter{conds: append(conds, c)}
}

// Strings converts ids into In-filter values.
func Strings(ids []string) []any {
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	return vals
}

type selectOptions struct {
	columns []string
	orderBy string
	desc    bool
	limit   int
}

// SelectOption tunes a Select call.
type SelectOption func(*selectOptions)

// OrderBy sorts the result by column.
func OrderBy(column string, desc bool) SelectOption {
	return func(o *selectOptions) {
		o.orderBy = column
		o.desc = desc
	}
}

// Limit caps the number of records returned.
func Limit(n int) SelectOption {
	return func(o *selectOptions) { o.limit = n }
}

// Columns restricts the returned columns.
func Columns(cols ...string) SelectOption {
	return func(o *selectOptions) { o.columns = cols }
}

func buildSelectOptions(opts []SelectOption) selectOptions {
	var o selectOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
