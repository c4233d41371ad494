package recordstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Op names a Client method for failure injection and call accounting.
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

type opKey struct {
	op    Op
	table string
}

type injected struct {
	err  error
	once bool
}

// MemoryClient is an in-process Client. It mirrors the SQL client's
// behavior (timestamps, cascade from tasks to checklist items, unique ids)
// and lets callers inject failures, count calls and hold calls open.
type MemoryClient struct {
	mu       sync.Mutex
	tables   map[string][]Record
	failures map[opKey]injected
	holds    map[opKey]chan struct{}
	calls    map[opKey]int
	now      func() time.Time
}

// NewMemoryClient returns an empty in-memory record store.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		tables:   make(map[string][]Record),
		failures: make(map[opKey]injected),
		holds:    make(map[opKey]chan struct{}),
		calls:    make(map[opKey]int),
		now:      time.Now,
	}
}

// SetClock replaces the time source used for maintained timestamps.
func (m *MemoryClient) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Fail makes every op on table return err until ClearFailures is called.
func (m *MemoryClient) Fail(op Op, table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[opKey{op, table}] = injected{err: err}
}

// FailNext makes the next op on table return err.
func (m *MemoryClient) FailNext(op Op, table string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[opKey{op, table}] = injected{err: err, once: true}
}

// ClearFailures removes every injected failure.
func (m *MemoryClient) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = make(map[opKey]injected)
}

// Hold blocks ops on table until the returned release func is called.
// Blocked calls still honor context cancellation.
func (m *MemoryClient) Hold(op Op, table string) (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.holds[opKey{op, table}] = ch
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.holds[opKey{op, table}] == ch {
				delete(m.holds, opKey{op, table})
			}
			m.mu.Unlock()
			close(ch)
		})
	}
}

// Calls returns how many times op was invoked on table.
func (m *MemoryClient) Calls(op Op, table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[opKey{op, table}]
}

// Rows returns a copy of every record in table, in insertion order.
func (m *MemoryClient) Rows(table string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.tables[table]))
	for i, r := range m.tables[table] {
		out[i] = r.clone()
	}
	return out
}

// enter accounts the call, waits on any hold and returns an injected
// failure, if any.
func (m *MemoryClient) enter(ctx context.Context, op Op, table string) error {
	key := opKey{op, table}

	m.mu.Lock()
	m.calls[key]++
	hold := m.holds[key]
	m.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return translate(ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.failures[key]
	if !ok {
		return nil
	}
	if f.once {
		delete(m.failures, key)
	}
	return translate(f.err)
}

// Select returns the records of table matching filter.
func (m *MemoryClient) Select(
	ctx context.Context,
	table string,
	filter Filter,
	opts ...SelectOption,
) ([]Record, error) {
	schema, err := lookup(table)
	if err != nil {
		return nil, err
	}
	o := buildSelectOptions(opts)
	if err := schema.check(table, o.columns...); err != nil {
		return nil, err
	}
	if err := schema.checkFilter(table, filter); err != nil {
		return nil, err
	}
	if o.orderBy != "" {
		if err := schema.check(table, o.orderBy); err != nil {
			return nil, err
		}
	}
	if err := m.enter(ctx, OpSelect, table); err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Record
	for _, r := range m.tables[table] {
		if matches(r, filter) {
			out = append(out, r.clone())
		}
	}

	if o.orderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i][o.orderBy], out[j][o.orderBy])
			if o.desc {
				return c > 0
			}
			return c < 0
		})
	}
	if o.limit > 0 && len(out) > o.limit {
		out = out[:o.limit]
	}
	if len(o.columns) > 0 {
		for i, r := range out {
			p := make(Record, len(o.columns))
			for _, c := range o.columns {
				p[c] = r[c]
			}
			out[i] = p
		}
	}

	return out, nil
}

// Insert adds rec to table and returns the stored record.
func (m *MemoryClient) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	schema, err := lookup(table)
	if err != nil {
		return nil, err
	}
	if err := m.enter(ctx, OpInsert, table); err != nil {
		return nil, fmt.Errorf("inserting into %s: %w", table, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec = rec.clone()
	schema.stamp(rec, m.now().UTC(), true)
	if err := schema.check(table, sortedColumns(rec)...); err != nil {
		return nil, err
	}
	if m.indexOf(table, "id", rec["id"]) >= 0 {
		return nil, fmt.Errorf("inserting into %s: %w", table, duplicateKey(table))
	}
	if err := m.checkReferences(table, rec); err != nil {
		return nil, fmt.Errorf("inserting into %s: %w", table, err)
	}

	m.tables[table] = append(m.tables[table], rec)
	return rec.clone(), nil
}

// Update applies patch to the records of table matching filter.
func (m *MemoryClient) Update(ctx context.Context, table string, patch Record, filter Filter) error {
	schema, err := lookup(table)
	if err != nil {
		return err
	}
	if filter.Empty() {
		return fmt.Errorf("updating %s: %w", table, ErrUnfiltered)
	}
	if err := schema.checkFilter(table, filter); err != nil {
		return err
	}
	if err := schema.check(table, sortedColumns(patch)...); err != nil {
		return err
	}
	if err := m.enter(ctx, OpUpdate, table); err != nil {
		return fmt.Errorf("updating %s: %w", table, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	patch = patch.clone()
	schema.stamp(patch, m.now().UTC(), false)
	for _, r := range m.tables[table] {
		if !matches(r, filter) {
			continue
		}
		for k, v := range patch {
			r[k] = v
		}
	}
	return nil
}

// Upsert inserts recs, updating in place rows whose conflictKey exists.
// The batch is applied atomically: a rejected record leaves the table
// untouched.
func (m *MemoryClient) Upsert(ctx context.Context, table string, recs []Record, conflictKey string) error {
	if len(recs) == 0 {
		return nil
	}
	schema, err := lookup(table)
	if err != nil {
		return err
	}
	if err := schema.check(table, conflictKey); err != nil {
		return err
	}
	if err := m.enter(ctx, OpUpsert, table); err != nil {
		return fmt.Errorf("upserting into %s: %w", table, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	rows := make([]Record, len(m.tables[table]))
	for i, r := range m.tables[table] {
		rows[i] = r.clone()
	}

	for _, rec := range recs {
		rec = rec.clone()
		key, ok := rec[conflictKey]
		if !ok {
			return fmt.Errorf("upserting into %s: record lacks conflict key %q", table, conflictKey)
		}
		if err := schema.check(table, sortedColumns(rec)...); err != nil {
			return err
		}
		if err := m.checkReferences(table, rec); err != nil {
			return fmt.Errorf("upserting into %s: %w", table, err)
		}

		idx := -1
		for i, r := range rows {
			if equalValues(r[conflictKey], key) {
				idx = i
				break
			}
		}
		if idx < 0 {
			schema.stamp(rec, now, true)
			rows = append(rows, rec)
			continue
		}

		schema.stamp(rec, now, false)
		for k, v := range rec {
			if k == schema.createdAt {
				continue
			}
			rows[idx][k] = v
		}
	}

	m.tables[table] = rows
	return nil
}

// Delete removes the records of table matching filter. Deleting tasks
// cascades to their checklist items.
func (m *MemoryClient) Delete(ctx context.Context, table string, filter Filter) error {
	schema, err := lookup(table)
	if err != nil {
		return err
	}
	if filter.Empty() {
		return fmt.Errorf("deleting from %s: %w", table, ErrUnfiltered)
	}
	if err := schema.checkFilter(table, filter); err != nil {
		return err
	}
	if err := m.enter(ctx, OpDelete, table); err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		kept    []Record
		removed []any
	)
	for _, r := range m.tables[table] {
		if matches(r, filter) {
			removed = append(removed, r["id"])
			continue
		}
		kept = append(kept, r)
	}
	m.tables[table] = kept

	if table == TableTasks && len(removed) > 0 {
		m.removeWhere(TableChecklistItems, In("task_id", removed...))
	}
	if table == TableReleaseUpdates && len(removed) > 0 {
		m.removeWhere(TableUserUpdateViews, In("release_update_id", removed...))
	}
	return nil
}

func (m *MemoryClient) removeWhere(table string, filter Filter) {
	var kept []Record
	for _, r := range m.tables[table] {
		if !matches(r, filter) {
			kept = append(kept, r)
		}
	}
	m.tables[table] = kept
}

func (m *MemoryClient) indexOf(table, col string, value any) int {
	for i, r := range m.tables[table] {
		if equalValues(r[col], value) {
			return i
		}
	}
	return -1
}

// checkReferences enforces the foreign keys of the SQL schema.
func (m *MemoryClient) checkReferences(table string, rec Record) error {
	var parent, col string
	switch table {
	case TableChecklistItems:
		parent, col = TableTasks, "task_id"
	case TableUserUpdateViews:
		parent, col = TableReleaseUpdates, "release_update_id"
	default:
		return nil
	}
	v, ok := rec[col]
	if !ok {
		return nil
	}
	if m.indexOf(parent, "id", v) < 0 {
		return &RemoteError{
			Message: fmt.Sprintf("insert or update on table %q violates foreign key constraint", table),
			Details: fmt.Sprintf("Key (%s)=(%v) is not present in table %q.", col, v, parent),
			Code:    "23503",
		}
	}
	return nil
}

func duplicateKey(table string) error {
	return &RemoteError{
		Message: fmt.Sprintf("duplicate key value violates unique constraint %q", table+"_pkey"),
		Code:    "23505",
	}
}

func matches(r Record, f Filter) bool {
	for _, c := range f.conds {
		ok := false
		for _, v := range c.values {
			if equalValues(r[c.column], v) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	return compareValues(a, b) == 0
}

// compareValues orders two column values. nil sorts last, times compare
// chronologically, everything else by its text form.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	ta, aIsTime := a.(time.Time)
	tb, bIsTime := b.(time.Time)
	if aIsTime && bIsTime {
		return ta.Compare(tb)
	}

	ia, aIsInt := toInt64(a)
	ib, bIsInt := toInt64(b)
	if aIsInt && bIsInt {
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		}
		return 0
	}

	sa, sb := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
