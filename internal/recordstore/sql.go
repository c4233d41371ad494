package recordstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// sqliteTimeLayout is fixed-width so that text ordering matches time order.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000+00:00"

// SQLClient implements Client on top of an SQL database. The same query
// builder serves SQLite and PostgreSQL; sqlx rebinds placeholders per driver.
type SQLClient struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

// Open connects to the record store for driver and runs pending
// migrations. For sqlite, dsn is a file path (or ":memory:").
func Open(driver, dsn string) (*SQLClient, error) {
	switch driver {
	case DriverSQLite:
		return OpenSQLite(dsn)
	case DriverPostgres:
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported record store driver %q", driver)
	}
}

// OpenSQLite opens (or creates) a SQLite database at path, enables
// foreign keys and WAL mode, and runs any pending schema migrations.
func OpenSQLite(path string) (*SQLClient, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Open(DriverSQLite, path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and pragmas
	// applied to every statement.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return newSQLClient(db, DriverSQLite)
}

// OpenPostgres connects to a PostgreSQL database at dsn and runs any
// pending schema migrations.
func OpenPostgres(dsn string) (*SQLClient, error) {
	db, err := sqlx.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", translate(err))
	}

	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return newSQLClient(db, DriverPostgres)
}

func newSQLClient(db *sqlx.DB, driver string) (*SQLClient, error) {
	c := &SQLClient{db: db, driver: driver, now: time.Now}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return c, nil
}

// Close closes the underlying database connection.
func (c *SQLClient) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *SQLClient) runMigrations() error {
	if _, err := c.db.Exec(
		"CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)",
	); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	currentVersion := 0
	if err := c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		stmt := m.sqlite
		if c.driver == DriverPostgres {
			stmt = m.postgres
		}
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Select returns the records of table matching filter.
func (c *SQLClient) Select(
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

	cols := "*"
	if len(o.columns) > 0 {
		cols = strings.Join(o.columns, ", ")
	}
	where, args := c.where(filter)
	query := fmt.Sprintf("SELECT %s FROM %s%s", cols, table, where)

	if o.orderBy != "" {
		if err := schema.check(table, o.orderBy); err != nil {
			return nil, err
		}
		direction := "ASC"
		if o.desc {
			direction = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s", o.orderBy, direction)
	}
	if o.limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", o.limit)
	}

	rows, err := c.db.QueryxContext(ctx, c.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, translate(err))
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec := Record{}
		if err := rows.MapScan(rec); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, translate(err))
		}
		records = append(records, decode(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s rows: %w", table, translate(err))
	}

	return records, nil
}

// Insert adds rec to table and returns the stored row.
func (c *SQLClient) Insert(ctx context.Context, table string, rec Record) (Record, error) {
	schema, err := lookup(table)
	if err != nil {
		return nil, err
	}

	rec = rec.clone()
	schema.stamp(rec, c.now(), true)
	cols := sortedColumns(rec)
	if err := schema.check(table, cols...); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		table, strings.Join(cols, ", "), placeholders(len(cols)),
	)

	out := Record{}
	row := c.db.QueryRowxContext(ctx, c.db.Rebind(query), c.values(rec, cols)...)
	if err := row.MapScan(out); err != nil {
		return nil, fmt.Errorf("inserting into %s: %w", table, translate(err))
	}

	return decode(out), nil
}

// Update applies patch to the rows of table matching filter.
func (c *SQLClient) Update(ctx context.Context, table string, patch Record, filter Filter) error {
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

	patch = patch.clone()
	schema.stamp(patch, c.now(), false)
	cols := sortedColumns(patch)
	if err := schema.check(table, cols...); err != nil {
		return err
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = col + " = ?"
	}
	where, whereArgs := c.where(filter)
	query := fmt.Sprintf("UPDATE %s SET %s%s", table, strings.Join(sets, ", "), where)
	args := append(c.values(patch, cols), whereArgs...)

	if _, err := c.db.ExecContext(ctx, c.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("updating %s: %w", table, translate(err))
	}
	return nil
}

// Upsert inserts or updates recs in a single transaction.
func (c *SQLClient) Upsert(ctx context.Context, table string, recs []Record, conflictKey string) error {
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

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", translate(err))
	}
	defer tx.Rollback()

	now := c.now()
	for _, rec := range recs {
		rec = rec.clone()
		if _, ok := rec[conflictKey]; !ok {
			return fmt.Errorf("upserting into %s: record lacks conflict key %q", table, conflictKey)
		}
		schema.stamp(rec, now, true)
		cols := sortedColumns(rec)
		if err := schema.check(table, cols...); err != nil {
			return err
		}

		var sets []string
		for _, col := range cols {
			if col == conflictKey || col == schema.createdAt {
				continue
			}
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
		}
		action := "DO NOTHING"
		if len(sets) > 0 {
			action = "DO UPDATE SET " + strings.Join(sets, ", ")
		}

		query := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
			table, strings.Join(cols, ", "), placeholders(len(cols)), conflictKey, action,
		)
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), c.values(rec, cols)...); err != nil {
			return fmt.Errorf("upserting into %s: %w", table, translate(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert into %s: %w", table, translate(err))
	}
	return nil
}

// Delete removes the rows of table matching filter.
func (c *SQLClient) Delete(ctx context.Context, table string, filter Filter) error {
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

	where, args := c.where(filter)
	query := fmt.Sprintf("DELETE FROM %s%s", table, where)
	if _, err := c.db.ExecContext(ctx, c.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("deleting from %s: %w", table, translate(err))
	}
	return nil
}

// where renders filter as a WHERE clause with '?' placeholders.
func (c *SQLClient) where(f Filter) (string, []any) {
	if f.Empty() {
		return "", nil
	}

	var (
		parts []string
		args  []any
	)
	for _, cond := range f.conds {
		if !cond.in {
			parts = append(parts, cond.column+" = ?")
			args = append(args, c.value(cond.values[0]))
			continue
		}
		if len(cond.values) == 0 {
			parts = append(parts, "1 = 0")
			continue
		}
		parts = append(parts, fmt.Sprintf("%s IN (%s)", cond.column, placeholders(len(cond.values))))
		for _, v := range cond.values {
			args = append(args, c.value(v))
		}
	}

	return " WHERE " + strings.Join(parts, " AND "), args
}

// values returns the driver arguments for cols of rec, in order.
func (c *SQLClient) values(rec Record, cols []string) []any {
	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = c.value(rec[col])
	}
	return args
}

// value converts a Go value into the encoding the driver stores.
func (c *SQLClient) value(v any) any {
	if c.driver != DriverSQLite {
		if t, ok := v.(time.Time); ok {
			return t.UTC()
		}
		return v
	}
	switch x := v.(type) {
	case time.Time:
		return x.UTC().Format(sqliteTimeLayout)
	case bool:
		return boolToInt(x)
	default:
		return v
	}
}

// decode normalizes driver output: byte slices become strings.
func decode(rec Record) Record {
	for k, v := range rec {
		if b, ok := v.([]byte); ok {
			rec[k] = string(b)
		}
	}
	return rec
}

func sortedColumns(rec Record) []string {
	cols := make([]string, 0, len(rec))
	for k := range rec {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
