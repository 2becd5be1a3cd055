// Package sqlstore implements the remote row store and auth contract on
// database/sql, for SQLite and PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pbaille/pulsetrack/internal/remote"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

//go:embed schema_postgres.sql
var postgresSchema string

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
)

// Driver names accepted by Open
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store handles database operations
type Store struct {
	db       *sql.DB
	postgres bool
}

// Open connects to the database and initializes the schema
func Open(driver, dsn string) (*Store, error) {
	var (
		sqlDriver = "sqlite3"
		schema    = sqliteSchema
		postgres  bool
	)
	switch driver {
	case DriverSQLite, "sqlite3", "":
	case DriverPostgres:
		sqlDriver, schema, postgres = "postgres", postgresSchema, true
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if !postgres {
		// SQLite allows one writer
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, postgres: postgres}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $n for PostgreSQL
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func checkTable(table string) ([]string, error) {
	cols, ok := remote.Tables[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return cols, nil
}

func checkColumns(table string, allowed []string, names ...string) error {
	for _, name := range names {
		if !slices.Contains(allowed, name) {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, name)
		}
	}
	return nil
}

func quote(name string) string {
	return `"` + name + `"`
}

func where(filters []remote.Filter) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	conds := make([]string, len(filters))
	args := make([]any, len(filters))
	for i, f := range filters {
		conds[i] = quote(f.Column) + " = ?"
		args[i] = f.Value
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func filterColumns(filters []remote.Filter) []string {
	names := make([]string, len(filters))
	for i, f := range filters {
		names[i] = f.Column
	}
	return names
}

// Upsert writes rows keyed by id. An existing row has only the given
// columns overwritten, so columns absent from a row keep their stored value.
// A new row is inserted and must carry every NOT NULL column.
func (s *Store) Upsert(ctx context.Context, table string, rows ...remote.Row) error {
	allowed, err := checkTable(table)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	for _, row := range rows {
		cols := make([]string, 0, len(row))
		for col := range row {
			cols = append(cols, col)
		}
		sort.Strings(cols)
		if err := checkColumns(table, allowed, cols...); err != nil {
			return err
		}
		if _, ok := row["id"]; !ok {
			return fmt.Errorf("upsert %s: row has no id", table)
		}

		updated, err := s.updateRow(ctx, tx, table, row, cols)
		if err != nil {
			return err
		}
		if updated {
			continue
		}
		if err := s.insertRow(ctx, tx, table, row, cols); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// updateRow sets the row's columns on the stored row with its id and
// reports whether one existed.
func (s *Store) updateRow(ctx context.Context, tx *sql.Tx, table string, row remote.Row, cols []string) (bool, error) {
	var sets []string
	var args []any
	for _, col := range cols {
		if col == "id" {
			continue
		}
		sets = append(sets, quote(col)+" = ?")
		args = append(args, row[col])
	}
	if len(sets) == 0 {
		var one int
		err := tx.QueryRowContext(ctx, s.rebind("SELECT 1 FROM "+quote(table)+" WHERE id = ?"), row["id"]).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("upsert %s: %w", table, err)
		}
		return true, nil
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", quote(table), strings.Join(sets, ", "))
	res, err := tx.ExecContext(ctx, s.rebind(query), append(args, row["id"])...)
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", table, err)
	}
	return n > 0, nil
}

// insertRow inserts a new row. A concurrent insert of the same id turns
// into an overwrite.
func (s *Store) insertRow(ctx context.Context, tx *sql.Tx, table string, row remote.Row, cols []string) error {
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	args := make([]any, len(cols))
	var sets []string
	for i, col := range cols {
		quoted[i] = quote(col)
		marks[i] = "?"
		args[i] = row[col]
		if col != "id" {
			sets = append(sets, quote(col)+" = excluded."+quote(col))
		}
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) ",
		quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
	if len(sets) == 0 {
		query += "DO NOTHING"
	} else {
		query += "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	if _, err := tx.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

// Update sets values on every row matching the filters
func (s *Store) Update(ctx context.Context, table string, values remote.Row, filters ...remote.Filter) error {
	allowed, err := checkTable(table)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	if err := checkColumns(table, allowed, append(cols, filterColumns(filters)...)...); err != nil {
		return err
	}

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+len(filters))
	for i, col := range cols {
		sets[i] = quote(col) + " = ?"
		args = append(args, values[col])
	}
	cond, condArgs := where(filters)
	args = append(args, condArgs...)

	query := "UPDATE " + quote(table) + " SET " + strings.Join(sets, ", ") + cond
	if _, err := s.db.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

// DeleteWhere removes rows matching every filter. An empty filter list is
// refused rather than clearing the table.
func (s *Store) DeleteWhere(ctx context.Context, table string, filters ...remote.Filter) error {
	allowed, err := checkTable(table)
	if err != nil {
		return err
	}
	if len(filters) == 0 {
		return fmt.Errorf("delete %s: no filters", table)
	}
	if err := checkColumns(table, allowed, filterColumns(filters)...); err != nil {
		return err
	}

	cond, args := where(filters)
	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM "+quote(table)+cond), args...); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

// SelectAll returns every row matching the query
func (s *Store) SelectAll(ctx context.Context, table string, q remote.Query) ([]remote.Row, error) {
	allowed, err := checkTable(table)
	if err != nil {
		return nil, err
	}
	if err := checkColumns(table, allowed, filterColumns(q.Filters)...); err != nil {
		return nil, err
	}

	cond, args := where(q.Filters)
	query := "SELECT * FROM " + quote(table) + cond
	if len(q.OrderBy) > 0 {
		orders := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			if err := checkColumns(table, allowed, o.Column); err != nil {
				return nil, err
			}
			orders[i] = quote(o.Column)
			if o.Desc {
				orders[i] += " DESC"
			}
		}
		query += " ORDER BY " + strings.Join(orders, ", ")
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("select %s columns: %w", table, err)
	}

	var out []remote.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		row := make(remote.Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}
