// Package sqlite implements the relational mirror on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/vaultkit/ports"
)

// Mirror is a SQLite-backed relational mirror. The vault owns the schema:
// every sync drops and recreates each table from the pushed snapshot, so the
// database file is disposable.
type Mirror struct {
	db *sql.DB
}

// New opens (or creates) a mirror database at path. Use ":memory:" for an
// in-process mirror.
func New(path string) (*Mirror, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open mirror database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = OFF",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &Mirror{db: db}, nil
}

// FromDB wraps an existing connection.
func FromDB(db *sql.DB) *Mirror {
	return &Mirror{db: db}
}

// ReplaceTable atomically swaps one table for the given snapshot. Drop,
// create, and inserts run in a single transaction.
func (m *Mirror) ReplaceTable(ctx context.Context, t ports.MirrorTable) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("replace table %s: no columns", t.Name)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %q", t.Name)); err != nil {
		return fmt.Errorf("drop table %s: %w", t.Name, err)
	}
	if _, err := tx.ExecContext(ctx, buildCreateTableSQL(t)); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}

	if len(t.Rows) > 0 {
		insertSQL, pick := buildInsertSQL(t)
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			return fmt.Errorf("prepare insert %s: %w", t.Name, err)
		}
		defer stmt.Close()

		for _, row := range t.Rows {
			if _, err := stmt.ExecContext(ctx, pick(row)...); err != nil {
				return fmt.Errorf("insert into %s: %w", t.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", t.Name, err)
	}
	return nil
}

// Query runs a read query and returns rows as column-keyed maps.
func (m *Mirror) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			value := values[i]
			if b, ok := value.([]byte); ok {
				value = string(b)
			}
			row[col] = value
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (m *Mirror) Close() error {
	return m.db.Close()
}

var _ ports.Mirror = (*Mirror)(nil)

func buildCreateTableSQL(t ports.MirrorTable) string {
	defs := make([]string, 0, len(t.Columns))
	for _, col := range t.Columns {
		def := fmt.Sprintf("%q %s", col.Name, col.SQLType)
		if col.PrimaryKey {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %q (%s)", t.Name, strings.Join(defs, ", "))
}

// buildInsertSQL returns the INSERT statement and a function that extracts
// one row's values in column order. Absent keys insert as NULL.
func buildInsertSQL(t ports.MirrorTable) (string, func(map[string]any) []any) {
	names := make([]string, len(t.Columns))
	placeholders := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = fmt.Sprintf("%q", col.Name)
		placeholders[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %q (%s) VALUES (%s)",
		t.Name, strings.Join(names, ", "), strings.Join(placeholders, ", "))

	pick := func(row map[string]any) []any {
		values := make([]any, len(t.Columns))
		for i, col := range t.Columns {
			values[i] = row[col.Name]
		}
		return values
	}
	return query, pick
}
