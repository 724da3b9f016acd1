// Package extdb provides the per-extension SQLite store exposed to
// sandboxed code through the bridge. Each extension owns exactly one
// database file; nothing here is ever shared across extensions.
package extdb

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps one extension's SQLite database.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path in WAL mode.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragma: %w", err)
	}
	return &DB{db: db}, nil
}

// Query runs a read statement and returns the result as an ordered sequence
// of rows, each an ordered sequence of column values. Row boundaries are
// preserved across the sandbox boundary.
func (d *DB) Query(query string, params []any) ([][]any, error) {
	rows, err := d.db.Query(query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		scan := make([]any, len(cols))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		// sqlite returns []byte for TEXT in interface scans; normalize so
		// the value survives serialization as a plain string.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// Execute runs a write statement and returns the affected row count.
func (d *DB) Execute(query string, params []any) (int64, error) {
	res, err := d.db.Exec(query, params...)
	if err != nil {
		return 0, fmt.Errorf("execute: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Migrate applies a migration script inside one transaction.
func (d *DB) Migrate(script string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	if _, err := tx.Exec(script); err != nil {
		tx.Rollback()
		return fmt.Errorf("apply migration: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

func (d *DB) Close() error { return d.db.Close() }
