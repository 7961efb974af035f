// Package db provides the SQLite connection and schema-migration helpers
// shared by the persistent and ephemeral stores.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Driver is the database/sql driver name used for every StickFix store.
const Driver = "sqlite3"

// Open opens a database at dsn (a file path DSN in production, or
// ":memory:" in tests) using driver, and verifies the connection is
// usable. StickFix only ships the sqlite3 driver today, but the driver
// name travels with the DSN (spec.md §6) so a store config can name
// either explicitly.
func Open(driver, dsn string) (*sql.DB, error) {
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// The precondition-checked CRUD layer relies on read-your-write
	// consistency across a single transaction; SQLite only gives us that
	// with one writer at a time.
	conn.SetMaxOpenConns(1)
	return conn, nil
}
