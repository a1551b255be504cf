// Package db provides the SQLite connection and small database/sql helpers
// shared by the catalog store and its callers.
package db

import (
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite" // SQLite driver
)

// Open opens the catalog database at the given path.
// The file must already exist: schema creation and migration are owned by an
// external mechanism, not by the server.
func Open(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database file %s: %w", path, err)
	}
	return open(path)
}

// OpenForTest opens (and creates if necessary) a database at the given path.
// Intended for tests and tooling only.
func OpenForTest(path string) (*sql.DB, error) {
	return open(path)
}

func open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single writer keeps transaction semantics simple; SQLite serializes
	// writes anyway and the modernc driver is not safe for concurrent
	// write transactions on separate connections.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
