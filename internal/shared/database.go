package shared

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// NewDatabase opens a connection to a SQLite database at the specified path.
//
// The path can be ":memory:" for an in-memory database. A leading "~" is expanded and
// the parent directory of a file database is created when missing.
func NewDatabase(path string) (*sql.DB, error) {
	resolved, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	if !strings.HasPrefix(resolved, ":") {
		if err := os.MkdirAll(filepath.Dir(resolved), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
//
// Values below one are ignored. In-memory databases must stay on a single connection,
// since every new sqlite3 connection to ":memory:" gets its own empty database.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
}
