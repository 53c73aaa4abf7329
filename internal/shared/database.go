package shared

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// NewDatabase opens a connection to the run journal SQLite database at the
// specified path. The path can be ":memory:" for an in-memory database.
func NewDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
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
// The journal is written by a single sequential run, so small pools suffice.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
}
