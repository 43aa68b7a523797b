package db

import (
	"database/sql"
	"io"
	"log/slog"
)

// NewTestDB wraps an already-open pool for tests that manage the connection
// lifecycle themselves. Pool logging is discarded to keep test output clean.
func NewTestDB(sqlDB *sql.DB) *DB {
	return &DB{
		DB:     sqlDB,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
