// Package repository provides data access layer implementations for the
// paysync service.
package repository

import (
	"context"
	"database/sql"
)

// Querier is the subset of database operations repositories need. Both
// *db.DB and *sql.Tx satisfy it, so repositories can run inside an explicit
// transaction when a caller requires it.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
