package database

import (
	"context"
	"database/sql"
)

// DBTX defines the database operations needed by repositories.
// Every counter mutation is a single conditional statement, so repositories
// never need an explicit transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	GetDialect() Dialect
}

var _ DBTX = (*DB)(nil)
