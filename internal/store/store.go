// Package store holds the SQL for users, items and item uses. Every item and
// use query is scoped to the acting user's id.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so that store functions
// can run standalone or inside a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

var (
	// ErrInvalid is wrapped by all input validation errors.
	ErrInvalid = errors.New("invalid input")
	// ErrUnknownItem is returned when a use references an item that does not exist.
	ErrUnknownItem = errors.New("unknown item")
)

func isForeignKeyViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(sqliteErr.Error(), "FOREIGN KEY")
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func stringArg(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
