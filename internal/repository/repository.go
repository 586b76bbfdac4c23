// Package repository contains the data access layer: hand-written SQL over a
// database/sql pool using the pgx stdlib driver. One file per aggregate.
// Multi-step state transitions are expressed as single transactions here so
// that the service layer never sees a partially-applied change.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Queries provides access to all persistent entities.
type Queries struct {
	db *sql.DB
}

// New creates a Queries bound to the given database pool.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// withTx runs fn inside a transaction, rolling back on error.
func (q *Queries) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// uniqueViolationCode is the Postgres error code for unique constraint
// violations.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation.
// When constraint is non-empty, the violated constraint must match it.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// foreignKeyViolationCode is the Postgres error code for foreign key
// constraint violations.
const foreignKeyViolationCode = "23503"

// IsForeignKeyViolation reports whether err is a foreign key violation,
// meaning a referenced row does not exist.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolationCode
}

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = sql.ErrNoRows
