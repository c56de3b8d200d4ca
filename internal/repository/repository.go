// Package repository implements all database queries for the NSC backend.
// It uses pgx directly (no ORM) so every statement is visible where it runs.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("already exists")

// ErrInvalidReference is returned when a write points at a row that does not exist.
var ErrInvalidReference = errors.New("referenced record does not exist")

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx, so every query method works
// both standalone and inside a transaction.
type DBTX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries groups every statement the service issues.
type Queries struct {
	db DBTX
}

// New constructs Queries over a pool or a transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Store owns the pool and hands out transactional Queries.
type Store struct {
	*Queries
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Queries: New(pool), pool: pool}
}

// InTx runs fn inside a transaction. The transaction commits when fn returns
// nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(q *Queries) error) error {
	return s.Queries.inTx(ctx, fn)
}

// inTx begins a transaction on q's handle. Called on a Queries that is
// already transactional, it opens a savepoint.
func (q *Queries) inTx(ctx context.Context, fn func(q *Queries) error) (err error) {
	tx, err := q.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Ensure the transaction is always resolved.
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(New(tx)); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// mapErr translates driver errors into the package sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
		case "22P02":
			// A malformed uuid names no row.
			return ErrNotFound
		}
	}
	return err
}

// wrap maps err and prefixes it with the failing operation, keeping the
// sentinel reachable via errors.Is.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	mapped := mapErr(err)
	if errors.Is(mapped, ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, mapped)
}

// nullable turns an empty string into a SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// collect drains rows with scan into a slice.
func collect[T any](rows pgx.Rows, scan func(row pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
