// Package sqlstore implements storage.Store over database/sql. Queries are
// written with ? bind markers; a Rebinder adapts them to the driver.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmynk/fairshare/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Rebinder rewrites a query's ? bind markers for a driver.
type Rebinder func(query string) string

// Question leaves ? markers as they are (SQLite).
func Question(query string) string { return query }

// Dollar rewrites ? markers as $1, $2, ... (PostgreSQL).
func Dollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repo implements storage.Repository over a querier.
type repo struct {
	q      querier
	rebind Rebinder
}

func (r *repo) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.rebind(query), args...)
}

func (r *repo) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, r.rebind(query), args...)
}

func (r *repo) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, r.rebind(query), args...)
}

// Store is a storage.Store backed by a SQL database whose schema has already
// been migrated. Calls outside Atomic run in their own implicit transaction.
type Store struct {
	*repo
	db *sql.DB
}

// New wraps db.
func New(db *sql.DB, rebind Rebinder) *Store {
	return &Store{repo: &repo{q: db, rebind: rebind}, db: db}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB { return s.db }

// Atomic runs fn inside a transaction, committing if fn succeeds.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &repo{q: tx, rebind: s.rebind}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// View runs fn inside a transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, repo storage.Repository) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(ctx, &repo{q: tx, rebind: s.rebind})
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
