// Package database provides utilities for database operations
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	werrors "github.com/piragazh/feasto-signage/internal/fleetd/errors"
)

// Tx wraps a database transaction
type Tx struct {
	*sql.Tx
}

// TxOptions defines options for transaction execution
type TxOptions struct {
	// Isolation sets the transaction isolation level
	Isolation sql.IsolationLevel
	// ReadOnly indicates if the transaction is read-only
	ReadOnly bool
}

// PoolOptions tunes the connection pool
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to PostgreSQL and verifies the connection
func Open(ctx context.Context, dsn string, pool PoolOptions) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	return db, nil
}

// RunInTx executes a function within a transaction
func RunInTx(ctx context.Context, db *sql.DB, opts *TxOptions, fn func(*Tx) error) error {
	var txOpts *sql.TxOptions
	if opts != nil {
		txOpts = &sql.TxOptions{
			Isolation: opts.Isolation,
			ReadOnly:  opts.ReadOnly,
		}
	}

	tx, err := db.BeginTx(ctx, txOpts)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}

	if err := fn(&Tx{Tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// MapError converts database-specific errors to domain errors. Errors that
// already carry a domain sentinel pass through untouched.
func MapError(err error, op string) error {
	if err == nil {
		return nil
	}

	if werrors.IsNotFound(err) || werrors.IsConflict(err) || werrors.IsInvalidInput(err) || werrors.IsVersionMismatch(err) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return werrors.NewError(werrors.CodeConflict, "resource already exists", op, werrors.ErrConflict)
		case "23503": // foreign_key_violation
			return werrors.NewError(werrors.CodeNotFound, "referenced resource not found", op, werrors.ErrNotFound)
		case "23514": // check_violation
			return werrors.NewError(werrors.CodeInvalidInput, pqErr.Message, op, werrors.ErrInvalidInput)
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return werrors.NewError(werrors.CodeNotFound, "resource not found", op, werrors.ErrNotFound)
	}

	return werrors.NewError(werrors.CodeInternal, "internal database error", op, err)
}

// Conditions accumulates WHERE clauses with numbered placeholders
type Conditions struct {
	clauses []string
	Args    []interface{}
}

// Add appends a clause; each "?" in clause becomes the next placeholder
func (c *Conditions) Add(clause string, args ...interface{}) {
	for _, a := range args {
		c.Args = append(c.Args, a)
		clause = strings.Replace(clause, "?", fmt.Sprintf("$%d", len(c.Args)), 1)
	}
	c.clauses = append(c.clauses, clause)
}

// Where renders the accumulated clauses, or "" when there are none
func (c *Conditions) Where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}

// Next returns the placeholder for one more argument and records it
func (c *Conditions) Next(arg interface{}) string {
	c.Args = append(c.Args, arg)
	return fmt.Sprintf("$%d", len(c.Args))
}
