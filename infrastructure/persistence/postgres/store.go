// Package postgres implements the persistence ports on PostgreSQL via pgx.
// Uniqueness rules the DynamoDB driver enforces with claim rows map to plain
// unique constraints here.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	pkgerrors "tutormatch-backend/pkg/errors"
)

const pgUniqueViolationCode = "23505"

// Connect opens a connection pool and verifies it with a ping
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// mapWriteError turns a unique-constraint rejection into the conflict error
// callers branch on; anything else surfaces as a database error
func mapWriteError(err error, operation, conflictMessage string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
		return pkgerrors.NewConflictError(conflictMessage)
	}
	return pkgerrors.NewDatabaseError(operation, err)
}
