package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the query surface shared by the pool and an open transaction, so
// repositories can run standalone or inside an orchestrated unit of work.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxManager runs a whole unit of work inside one transaction, retrying the
// complete unit when the connection was lost before anything reached the
// server. This is the only retry applied at the relational-store boundary.
type TxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTx begins a transaction, runs fn and commits. Any error rolls the
// transaction back and propagates.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return retry.Do(func() error {
		tx, err := m.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if err := fn(ctx, tx); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	},
		retry.Attempts(3),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransientConnError),
		retry.Context(ctx),
	)
}

// isTransientConnError reports connection-loss failures that are safe to
// retry as a whole unit. Business errors and server-side failures are not.
func isTransientConnError(err error) bool {
	if pgconn.SafeToRetry(err) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
