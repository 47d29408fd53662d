package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTransactionManager opens read-committed transactions on a pool.
// Each transaction gets a local lock_timeout so a bid that queues behind a
// locked listing row fails instead of hanging the request.
type PostgresTransactionManager struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresTransactionManager returns a manager for pool. A zero
// lockTimeout leaves the server default in place.
func NewPostgresTransactionManager(pool *pgxpool.Pool, lockTimeout time.Duration) *PostgresTransactionManager {
	return &PostgresTransactionManager{pool: pool, lockTimeout: lockTimeout}
}

func (m *PostgresTransactionManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	if m.lockTimeout <= 0 {
		return tx, nil
	}

	// set_config with is_local=true is SET LOCAL with a bind parameter
	setting := fmt.Sprintf("%dms", m.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", setting); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to set lock timeout: %w", err)
	}
	return tx, nil
}

// RunInTx runs fn inside a transaction from m and commits when fn returns nil.
// Any error from fn rolls the transaction back and is returned unchanged.
func RunInTx(ctx context.Context, m TransactionManager, fn func(tx pgx.Tx) error) error {
	tx, err := m.BeginTx(ctx)
	if err != nil {
		return err
	}
	// no-op once committed
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
