// Package databasetest provides in-memory stand-ins for pgx transactions.
package databasetest

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
)

// FakeTx is a pgx.Tx for unit tests that only records Commit and Rollback.
// Any other method panics through the nil embedded interface.
type FakeTx struct {
	pgx.Tx

	mu        sync.Mutex
	Commits   int
	Rollbacks int
	CommitErr error
	committed bool
}

func (t *FakeTx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.CommitErr != nil {
		return t.CommitErr
	}
	t.Commits++
	t.committed = true
	return nil
}

// Rollback mirrors pgx: after a commit it is a no-op that returns ErrTxClosed.
func (t *FakeTx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.Rollbacks++
	return nil
}

// FakeTxManager hands out FakeTx values and keeps them for inspection.
type FakeTxManager struct {
	mu       sync.Mutex
	BeginErr error
	Txs      []*FakeTx
}

func (m *FakeTxManager) BeginTx(context.Context) (pgx.Tx, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	tx := &FakeTx{}
	m.Txs = append(m.Txs, tx)
	return tx, nil
}

// Committed counts transactions that reached Commit.
func (m *FakeTxManager) Committed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, tx := range m.Txs {
		tx.mu.Lock()
		if tx.Commits > 0 {
			n++
		}
		tx.mu.Unlock()
	}
	return n
}
