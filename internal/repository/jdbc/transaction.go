package jdbc

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/repository"
)

// Transaction holds one dedicated pool connection for its whole life.
type Transaction struct {
	db *sql.DB
	id string

	mu     sync.Mutex
	conn   *sql.Conn
	tx     *sql.Tx
	closed bool
}

var _ repository.Transaction = (*Transaction)(nil)

func NewTransaction(db *sql.DB) *Transaction {
	return &Transaction{db: db, id: uuid.NewString()}
}

func (t *Transaction) Begin(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.closed:
		return apperr.New(apperr.KindTransaction, "transaction is closed")
	case t.tx != nil:
		return apperr.New(apperr.KindTransaction, "transaction already begun")
	case t.db == nil:
		return apperr.New(apperr.KindTransaction, "repository is not initialized")
	}

	if t.conn == nil {
		conn, err := t.db.Conn(ctx)
		if err != nil {
			return apperr.Wrap(apperr.KindTransaction, "acquire connection", err)
		}
		t.conn = conn
	}
	tx, err := t.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindTransaction, "begin", err)
	}
	t.tx = tx
	slog.DebugContext(ctx, "repository transaction begun", "tx", t.id)
	return nil
}

func (t *Transaction) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.tx == nil {
		return apperr.New(apperr.KindTransaction, "commit without an active transaction")
	}
	err := t.tx.Commit()
	t.tx = nil
	if err != nil {
		return apperr.Wrap(apperr.KindTransaction, "commit", err)
	}
	slog.Debug("repository transaction committed", "tx", t.id)
	return nil
}

// Rollback aborts the active transaction. Without one it does nothing.
func (t *Transaction) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbackLocked()
}

func (t *Transaction) rollbackLocked() error {
	if t.tx == nil {
		return nil
	}
	err := t.tx.Rollback()
	t.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return apperr.Wrap(apperr.KindTransaction, "rollback", err)
	}
	slog.Debug("repository transaction rolled back", "tx", t.id)
	return nil
}

// Close rolls back an open transaction and returns the connection to the
// pool. Later calls do nothing.
func (t *Transaction) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	if err := t.rollbackLocked(); err != nil {
		slog.Error("unable to rollback repository transaction on close", "tx", t.id, "err", err)
	}
	if t.conn == nil {
		return nil
	}
	conn := t.conn
	t.conn = nil
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		return apperr.Wrap(apperr.KindTransaction, "release connection", err)
	}
	return nil
}

// Conn returns the active transaction, or nil when none is open.
func (t *Transaction) Conn() repository.Querier {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tx == nil {
		return nil
	}
	return t.tx
}
