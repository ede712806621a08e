// Package repository defines the transactional metadata store and the
// manager that selects and initializes its backend.
package repository

import (
	"context"
	"database/sql"
	"time"
)

// SchemaName is the application schema that holds repository tables.
const SchemaName = "tidewire"

// Querier is the statement surface of an open transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Transaction is a unit of work bound to one connection. The connection is
// owned by the transaction and must not be used after Close.
type Transaction interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	// Close releases the connection, rolling back first if the transaction
	// is still open. It is safe to call more than once.
	Close() error
	// Conn returns the statement surface, or nil outside Begin/Commit.
	Conn() Querier
}

// TransactionFactory hands out new, unstarted transactions.
type TransactionFactory interface {
	Transaction() Transaction
}

// ConnectorRecord is the persisted identity of a registered connector.
type ConnectorRecord struct {
	ID            int64     `json:"id"`
	ShortName     string    `json:"short_name"`
	CanonicalName string    `json:"canonical_name"`
	CreatedAt     time.Time `json:"created_at"`
}

// Repository is the capability the rest of the system uses to persist
// metadata.
type Repository interface {
	TransactionFactory

	// Initialize connects the backend and creates the schema when the
	// context asks for it and it is missing.
	Initialize(ctx context.Context, rc *Context) error
	// RegisterConnector records shortName as belonging to canonicalName. It
	// is idempotent for the same pair and fails with a connector conflict
	// when shortName is already bound to another canonical name.
	RegisterConnector(ctx context.Context, shortName, canonicalName string) error
	// FindConnector returns nil when no record exists.
	FindConnector(ctx context.Context, shortName string) (*ConnectorRecord, error)
	ListConnectors(ctx context.Context) ([]ConnectorRecord, error)
	Shutdown(ctx context.Context) error
}
