// Package jdbc implements repository.Repository on database/sql. Engine
// specific SQL lives behind the Handler interface.
package jdbc

import (
	"context"
	"database/sql"

	"github.com/tidewire/tidewire/internal/repository"
)

// Handler adapts the generic repository to one database engine.
type Handler interface {
	// Initialize opens the connection pool described by rc.
	Initialize(ctx context.Context, rc *repository.Context) (*sql.DB, error)
	// SchemaExists reports whether the application schema is present. An
	// absent schema is not an error.
	SchemaExists(ctx context.Context, db *sql.DB) (bool, error)
	CreateSchema(ctx context.Context, db *sql.DB) error
	// FindConnector returns nil when no record has shortName.
	FindConnector(ctx context.Context, q repository.Querier, shortName string) (*repository.ConnectorRecord, error)
	// InsertConnector reports false when a record with shortName already
	// exists, for instance one committed concurrently by another process.
	InsertConnector(ctx context.Context, q repository.Querier, shortName, canonicalName string) (bool, error)
	ListConnectors(ctx context.Context, q repository.Querier) ([]repository.ConnectorRecord, error)
	// Shutdown runs after the pool is closed.
	Shutdown(ctx context.Context, rc *repository.Context) error
}

// CurrentReader is implemented by handlers whose plain reads stay on the
// snapshot taken by the first read of a transaction. FindCurrentConnector
// must see rows committed by other transactions since then; it is used to
// re-read a record after losing an insert race.
type CurrentReader interface {
	FindCurrentConnector(ctx context.Context, q repository.Querier, shortName string) (*repository.ConnectorRecord, error)
}
