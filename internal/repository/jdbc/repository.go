package jdbc

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/metrics"
	"github.com/tidewire/tidewire/internal/repository"
)

// Repository is a repository.Repository over a database/sql pool.
type Repository struct {
	handler Handler

	mu sync.RWMutex
	db *sql.DB
	rc *repository.Context
}

var _ repository.Repository = (*Repository)(nil)

func New(h Handler) *Repository {
	return &Repository{handler: h}
}

// Initialize opens the pool and ensures the schema. Calling it again after
// a successful call logs a warning and does nothing.
func (r *Repository) Initialize(ctx context.Context, rc *repository.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db != nil {
		slog.WarnContext(ctx, "repository already initialized")
		return nil
	}
	if rc == nil {
		return apperr.New(apperr.KindRepoInit, "missing repository context")
	}

	db, err := r.handler.Initialize(ctx, rc)
	if err != nil {
		if apperr.Classified(err) {
			return err
		}
		return apperr.Wrap(apperr.KindRepoInit, rc.JDBCURL(), err)
	}

	if err := r.ensureSchema(ctx, db, rc); err != nil {
		closeDB(ctx, db)
		if shutdownErr := r.handler.Shutdown(ctx, rc); shutdownErr != nil {
			slog.WarnContext(ctx, "failed to shut down repository after initialization error", "err", shutdownErr)
		}
		return err
	}

	r.db = db
	r.rc = rc
	slog.InfoContext(ctx, "repository initialized", "repository", rc)
	return nil
}

func (r *Repository) ensureSchema(ctx context.Context, db *sql.DB, rc *repository.Context) error {
	exists, err := r.handler.SchemaExists(ctx, db)
	if err != nil {
		return apperr.Wrap(apperr.KindSchemaLookup, repository.SchemaName, err)
	}
	if exists {
		return nil
	}
	if !rc.CreateSchema() {
		slog.WarnContext(ctx, "repository schema does not exist and schema creation is disabled", "schema", repository.SchemaName)
		return nil
	}

	slog.InfoContext(ctx, "creating repository schema", "schema", repository.SchemaName)
	if err := r.handler.CreateSchema(ctx, db); err != nil {
		if apperr.Classified(err) {
			return err
		}
		return apperr.Wrap(apperr.KindSchemaCreate, repository.SchemaName, err)
	}
	return nil
}

// Transaction returns a new transaction on the current pool. Before
// Initialize, Begin fails.
func (r *Repository) Transaction() repository.Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return NewTransaction(r.db)
}

func (r *Repository) RegisterConnector(ctx context.Context, shortName, canonicalName string) error {
	outcome := metrics.OutcomeError
	defer func() {
		metrics.ConnectorRegistrationsTotal.WithLabelValues(outcome).Inc()
	}()

	identity := fmt.Sprintf("(%s:%s)", shortName, canonicalName)
	err := repository.WithTransaction(ctx, r, func(q repository.Querier) error {
		existing, err := r.handler.FindConnector(ctx, q, shortName)
		if err != nil {
			return err
		}
		if existing == nil {
			inserted, err := r.handler.InsertConnector(ctx, q, shortName, canonicalName)
			if err != nil {
				return err
			}
			if inserted {
				outcome = metrics.OutcomeRegistered
				slog.InfoContext(ctx, "connector registered", "short_name", shortName, "canonical_name", canonicalName)
				return nil
			}
			existing, err = r.findCurrent(ctx, q, shortName)
			if err != nil {
				return err
			}
			if existing == nil {
				return fmt.Errorf("connector %s disappeared after a conflicting insert", shortName)
			}
		}

		if existing.CanonicalName != canonicalName {
			outcome = metrics.OutcomeConflict
			return apperr.New(apperr.KindConnectorConflict,
				fmt.Sprintf("%s != (%s:%s)", identity, existing.ShortName, existing.CanonicalName))
		}
		outcome = metrics.OutcomeExisting
		slog.InfoContext(ctx, "connector already registered", "short_name", shortName, "canonical_name", canonicalName)
		return nil
	})
	if err != nil {
		if outcome != metrics.OutcomeConflict {
			outcome = metrics.OutcomeError
		}
		if apperr.Classified(err) {
			return err
		}
		return apperr.Wrap(apperr.KindRegistration, identity, err)
	}
	return nil
}

func (r *Repository) findCurrent(ctx context.Context, q repository.Querier, shortName string) (*repository.ConnectorRecord, error) {
	if cr, ok := r.handler.(CurrentReader); ok {
		return cr.FindCurrentConnector(ctx, q, shortName)
	}
	return r.handler.FindConnector(ctx, q, shortName)
}

func (r *Repository) FindConnector(ctx context.Context, shortName string) (*repository.ConnectorRecord, error) {
	var out *repository.ConnectorRecord
	err := repository.WithTransaction(ctx, r, func(q repository.Querier) error {
		rec, err := r.handler.FindConnector(ctx, q, shortName)
		out = rec
		return err
	})
	if err != nil {
		if apperr.Classified(err) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindQuery, shortName, err)
	}
	return out, nil
}

func (r *Repository) ListConnectors(ctx context.Context) ([]repository.ConnectorRecord, error) {
	var out []repository.ConnectorRecord
	err := repository.WithTransaction(ctx, r, func(q repository.Querier) error {
		recs, err := r.handler.ListConnectors(ctx, q)
		out = recs
		return err
	})
	if err != nil {
		if apperr.Classified(err) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.KindQuery, "list connectors", err)
	}
	return out, nil
}

// Shutdown closes the pool and lets the handler stop its engine. It is a
// no-op before Initialize.
func (r *Repository) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	db, rc := r.db, r.rc
	r.db, r.rc = nil, nil
	r.mu.Unlock()

	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		slog.WarnContext(ctx, "failed to close repository pool", "err", err)
	}
	if err := r.handler.Shutdown(ctx, rc); err != nil {
		if apperr.Classified(err) {
			return err
		}
		return apperr.Wrap(apperr.KindShutdown, rc.JDBCURL(), err)
	}
	slog.InfoContext(ctx, "repository shut down")
	return nil
}

func closeDB(ctx context.Context, db *sql.DB) {
	if err := db.Close(); err != nil {
		slog.WarnContext(ctx, "failed to close repository pool", "err", err)
	}
}
