package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tidewire/tidewire/internal/metrics"
)

// WithTransaction runs fn inside a new transaction from f. The transaction
// is committed when fn succeeds, rolled back when fn fails or panics, and
// closed on every path. Rollback and close failures are logged and never
// replace the error that caused them.
func WithTransaction(ctx context.Context, f TransactionFactory, fn func(q Querier) error) (err error) {
	tx := f.Transaction()
	defer func() {
		if cerr := tx.Close(); cerr != nil {
			slog.WarnContext(ctx, "failed to close repository transaction", "err", cerr)
		}
	}()
	defer func() {
		if rec := recover(); rec != nil {
			rollback(ctx, tx)
			panic(rec)
		}
	}()

	if err := tx.Begin(ctx); err != nil {
		rollback(ctx, tx)
		return err
	}
	if err := fn(tx.Conn()); err != nil {
		rollback(ctx, tx)
		return err
	}
	if err := tx.Commit(); err != nil {
		rollback(ctx, tx)
		return fmt.Errorf("commit: %w", err)
	}
	metrics.RepositoryTransactionsTotal.WithLabelValues(metrics.OutcomeCommitted).Inc()
	return nil
}

func rollback(ctx context.Context, tx Transaction) {
	metrics.RepositoryTransactionsTotal.WithLabelValues(metrics.OutcomeRolledBack).Inc()
	if err := tx.Rollback(); err != nil {
		slog.ErrorContext(ctx, "unable to rollback repository transaction", "err", err)
	}
}
