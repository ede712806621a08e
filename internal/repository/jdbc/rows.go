package jdbc

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tidewire/tidewire/internal/repository"
)

// ConnectorColumns is the select list scanned by QueryConnector and
// QueryConnectors.
const ConnectorColumns = "id, short_name, canonical_name, created_at"

var errNoTransaction = errors.New("no active transaction")

// QueryConnector scans at most one connector row. It returns nil when the
// query matches nothing.
func QueryConnector(ctx context.Context, q repository.Querier, query string, args ...any) (*repository.ConnectorRecord, error) {
	if q == nil {
		return nil, errNoTransaction
	}
	var rec repository.ConnectorRecord
	err := q.QueryRowContext(ctx, query, args...).Scan(&rec.ID, &rec.ShortName, &rec.CanonicalName, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func QueryConnectors(ctx context.Context, q repository.Querier, query string, args ...any) ([]repository.ConnectorRecord, error) {
	if q == nil {
		return nil, errNoTransaction
	}
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]repository.ConnectorRecord, 0)
	for rows.Next() {
		var rec repository.ConnectorRecord
		if err := rows.Scan(&rec.ID, &rec.ShortName, &rec.CanonicalName, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Exec runs a statement and reports how many rows it touched.
func Exec(ctx context.Context, q repository.Querier, query string, args ...any) (int64, error) {
	if q == nil {
		return 0, errNoTransaction
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
