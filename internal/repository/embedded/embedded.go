// Package embedded is the repository backend for an in-process database
// engine reached through a registered database/sql driver. Engines of this
// kind keep their files open until told to stop, so Shutdown issues the
// engine's shutdown request after the pool is closed.
package embedded

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/repository"
	"github.com/tidewire/tidewire/internal/repository/jdbc"
)

const (
	ID = "embedded"

	DefaultDriver    = "derby"
	DefaultURLPrefix = "jdbc:derby:"

	// SQL state reported on unique constraint violations.
	stateUniqueViolation = "23505"
	// Vendor code the engine reports for a clean shutdown.
	codeShutdownComplete = 45000

	schemaSQL = "SELECT SCHEMAID FROM SYS.SYSSCHEMAS WHERE SCHEMANAME = 'TIDEWIRE'"
	findSQL   = "SELECT " + jdbc.ConnectorColumns + " FROM TIDEWIRE.CONNECTOR WHERE SHORT_NAME = ?"
	insertSQL = "INSERT INTO TIDEWIRE.CONNECTOR (SHORT_NAME, CANONICAL_NAME) VALUES (?, ?)"
	listSQL   = "SELECT " + jdbc.ConnectorColumns + " FROM TIDEWIRE.CONNECTOR ORDER BY SHORT_NAME"
)

var schemaStatements = []string{
	"CREATE SCHEMA TIDEWIRE",
	"CREATE TABLE TIDEWIRE.CONNECTOR (" +
		"ID BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY, " +
		"SHORT_NAME VARCHAR(255) NOT NULL, " +
		"CANONICAL_NAME VARCHAR(1024) NOT NULL, " +
		"CREATED_AT TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP, " +
		"CONSTRAINT CONNECTOR_SHORT_NAME_KEY UNIQUE (SHORT_NAME))",
}

type Option func(*Handler)

// WithDriver overrides the database/sql driver name. Shutdown is only sent
// when the driver and URL prefix both match.
func WithDriver(name string) Option {
	return func(h *Handler) {
		if strings.TrimSpace(name) != "" {
			h.driver = strings.TrimSpace(name)
		}
	}
}

func WithURLPrefix(prefix string) Option {
	return func(h *Handler) {
		h.prefix = prefix
	}
}

func New(opts ...Option) repository.Repository {
	return jdbc.New(NewHandler(opts...))
}

type Handler struct {
	driver string
	prefix string
}

var _ jdbc.Handler = (*Handler)(nil)

func NewHandler(opts ...Option) *Handler {
	h := &Handler{driver: DefaultDriver, prefix: DefaultURLPrefix}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) driverName(rc *repository.Context) string {
	if d := rc.JDBCDriver(); d != "" {
		return d
	}
	return h.driver
}

func (h *Handler) Initialize(ctx context.Context, rc *repository.Context) (*sql.DB, error) {
	db, err := sql.Open(h.driverName(rc), rc.JDBCURL())
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (h *Handler) SchemaExists(ctx context.Context, db *sql.DB) (bool, error) {
	var id string
	err := db.QueryRowContext(ctx, schemaSQL).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		slog.WarnContext(ctx, "repository schema not found", "schema", "TIDEWIRE")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateSchema runs each schema statement in its own transaction.
func (h *Handler) CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if err := runQuery(ctx, db, stmt); err != nil {
			return apperr.Wrap(apperr.KindSchemaCreate, stmt, err)
		}
	}
	return nil
}

// runQuery executes one statement on a dedicated connection and commits it.
// Row-returning statements are drained and counted.
func runQuery(ctx context.Context, db *sql.DB, query string) (err error) {
	tx := jdbc.NewTransaction(db)
	defer func() {
		if cerr := tx.Close(); cerr != nil {
			slog.WarnContext(ctx, "failed to close schema transaction", "err", cerr)
		}
	}()

	if err := tx.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := tx.Rollback(); rerr != nil {
			slog.ErrorContext(ctx, "unable to rollback schema statement", "query", query, "err", rerr)
		}
	}()

	if isSelect(query) {
		rows, err := tx.Conn().QueryContext(ctx, query)
		if err != nil {
			return err
		}
		n := 0
		for rows.Next() {
			n++
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		if err := rows.Close(); err != nil {
			return err
		}
		slog.DebugContext(ctx, "schema query returned rows", "query", query, "rows", n)
	} else {
		n, err := jdbc.Exec(ctx, tx.Conn(), query)
		if err != nil {
			return err
		}
		slog.DebugContext(ctx, "schema statement executed", "query", query, "rows_affected", n)
	}
	return tx.Commit()
}

func isSelect(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT")
}

func (h *Handler) FindConnector(ctx context.Context, q repository.Querier, shortName string) (*repository.ConnectorRecord, error) {
	return jdbc.QueryConnector(ctx, q, findSQL, shortName)
}

func (h *Handler) InsertConnector(ctx context.Context, q repository.Querier, shortName, canonicalName string) (bool, error) {
	_, err := jdbc.Exec(ctx, q, insertSQL, shortName, canonicalName)
	if err == nil {
		return true, nil
	}
	var se interface{ SQLState() string }
	if errors.As(err, &se) && se.SQLState() == stateUniqueViolation {
		return false, nil
	}
	return false, err
}

func (h *Handler) ListConnectors(ctx context.Context, q repository.Querier) ([]repository.ConnectorRecord, error) {
	return jdbc.QueryConnectors(ctx, q, listSQL)
}

// Shutdown asks the engine to stop. The engine signals a clean stop by
// failing the request with codeShutdownComplete.
func (h *Handler) Shutdown(ctx context.Context, rc *repository.Context) error {
	if rc == nil {
		return nil
	}
	driver, url := h.driverName(rc), rc.JDBCURL()
	if driver != h.driver {
		return nil
	}
	if !strings.HasPrefix(url, h.prefix) {
		slog.WarnContext(ctx, "unexpected embedded repository URL, skipping engine shutdown", "url", url)
		return nil
	}

	shutdownURL := ShutdownURL(url)
	slog.DebugContext(ctx, "shutting down embedded repository engine", "url", shutdownURL)
	db, err := sql.Open(driver, shutdownURL)
	if err != nil {
		return apperr.Wrap(apperr.KindShutdown, shutdownURL, err)
	}
	defer db.Close()

	err = db.PingContext(ctx)
	var ce interface{ ErrorCode() int }
	if err == nil || (errors.As(err, &ce) && ce.ErrorCode() == codeShutdownComplete) {
		slog.InfoContext(ctx, "embedded repository engine stopped")
		return nil
	}
	return apperr.Wrap(apperr.KindShutdown, shutdownURL, err)
}

// ShutdownURL keeps the URL up to and including its first ';' and appends
// the shutdown attribute.
func ShutdownURL(url string) string {
	if i := strings.IndexByte(url, ';'); i >= 0 {
		return url[:i+1] + "shutdown=true"
	}
	return fmt.Sprintf("%s;shutdown=true", url)
}
