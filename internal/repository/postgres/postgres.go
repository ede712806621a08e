// Package postgres is the PostgreSQL repository backend.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/tidewire/tidewire/internal/repository"
	"github.com/tidewire/tidewire/internal/repository/jdbc"
)

const (
	ID = "postgres"

	migrationsTable = "tidewire_schema_migrations"

	findSQL   = "SELECT " + jdbc.ConnectorColumns + " FROM tidewire.connector WHERE short_name = $1"
	insertSQL = "INSERT INTO tidewire.connector (short_name, canonical_name) VALUES ($1, $2) ON CONFLICT (short_name) DO NOTHING"
	listSQL   = "SELECT " + jdbc.ConnectorColumns + " FROM tidewire.connector ORDER BY short_name"
	schemaSQL = "SELECT EXISTS (SELECT 1 FROM pg_namespace WHERE nspname = $1)"
)

//go:embed migrations/*.sql
var migrations embed.FS

// New returns a repository backed by PostgreSQL through a pgx pool.
func New() repository.Repository {
	return jdbc.New(&Handler{})
}

type Handler struct {
	pool *pgxpool.Pool
}

var _ jdbc.Handler = (*Handler)(nil)

func (h *Handler) Initialize(ctx context.Context, rc *repository.Context) (*sql.DB, error) {
	cfg, err := pgxpool.ParseConfig(ConnString(rc))
	if err != nil {
		return nil, err
	}
	if user := rc.JDBCUser(); user != "" {
		cfg.ConnConfig.User = user
	}
	if password := rc.JDBCPassword(); password != "" {
		cfg.ConnConfig.Password = password
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	h.pool = pool
	return stdlib.OpenDBFromPool(pool), nil
}

func (h *Handler) SchemaExists(ctx context.Context, db *sql.DB) (bool, error) {
	var exists bool
	if err := db.QueryRowContext(ctx, schemaSQL, repository.SchemaName).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateSchema applies the embedded migrations on a dedicated connection.
func (h *Handler) CreateSchema(ctx context.Context, db *sql.DB) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	driver, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{MigrationsTable: migrationsTable})
	if err != nil {
		_ = conn.Close()
		return err
	}
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		_ = driver.Close()
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, ID, driver)
	if err != nil {
		_ = src.Close()
		_ = driver.Close()
		return err
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.WarnContext(ctx, "failed to close schema migrator", "source_err", srcErr, "db_err", dbErr)
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.InfoContext(ctx, "no schema changes to apply")
			return nil
		}
		return err
	}
	slog.InfoContext(ctx, "schema migrations applied successfully")
	return nil
}

func (h *Handler) FindConnector(ctx context.Context, q repository.Querier, shortName string) (*repository.ConnectorRecord, error) {
	return jdbc.QueryConnector(ctx, q, findSQL, shortName)
}

func (h *Handler) InsertConnector(ctx context.Context, q repository.Querier, shortName, canonicalName string) (bool, error) {
	n, err := jdbc.Exec(ctx, q, insertSQL, shortName, canonicalName)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (h *Handler) ListConnectors(ctx context.Context, q repository.Querier) ([]repository.ConnectorRecord, error) {
	return jdbc.QueryConnectors(ctx, q, listSQL)
}

func (h *Handler) Shutdown(context.Context, *repository.Context) error {
	if h.pool != nil {
		h.pool.Close()
		h.pool = nil
	}
	return nil
}

// ConnString turns the configured URL into a pgx connection string. A
// leading "jdbc:" is dropped and the connection properties are merged in,
// as query parameters for URLs or as key=value pairs for keyword strings.
func ConnString(rc *repository.Context) string {
	raw := strings.TrimPrefix(rc.JDBCURL(), "jdbc:")
	props := rc.JDBCProperties()
	if len(props) == 0 {
		return raw
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		u, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		q := u.Query()
		for _, k := range keys {
			q.Set(k, props[k])
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	var b strings.Builder
	b.WriteString(raw)
	for _, k := range keys {
		b.WriteString(" ")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(quoteKeyword(props[k]))
	}
	return strings.TrimSpace(b.String())
}

func quoteKeyword(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
