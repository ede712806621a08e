// Package mysql is the MySQL repository backend. The application schema is
// a MySQL database; the configured URL must name a different, existing
// database that holds the migration bookkeeping table.
package mysql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"log/slog"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tidewire/tidewire/internal/repository"
	"github.com/tidewire/tidewire/internal/repository/jdbc"
)

const (
	ID = "mysql"

	migrationsTable = "tidewire_schema_migrations"

	// ER_DUP_ENTRY
	errDuplicateEntry = 1062

	findSQL   = "SELECT " + jdbc.ConnectorColumns + " FROM tidewire.connector WHERE short_name = ?"
	insertSQL = "INSERT INTO tidewire.connector (short_name, canonical_name) VALUES (?, ?)"
	listSQL   = "SELECT " + jdbc.ConnectorColumns + " FROM tidewire.connector ORDER BY short_name"
	schemaSQL = "SELECT COUNT(*) FROM information_schema.SCHEMATA WHERE SCHEMA_NAME = ?"
	createSQL = "CREATE DATABASE IF NOT EXISTS " + repository.SchemaName

	// A locking read sees the latest committed row instead of the
	// REPEATABLE READ snapshot.
	findCurrentSQL = findSQL + " LOCK IN SHARE MODE"
)

//go:embed migrations/*.sql
var migrations embed.FS

func New() repository.Repository {
	return jdbc.New(Handler{})
}

type Handler struct{}

var (
	_ jdbc.Handler       = Handler{}
	_ jdbc.CurrentReader = Handler{}
)

func (Handler) Initialize(ctx context.Context, rc *repository.Context) (*sql.DB, error) {
	cfg, err := Config(rc)
	if err != nil {
		return nil, err
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Config builds the driver configuration. A leading "jdbc:mysql://" is
// accepted and dropped; the connection properties become DSN parameters.
func Config(rc *repository.Context) (*mysql.Config, error) {
	dsn := strings.TrimPrefix(strings.TrimPrefix(rc.JDBCURL(), "jdbc:"), "mysql://")
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	if user := rc.JDBCUser(); user != "" {
		cfg.User = user
	}
	if password := rc.JDBCPassword(); password != "" {
		cfg.Passwd = password
	}
	cfg.ParseTime = true
	for k, v := range rc.JDBCProperties() {
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params[k] = v
	}
	return cfg, nil
}

func (Handler) SchemaExists(ctx context.Context, db *sql.DB) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, schemaSQL, repository.SchemaName).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (Handler) CreateSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createSQL); err != nil {
		return err
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return err
	}
	driver, err := migratemysql.WithConnection(ctx, conn, &migratemysql.Config{MigrationsTable: migrationsTable})
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

func (Handler) FindConnector(ctx context.Context, q repository.Querier, shortName string) (*repository.ConnectorRecord, error) {
	return jdbc.QueryConnector(ctx, q, findSQL, shortName)
}

func (Handler) FindCurrentConnector(ctx context.Context, q repository.Querier, shortName string) (*repository.ConnectorRecord, error) {
	return jdbc.QueryConnector(ctx, q, findCurrentSQL, shortName)
}

func (Handler) InsertConnector(ctx context.Context, q repository.Querier, shortName, canonicalName string) (bool, error) {
	_, err := jdbc.Exec(ctx, q, insertSQL, shortName, canonicalName)
	if err == nil {
		return true, nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == errDuplicateEntry {
		return false, nil
	}
	return false, err
}

func (Handler) ListConnectors(ctx context.Context, q repository.Querier) ([]repository.ConnectorRecord, error) {
	return jdbc.QueryConnectors(ctx, q, listSQL)
}

func (Handler) Shutdown(context.Context, *repository.Context) error {
	return nil
}
