package mysql

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewire/tidewire/internal/repository"
	"github.com/tidewire/tidewire/internal/repository/jdbc"
	"github.com/tidewire/tidewire/internal/sysconfig"
)

func repoContext(values map[string]string) *repository.Context {
	full := make(map[string]string, len(values))
	for k, v := range values {
		full[sysconfig.RepositoryPrefix+k] = v
	}
	return repository.NewContext(sysconfig.NewSnapshot(full))
}

func TestConfig(t *testing.T) {
	cfg, err := Config(repoContext(map[string]string{
		"jdbc.url":                "jdbc:mysql://app@tcp(db:3306)/bootstrap",
		"jdbc.user":               "tidewire",
		"jdbc.password":           "s3cret",
		"jdbc.properties.charset": "utf8mb4",
	}))
	require.NoError(t, err)
	assert.Equal(t, "tidewire", cfg.User)
	assert.Equal(t, "s3cret", cfg.Passwd)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "bootstrap", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, "utf8mb4", cfg.Params["charset"])
}

func TestConfigRejectsInvalidDSN(t *testing.T) {
	_, err := Config(repoContext(map[string]string{"jdbc.url": "tcp(db:3306"}))
	assert.Error(t, err)
}

func TestSchemaExists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(schemaSQL)).WithArgs(repository.SchemaName).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := Handler{}.SchemaExists(context.Background(), db)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestInsertConnectorDetectsDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).WithArgs("A", "com.acme.A").
		WillReturnError(&mysql.MySQLError{Number: errDuplicateEntry, Message: "Duplicate entry 'A'"})
	mock.ExpectExec(regexp.QuoteMeta(insertSQL)).WithArgs("B", "com.acme.B").
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"})
	mock.ExpectRollback()

	tx := jdbc.NewTransaction(db)
	require.NoError(t, tx.Begin(context.Background()))

	inserted, err := Handler{}.InsertConnector(context.Background(), tx.Conn(), "A", "com.acme.A")
	require.NoError(t, err)
	assert.False(t, inserted)

	_, err = Handler{}.InsertConnector(context.Background(), tx.Conn(), "B", "com.acme.B")
	assert.Error(t, err)

	require.NoError(t, tx.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindCurrentConnectorUsesLockingRead(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, short_name, canonical_name, created_at FROM tidewire.connector WHERE short_name = ? LOCK IN SHARE MODE").
		WithArgs("A").
		WillReturnRows(sqlmock.NewRows([]string{"id", "short_name", "canonical_name", "created_at"}).AddRow(int64(3), "A", "com.acme.A", created))
	mock.ExpectRollback()

	tx := jdbc.NewTransaction(db)
	require.NoError(t, tx.Begin(context.Background()))

	rec, err := Handler{}.FindCurrentConnector(context.Background(), tx.Conn(), "A")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "com.acme.A", rec.CanonicalName)

	require.NoError(t, tx.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
