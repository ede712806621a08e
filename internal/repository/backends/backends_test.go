package backends

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/repository"
	"github.com/tidewire/tidewire/internal/sysconfig"
)

func TestBuiltinIDs(t *testing.T) {
	assert.Equal(t, []string{"postgres", "mysql", "embedded"}, Builtin().IDs())
}

func TestManagerReportsMissingURLForBuiltinBackend(t *testing.T) {
	m := repository.NewManager(Builtin())
	err := m.Initialize(context.Background(), sysconfig.NewSnapshot(map[string]string{
		sysconfig.RepositoryPrefix + sysconfig.RepositorySuffixProvider: "postgres",
	}))
	assert.ErrorIs(t, err, apperr.KindRepoConnectURLMissing)
	assert.Nil(t, m.Instance())
}

func TestManagerReportsUnknownBackend(t *testing.T) {
	m := repository.NewManager(Builtin())
	err := m.Initialize(context.Background(), sysconfig.NewSnapshot(map[string]string{
		sysconfig.RepositoryPrefix + sysconfig.RepositorySuffixProvider: "oracle",
		sysconfig.RepositoryPrefix + sysconfig.RepositorySuffixJDBCURL:  "jdbc:oracle:thin:@db",
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.KindRepoProviderLoad)
}
