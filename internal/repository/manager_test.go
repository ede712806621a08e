package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/provider"
	"github.com/tidewire/tidewire/internal/sysconfig"
)

type stubRepository struct {
	initErr     error
	shutdownErr error
	inits       atomic.Int32
	shutdowns   atomic.Int32
	rc          *Context
}

func (s *stubRepository) Transaction() Transaction { return &fakeTx{} }

func (s *stubRepository) Initialize(_ context.Context, rc *Context) error {
	s.inits.Add(1)
	s.rc = rc
	return s.initErr
}

func (s *stubRepository) RegisterConnector(context.Context, string, string) error { return nil }

func (s *stubRepository) FindConnector(context.Context, string) (*ConnectorRecord, error) {
	return nil, nil
}

func (s *stubRepository) ListConnectors(context.Context) ([]ConnectorRecord, error) {
	return nil, nil
}

func (s *stubRepository) Shutdown(context.Context) error {
	s.shutdowns.Add(1)
	return s.shutdownErr
}

func stubRegistry(repos ...*stubRepository) *provider.Registry[Repository] {
	reg := provider.NewRegistry[Repository]("test repositories")
	var next atomic.Int32
	reg.MustRegister("stub", func() (Repository, error) {
		i := int(next.Add(1)) - 1
		if i >= len(repos) {
			return nil, errors.New("no more stub repositories")
		}
		return repos[i], nil
	})
	return reg
}

func repoSnapshot(values map[string]string) *sysconfig.Snapshot {
	base := map[string]string{
		"tidewire.repository.provider": "stub",
		"tidewire.repository.jdbc.url": "stub://repo",
	}
	for k, v := range values {
		base[k] = v
	}
	return sysconfig.NewSnapshot(base)
}

func TestManagerInitialize_ConfigurationErrors(t *testing.T) {
	cases := []struct {
		name   string
		values map[string]string
		kind   apperr.Kind
	}{
		{name: "provider missing", values: map[string]string{"tidewire.repository.provider": " "}, kind: apperr.KindRepoProviderMissing},
		{name: "provider unknown", values: map[string]string{"tidewire.repository.provider": "oracle"}, kind: apperr.KindRepoProviderLoad},
		{name: "url missing", values: map[string]string{"tidewire.repository.jdbc.url": ""}, kind: apperr.KindRepoConnectURLMissing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewManager(stubRegistry(&stubRepository{}))
			err := m.Initialize(context.Background(), repoSnapshot(tc.values))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			assert.Nil(t, m.Instance())
		})
	}
}

func TestManagerInitialize_BackendFailure(t *testing.T) {
	cause := errors.New("connection refused")
	m := NewManager(stubRegistry(&stubRepository{initErr: cause}))

	err := m.Initialize(context.Background(), repoSnapshot(nil))
	assert.ErrorIs(t, err, apperr.KindRepoInit)
	assert.ErrorIs(t, err, cause)
	assert.Nil(t, m.Instance())

	classified := apperr.New(apperr.KindSchemaCreate, "CREATE TABLE")
	m = NewManager(stubRegistry(&stubRepository{initErr: classified}))
	err = m.Initialize(context.Background(), repoSnapshot(nil))
	assert.ErrorIs(t, err, apperr.KindSchemaCreate)
	assert.NotErrorIs(t, err, apperr.KindRepoInit)
}

func TestManagerInitialize_SecondScopeResolves(t *testing.T) {
	stub := &stubRepository{}
	chain := provider.Chain[Repository]{provider.NewRegistry[Repository]("builtin"), stubRegistry(stub)}
	m := NewManager(chain)

	require.NoError(t, m.Initialize(context.Background(), repoSnapshot(nil)))
	assert.Same(t, stub, m.Instance())
	assert.Equal(t, "stub://repo", m.Context().JDBCURL())
}

func TestManagerInitialize_Idempotent(t *testing.T) {
	first := &stubRepository{}
	m := NewManager(stubRegistry(first, &stubRepository{}))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Initialize(context.Background(), repoSnapshot(nil)))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), first.inits.Load())
	assert.Same(t, first, m.Instance())
}

func TestManagerShutdown_ClearsInstance(t *testing.T) {
	first, second := &stubRepository{}, &stubRepository{}
	m := NewManager(stubRegistry(first, second))

	assert.Nil(t, m.Instance())
	assert.Nil(t, m.Context())
	require.NoError(t, m.Shutdown(context.Background()))

	require.NoError(t, m.Initialize(context.Background(), repoSnapshot(nil)))
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, int32(1), first.shutdowns.Load())
	assert.Nil(t, m.Instance())

	require.NoError(t, m.Initialize(context.Background(), repoSnapshot(map[string]string{"tidewire.repository.jdbc.url": "stub://other"})))
	assert.Same(t, second, m.Instance())
	assert.Equal(t, "stub://other", second.rc.JDBCURL())
}

func TestManagerShutdown_WrapsFailure(t *testing.T) {
	m := NewManager(stubRegistry(&stubRepository{shutdownErr: errors.New("busy")}))
	require.NoError(t, m.Initialize(context.Background(), repoSnapshot(nil)))

	err := m.Shutdown(context.Background())
	assert.ErrorIs(t, err, apperr.KindShutdown)
	assert.Nil(t, m.Instance())
}
