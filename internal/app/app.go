// Package app owns the process-wide application context: the configuration
// loader, the repository manager and the connector manager, built once and
// passed explicitly to the commands that need them.
package app

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tidewire/tidewire/internal/apperr"
	"github.com/tidewire/tidewire/internal/connectors"
	"github.com/tidewire/tidewire/internal/connectors/builtin"
	"github.com/tidewire/tidewire/internal/http/handlers"
	"github.com/tidewire/tidewire/internal/provider"
	"github.com/tidewire/tidewire/internal/repository"
	"github.com/tidewire/tidewire/internal/repository/backends"
	"github.com/tidewire/tidewire/internal/sync"
	"github.com/tidewire/tidewire/internal/sysconfig"
	"github.com/tidewire/tidewire/internal/sysconfig/providers"
)

// Options configures New. The ambient registries are consulted after the
// built-in ones, so an embedding program can add implementations without
// shadowing the shipped ones.
type Options struct {
	ConfigProviders *provider.Registry[sysconfig.Provider]
	Repositories    *provider.Registry[repository.Repository]
	Connectors      *provider.Registry[connectors.Connector]

	// ApplicationScope replaces the descriptors embedded in the binary.
	ApplicationScope connectors.Scope
	// ConnectorPath lists descriptor directories taken from the process
	// environment. Directories named by tidewire.connector.path are added
	// at discovery time.
	ConnectorPath []string

	LogApplier sysconfig.LogApplier
	LookupEnv  func(string) (string, bool)
	Reporter   sync.Reporter
}

// App is the application context.
type App struct {
	Config     *sysconfig.Loader
	Repository *repository.Manager
	Connectors *connectors.Manager

	registration *sync.RegistrationRunner
}

// New builds the application context. Nothing is initialized yet.
func New(opts Options) *App {
	loaderOpts := []sysconfig.Option{sysconfig.WithLookupEnv(opts.LookupEnv)}
	if opts.LogApplier != nil {
		loaderOpts = append(loaderOpts, sysconfig.WithLogApplier(opts.LogApplier))
	}
	loader := sysconfig.NewLoader(
		provider.Chain[sysconfig.Provider]{providers.Builtin(), opts.ConfigProviders},
		loaderOpts...,
	)

	repos := repository.NewManager(provider.Chain[repository.Repository]{backends.Builtin(), opts.Repositories})

	appScope := opts.ApplicationScope
	if appScope == nil {
		appScope = builtin.Scope()
	}
	conns := connectors.NewManager(
		provider.Chain[connectors.Connector]{builtin.Registry(), opts.Connectors},
		appScope,
		connectors.NewDirScope("environment", opts.ConnectorPath...),
		&configuredScope{loader: loader},
	)

	reporter := opts.Reporter
	if reporter == nil {
		reporter = &sync.LogReporter{}
	}

	return &App{
		Config:     loader,
		Repository: repos,
		Connectors: conns,
		registration: &sync.RegistrationRunner{
			Catalog:   conns,
			Registrar: managedRepository{m: repos},
			Reporter:  reporter,
		},
	}
}

// Initialize brings the system up in dependency order: configuration,
// repository, connector discovery and connector registration. Connector
// conflicts are logged and reported but do not fail startup.
func (a *App) Initialize(ctx context.Context) (sync.RegistrationReport, error) {
	if err := a.InitRepository(ctx); err != nil {
		return sync.RegistrationReport{}, err
	}
	if err := a.Connectors.Initialize(ctx); err != nil {
		return sync.RegistrationReport{}, err
	}
	report, err := a.registration.Run(ctx)
	if err != nil {
		return report, err
	}
	if len(report.Conflicts) > 0 {
		slog.WarnContext(ctx, "connectors skipped because of registration conflicts", "conflicts", len(report.Conflicts))
	}
	return report, nil
}

// InitConfig initializes the configuration loader.
func (a *App) InitConfig(ctx context.Context) error {
	return a.Config.Initialize(ctx)
}

// InitRepository initializes configuration and then the repository.
func (a *App) InitRepository(ctx context.Context) error {
	if err := a.InitConfig(ctx); err != nil {
		return err
	}
	return a.Repository.Initialize(ctx, a.Config.Snapshot())
}

// InitConnectors initializes configuration and then runs discovery. The
// repository is not touched.
func (a *App) InitConnectors(ctx context.Context) error {
	if err := a.InitConfig(ctx); err != nil {
		return err
	}
	return a.Connectors.Initialize(ctx)
}

// Ready reports whether the repository is open and discovery has loaded at
// least one connector.
func (a *App) Ready(context.Context) error {
	if a.Repository.Instance() == nil {
		return errRepositoryNotInitialized
	}
	if len(a.Connectors.Descriptors()) == 0 {
		return apperr.New(apperr.KindNoConnectorsFound, "discovery has not completed")
	}
	return nil
}

// Registration returns the runner that registers every discovered connector.
func (a *App) Registration() *sync.RegistrationRunner {
	return a.registration
}

// Handlers returns the HTTP handlers over the application context. A nil
// syncer disables manual resync.
func (a *App) Handlers(syncer handlers.SyncRunner) *handlers.Handlers {
	return &handlers.Handlers{
		Catalog: a.Connectors,
		Store:   managedRepository{m: a.Repository},
		Config:  a.Config,
		Syncer:  syncer,
	}
}

// Shutdown stops the repository, the connector manager and the
// configuration provider, in reverse start order. Every step runs; the
// failures are joined.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Repository.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	a.Connectors.Destroy()
	if err := a.Config.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// configuredScope searches the directories named by tidewire.connector.path
// in the configuration snapshot current at discovery time.
type configuredScope struct {
	loader *sysconfig.Loader
}

func (s *configuredScope) Name() string { return "configured" }

func (s *configuredScope) Locate(ctx context.Context) ([]connectors.Locator, error) {
	raw := strings.TrimSpace(s.loader.Snapshot().Get(sysconfig.KeyConnectorPath))
	if raw == "" {
		return nil, nil
	}
	return connectors.NewDirScope(s.Name(), filepath.SplitList(raw)...).Locate(ctx)
}

// managedRepository forwards to whatever repository the manager currently
// holds, so callers survive a shutdown and re-initialize.
type managedRepository struct {
	m *repository.Manager
}

var errRepositoryNotInitialized = apperr.New(apperr.KindRepoInit, "repository is not initialized")

func (r managedRepository) RegisterConnector(ctx context.Context, shortName, canonicalName string) error {
	repo := r.m.Instance()
	if repo == nil {
		return errRepositoryNotInitialized
	}
	return repo.RegisterConnector(ctx, shortName, canonicalName)
}

func (r managedRepository) FindConnector(ctx context.Context, shortName string) (*repository.ConnectorRecord, error) {
	repo := r.m.Instance()
	if repo == nil {
		return nil, errRepositoryNotInitialized
	}
	return repo.FindConnector(ctx, shortName)
}

func (r managedRepository) ListConnectors(ctx context.Context) ([]repository.ConnectorRecord, error) {
	repo := r.m.Instance()
	if repo == nil {
		return nil, errRepositoryNotInitialized
	}
	return repo.ListConnectors(ctx)
}
