// Package backends registers the repository implementations shipped with
// tidewire.
package backends

import (
	"github.com/tidewire/tidewire/internal/provider"
	"github.com/tidewire/tidewire/internal/repository"
	"github.com/tidewire/tidewire/internal/repository/embedded"
	"github.com/tidewire/tidewire/internal/repository/mysql"
	"github.com/tidewire/tidewire/internal/repository/postgres"
)

// Builtin returns a registry holding the postgres, mysql and embedded
// backends.
func Builtin() *provider.Registry[repository.Repository] {
	reg := provider.NewRegistry[repository.Repository]("repository providers")
	reg.MustRegister(postgres.ID, func() (repository.Repository, error) { return postgres.New(), nil })
	reg.MustRegister(mysql.ID, func() (repository.Repository, error) { return mysql.New(), nil })
	reg.MustRegister(embedded.ID, func() (repository.Repository, error) { return embedded.New(), nil })
	return reg
}
