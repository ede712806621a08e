// Package providers registers the configuration providers built into the
// binary.
package providers

import (
	"github.com/tidewire/tidewire/internal/provider"
	"github.com/tidewire/tidewire/internal/sysconfig"
	"github.com/tidewire/tidewire/internal/sysconfig/providers/awssecrets"
	"github.com/tidewire/tidewire/internal/sysconfig/providers/file"
	"github.com/tidewire/tidewire/internal/sysconfig/providers/vault"
)

// Builtin returns a registry holding every built-in configuration provider.
func Builtin() *provider.Registry[sysconfig.Provider] {
	reg := provider.NewRegistry[sysconfig.Provider]("builtin configuration providers")
	reg.MustRegister(file.ID, func() (sysconfig.Provider, error) { return file.New(), nil })
	reg.MustRegister(vault.ID, func() (sysconfig.Provider, error) { return vault.New(), nil })
	reg.MustRegister(awssecrets.ID, func() (sysconfig.Provider, error) { return awssecrets.New(), nil })
	return reg
}
