// Package builtin holds the connectors compiled into the binary and the
// descriptors that announce them.
package builtin

import (
	"embed"
	"io/fs"

	"github.com/tidewire/tidewire/internal/connectors"
	"github.com/tidewire/tidewire/internal/provider"
)

//go:embed descriptors
var descriptors embed.FS

const (
	GenericJDBCClass = "tidewire.connectors.GenericJDBCConnector"
	PostgresClass    = "tidewire.connectors.PostgresConnector"
	ObjectStoreClass = "tidewire.connectors.ObjectStoreConnector"
)

// Registry returns the registry of built-in connector factories.
func Registry() *provider.Registry[connectors.Connector] {
	reg := provider.NewRegistry[connectors.Connector]("builtin connectors")
	reg.MustRegister(GenericJDBCClass, func() (connectors.Connector, error) { return &GenericJDBCConnector{}, nil })
	reg.MustRegister(PostgresClass, func() (connectors.Connector, error) { return &PostgresConnector{}, nil })
	reg.MustRegister(ObjectStoreClass, func() (connectors.Connector, error) { return &ObjectStoreConnector{}, nil })
	return reg
}

// Scope returns the application scope: the descriptors embedded in the
// binary.
func Scope() connectors.Scope {
	sub, err := fs.Sub(descriptors, "descriptors")
	if err != nil {
		panic(err)
	}
	return connectors.NewFSScope("application", "builtin://tidewire", sub)
}
