// Package connectors discovers connector descriptors, instantiates the
// connectors they name and keeps the loaded set for the process.
package connectors

import "context"

// Direction is a side of a data transfer a connector can serve.
type Direction string

const (
	DirectionFrom Direction = "FROM"
	DirectionTo   Direction = "TO"
)

// Capabilities describes what a connector supports.
type Capabilities struct {
	Directions []Direction
	// LinkKeys lists the link configuration keys Check reads.
	LinkKeys []string
}

// Supports reports whether d is among the connector's directions.
func (c Capabilities) Supports(d Direction) bool {
	for _, have := range c.Directions {
		if have == d {
			return true
		}
	}
	return false
}

// Connector is a pluggable data-movement implementation.
type Connector interface {
	Capabilities() Capabilities
	// Check verifies that a link configuration can reach its data source.
	Check(ctx context.Context, link map[string]string) error
}
