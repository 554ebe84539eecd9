// Package adapter provides the database adapter contract for fieldalias.
//
// An adapter binds the dataset capability surface (list fields, alter a field
// alias) to one engine. Concrete implementations live in pkg/adapters/ and
// register themselves from init():
//
//	import _ "github.com/leapstack-labs/fieldalias/pkg/adapters/geopackage"
package adapter

import (
	"github.com/leapstack-labs/fieldalias/pkg/core"
)

type (
	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Field is an alias for core.Field.
	Field = core.Field

	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter
)
