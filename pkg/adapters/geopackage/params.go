package geopackage

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds GeoPackage-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// AliasColumn is the gpkg_data_columns column holding the alias: "name" or "title".
	AliasColumn string `mapstructure:"alias_column"`

	// CreateSchemaExtension creates gpkg_data_columns and registers the
	// gpkg_schema extension when the file has neither.
	CreateSchemaExtension bool `mapstructure:"create_schema_extension"`
}

// DefaultParams returns the params used when target.params is empty.
func DefaultParams() Params {
	return Params{
		AliasColumn:           "name",
		CreateSchemaExtension: true,
	}
}

// ParseParams decodes raw target params over the defaults.
func ParseParams(raw map[string]any) (Params, error) {
	p := DefaultParams()
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return p, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return p, fmt.Errorf("invalid geopackage params: %w", err)
	}

	switch p.AliasColumn {
	case "name", "title":
	default:
		return p, fmt.Errorf("invalid geopackage params: alias_column must be \"name\" or \"title\", got %q", p.AliasColumn)
	}
	return p, nil
}
