package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAliasMapping_Fields(t *testing.T) {
	m := AliasMapping{
		{FieldName: "DT_CRT", Alias: "Date Created", Line: 1},
		{FieldName: "QTY", Alias: "Quantity", Line: 2},
		{FieldName: "DT_CRT", Alias: "Created", Line: 3},
	}
	assert.Equal(t, []string{"DT_CRT", "QTY", "DT_CRT"}, m.Fields())
	assert.Empty(t, AliasMapping(nil).Fields())
}
