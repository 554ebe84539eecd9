package core

// AliasPair is one CSV row: a field name and the alias it should carry.
type AliasPair struct {
	FieldName string `json:"field_name"`
	Alias     string `json:"alias"`
	// Line is the 1-based line the record started on. Zero when unknown.
	Line int `json:"line,omitempty"`
}

// AliasMapping is the ordered sequence of pairs parsed from one CSV file.
type AliasMapping []AliasPair

// Fields returns the field names in mapping order, duplicates included.
func (m AliasMapping) Fields() []string {
	names := make([]string, len(m))
	for i, p := range m {
		names[i] = p.FieldName
	}
	return names
}

// Field describes one column of a dataset.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Alias    string `json:"alias,omitempty"`
	Position int    `json:"position"`
}
