package model

// Provenance maps a record column to the strategy or section that supplied
// its value. Columns that resolved to the sentinel have no entry.
type Provenance map[string]string

// Set records the source of a column. Empty sources are ignored.
func (p Provenance) Set(column, source string) {
	if source == "" {
		return
	}
	p[column] = source
}

// Source returns the recorded source of a column.
func (p Provenance) Source(column string) (string, bool) {
	s, ok := p[column]
	return s, ok
}
