package model

import (
	"fmt"
	"strings"
)

// Schema is the ordered column set shared by every row of a RowSet.
// Lookups are exact first and fall back to a case-insensitive match.
type Schema struct {
	names  []string
	exact  map[string]int
	folded map[string]int
}

// NewSchema creates a Schema. Column names are compared after trimming
// surrounding whitespace; duplicates are rejected.
func NewSchema(names []string) (*Schema, error) {
	s := &Schema{
		names:  make([]string, len(names)),
		exact:  make(map[string]int, len(names)),
		folded: make(map[string]int, len(names)),
	}
	for i, name := range names {
		trimmed := strings.TrimSpace(name)
		if _, dup := s.exact[trimmed]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumnName, name)
		}
		s.names[i] = trimmed
		s.exact[trimmed] = i
		key := strings.ToLower(trimmed)
		if _, ok := s.folded[key]; !ok {
			s.folded[key] = i
		}
	}
	return s, nil
}

// mustSchema is used internally where names are already known to be unique.
func mustSchema(names []string) *Schema {
	s, err := NewSchema(names)
	if err != nil {
		panic(err)
	}
	return s
}

// Names returns a copy of the column names in order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of columns.
func (s *Schema) Len() int {
	return len(s.names)
}

// Name returns the column name at index i.
func (s *Schema) Name(i int) string {
	return s.names[i]
}

// Index returns the position of an exactly matching column, or -1.
func (s *Schema) Index(name string) int {
	if i, ok := s.exact[strings.TrimSpace(name)]; ok {
		return i
	}
	return -1
}

// Lookup returns the position of name, matching exactly first and then
// case-insensitively. It returns -1 when no column matches.
func (s *Schema) Lookup(name string) int {
	if i := s.Index(name); i >= 0 {
		return i
	}
	if i, ok := s.folded[strings.ToLower(strings.TrimSpace(name))]; ok {
		return i
	}
	return -1
}

// Has reports whether Lookup finds name.
func (s *Schema) Has(name string) bool {
	return s.Lookup(name) >= 0
}

// Equal compares column names and order.
func (s *Schema) Equal(other *Schema) bool {
	if len(s.names) != len(other.names) {
		return false
	}
	for i, v := range s.names {
		if v != other.names[i] {
			return false
		}
	}
	return true
}
