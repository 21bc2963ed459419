package model

import "strings"

// Value is a single cell. It holds either a string or null.
// The zero value is null.
type Value struct {
	s     string
	valid bool
}

// NewValue creates a non-null Value.
func NewValue(s string) Value {
	return Value{s: s, valid: true}
}

// NullValue returns the null Value.
func NullValue() Value {
	return Value{}
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool {
	return !v.valid
}

// IsBlank reports whether v is null or contains only whitespace.
func (v Value) IsBlank() bool {
	return !v.valid || strings.TrimSpace(v.s) == ""
}

// String returns the string content. Null renders as the empty string.
func (v Value) String() string {
	return v.s
}

// Equal compares two values, treating null as distinct from "".
func (v Value) Equal(other Value) bool {
	return v.valid == other.valid && v.s == other.s
}

// NewValues converts a string slice into non-null values.
func NewValues(s []string) []Value {
	values := make([]Value, len(s))
	for i, v := range s {
		values[i] = NewValue(v)
	}
	return values
}
