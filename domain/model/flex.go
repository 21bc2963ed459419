package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// StringList decodes from a JSON/YAML array, a comma-separated string,
// an empty string or null. Items are trimmed and empty items dropped.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = cleanList(items)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected string or array: %w", err)
	}
	*l = splitList(s)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = cleanList(items)
	case yaml.ScalarNode:
		*l = splitList(node.Value)
	default:
		return fmt.Errorf("line %d: expected string or sequence", node.Line)
	}
	return nil
}

// Contains reports whether s equals one of the items exactly.
func (l StringList) Contains(s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

func splitList(s string) StringList {
	return cleanList(strings.Split(s, ","))
}

func cleanList(items []string) StringList {
	var out StringList
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// FlexInt decodes from a number, a numeric string, an empty string or null.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (n *FlexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return n.parse(s)
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("expected integer: %w", err)
	}
	if f != float64(int(f)) {
		return fmt.Errorf("expected integer, got %v", f)
	}
	*n = FlexInt(int(f))
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (n *FlexInt) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected integer", node.Line)
	}
	return n.parse(node.Value)
}

func (n *FlexInt) parse(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("expected integer, got %q", s)
	}
	*n = FlexInt(v)
	return nil
}

// Int returns the value as int.
func (n FlexInt) Int() int {
	return int(n)
}

// FlexBool decodes from a bool, "true"/"false" style strings, 0/1 or null.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*b = false
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		return b.parse(s)
	default:
		return b.parse(string(data))
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *FlexBool) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected boolean", node.Line)
	}
	return b.parse(node.Value)
}

func (b *FlexBool) parse(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		*b = true
	case "false", "no", "n", "0", "":
		*b = false
	default:
		return fmt.Errorf("expected boolean, got %q", s)
	}
	return nil
}

// Bool returns the value as bool.
func (b FlexBool) Bool() bool {
	return bool(b)
}
