// Package localemap implements the flat key/value JSON documents that hold
// one locale's strings.
//
// The expected file format is a single JSON object with string values:
//
//	{
//		"greeting": "Hello {{name}}",
//		"farewell": "Goodbye"
//	}
//
// Key order is preserved from the file so that rewritten files stay diffable.
package localemap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Roles a parsed document can play in a synchronization run.
const (
	RoleSource   = "source"
	RoleSnapshot = "snapshot"
	RoleTarget   = "target"
)

// MalformedError reports a locale document that is not a flat JSON object of strings.
type MalformedError struct {
	Role string
	Path string
	Err  error
}

func (e *MalformedError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed %s JSON: %v", e.Role, e.Err)
	}
	return fmt.Sprintf("malformed %s JSON %s: %v", e.Role, e.Path, e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Map is an ordered string->string mapping.
type Map struct {
	keys   []string
	values map[string]string
}

// New returns an empty map.
func New() *Map {
	return &Map{values: make(map[string]string)}
}

// FromPairs builds a map from alternating key/value arguments.
func FromPairs(kv ...string) *Map {
	m := New()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(kv[i], kv[i+1])
	}
	return m
}

// Set inserts or overwrites key. New keys are appended to the order.
func (m *Map) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key.
func (m *Map) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Clone returns an independent copy.
func (m *Map) Clone() *Map {
	out := New()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// Equal reports whether both maps hold the same pairs in the same order.
func (m *Map) Equal(other *Map) bool {
	if m.Len() != other.Len() {
		return false
	}
	for i, k := range m.keys {
		if other.keys[i] != k || other.values[k] != m.values[k] {
			return false
		}
	}
	return true
}

// Parse decodes a flat JSON object of strings, preserving key order.
// Duplicate keys keep their first position and their last value.
func Parse(data []byte) (*Map, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	t, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading opening brace: %w", err)
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected {, got %v", t)
	}

	m := New()
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := kt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", kt)
		}

		vt, err := dec.Token()
		if err != nil {
			return nil, err
		}
		value, ok := vt.(string)
		if !ok {
			return nil, fmt.Errorf("expected string value for key %q, got %s", key, tokenKind(vt))
		}
		m.Set(key, value)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading closing brace: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after top-level object")
	}

	return m, nil
}

// ParseAs is Parse with failures wrapped in a MalformedError for role and path.
func ParseAs(data []byte, role, path string) (*Map, error) {
	m, err := Parse(data)
	if err != nil {
		return nil, &MalformedError{Role: role, Path: path, Err: err}
	}
	return m, nil
}

func tokenKind(t json.Token) string {
	switch v := t.(type) {
	case json.Delim:
		if v == '{' {
			return "object"
		}
		return "array"
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", t)
	}
}

// Marshal produces tab-indented JSON in key order with a trailing newline.
func (m *Map) Marshal() ([]byte, error) {
	if m.Len() == 0 {
		return []byte("{}\n"), nil
	}

	var b strings.Builder
	b.WriteString("{\n")
	for i, k := range m.keys {
		ks, err := jsonString(k)
		if err != nil {
			return nil, err
		}
		vs, err := jsonString(m.values[k])
		if err != nil {
			return nil, err
		}
		b.WriteString("\t" + ks + ": " + vs)
		if i < len(m.keys)-1 {
			b.WriteByte(',')
		}
		b.WriteByte('\n')
	}
	b.WriteString("}\n")

	return []byte(b.String()), nil
}

// jsonString returns a JSON-encoded string without HTML escaping.
func jsonString(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("encoding %q: %w", s, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
