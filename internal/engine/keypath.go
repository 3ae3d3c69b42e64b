package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeyPath names where a key lives inside a record. The zero value means the
// collection keeps its keys outside the records.
type KeyPath struct {
	paths     []string
	composite bool
}

// Path returns a single-field key path. Nested fields are separated by dots.
func Path(p string) KeyPath {
	if p == "" {
		return KeyPath{}
	}

	return KeyPath{paths: []string{p}}
}

// CompositePath returns a key path whose key is the array of all fields.
func CompositePath(paths ...string) KeyPath {
	return KeyPath{paths: append([]string(nil), paths...), composite: true}
}

func (p KeyPath) IsZero() bool {
	return len(p.paths) == 0 && !p.composite
}

func (p KeyPath) IsComposite() bool {
	return p.composite
}

// Paths returns a copy of the dotted field paths.
func (p KeyPath) Paths() []string {
	return append([]string(nil), p.paths...)
}

func (p KeyPath) String() string {
	switch {
	case p.IsZero():
		return ""
	case p.composite:
		return "[" + strings.Join(p.paths, ", ") + "]"
	default:
		return p.paths[0]
	}
}

// Validate checks every dotted path has non-empty segments.
func (p KeyPath) Validate() error {
	if p.composite && len(p.paths) == 0 {
		return newError(NameData, "composite key path has no fields")
	}

	for _, path := range p.paths {
		for _, seg := range strings.Split(path, ".") {
			if seg == "" || strings.TrimSpace(seg) != seg {
				return newError(NameData, "invalid key path %q", path)
			}
		}
	}

	return nil
}

// Extract evaluates the key path against rec. found is false when any field
// is missing or null. The returned value is not normalized.
func (p KeyPath) Extract(rec Record) (any, bool) {
	if p.IsZero() {
		return nil, false
	}

	if !p.composite {
		return lookup(rec, p.paths[0])
	}

	out := make([]any, 0, len(p.paths))

	for _, path := range p.paths {
		v, ok := lookup(rec, path)
		if !ok {
			return nil, false
		}

		out = append(out, v)
	}

	return out, true
}

// Inject stores key at a single-field path, creating intermediate objects.
func (p KeyPath) Inject(rec Record, key any) error {
	if p.IsZero() || p.composite {
		return newError(NameData, "cannot inject a key into key path %q", p.String())
	}

	segs := strings.Split(p.paths[0], ".")
	cur := map[string]any(rec)

	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok || next == nil {
			m := map[string]any{}
			cur[seg] = m
			cur = m

			continue
		}

		m, ok := next.(map[string]any)
		if !ok {
			return newError(NameData, "field %q of key path %q is not an object", seg, p.paths[0])
		}

		cur = m
	}

	cur[segs[len(segs)-1]] = key

	return nil
}

func lookup(rec map[string]any, path string) (any, bool) {
	var cur any = rec

	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}

		cur, ok = m[seg]
		if !ok || cur == nil {
			return nil, false
		}
	}

	return cur, true
}

func (p KeyPath) MarshalJSON() ([]byte, error) {
	switch {
	case p.IsZero():
		return []byte("null"), nil
	case p.composite:
		return json.Marshal(p.paths)
	default:
		return json.Marshal(p.paths[0])
	}
}

func (p *KeyPath) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case nil:
		*p = KeyPath{}
	case string:
		*p = Path(v)
	case []any:
		paths := make([]string, 0, len(v))

		for _, elem := range v {
			s, ok := elem.(string)
			if !ok {
				return fmt.Errorf("key path element %v is not a string", elem)
			}

			paths = append(paths, s)
		}

		*p = CompositePath(paths...)
	default:
		return fmt.Errorf("key path must be a string or a list of strings, got %T", raw)
	}

	return nil
}

func (p KeyPath) MarshalYAML() (any, error) {
	switch {
	case p.IsZero():
		return nil, nil
	case p.composite:
		return p.paths, nil
	default:
		return p.paths[0], nil
	}
}

func (p *KeyPath) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*p = KeyPath{}
			return nil
		}

		*p = Path(node.Value)
	case yaml.SequenceNode:
		var paths []string
		if err := node.Decode(&paths); err != nil {
			return err
		}

		*p = CompositePath(paths...)
	default:
		return fmt.Errorf("line %d: key path must be a string or a list of strings", node.Line)
	}

	return nil
}
