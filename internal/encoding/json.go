// Package encoding provides utilities for encoding and decoding data.
package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// DecodeJSON reads a single JSON value from r. Numbers decode as float64,
// matching what records hold once stored.
func DecodeJSON[T any](r io.Reader) (T, error) {
	var result T

	dec := json.NewDecoder(r)
	if err := dec.Decode(&result); err != nil {
		return result, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if dec.More() {
		return result, fmt.Errorf("failed to parse JSON: unexpected data after value")
	}

	return result, nil
}

// MarshalIndent encodes value as two-space indented JSON without HTML escaping.
func MarshalIndent(value any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(value); err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return buf.Bytes(), nil
}

// ParseLiteral reads s as a JSON literal when it is one, else returns s
// unchanged. It turns command line and query string keys into values.
func ParseLiteral(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}

	return v
}
