// Package llmjson parses structured answers out of free-form model output.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when the output holds no JSON object at all.
var ErrNoJSON = errors.New("no JSON object in model output")

// Extract returns the span from the first '{' to the last '}'. Models wrap JSON in prose or
// markdown fences often enough that strict decoding fails.
func Extract(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSON
	}
	return raw[start : end+1], nil
}

// Decode extracts and unmarshals the JSON object in raw.
func Decode[T any](raw string) (T, error) {
	var out T
	body, err := Extract(raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, fmt.Errorf("decode model output: %w", err)
	}
	return out, nil
}

// Policy is the value a call site substitutes when model output cannot be parsed.
type Policy[T any] struct {
	Name  string
	Value T
}

// Resolve decodes raw, or falls back to the policy value. The parse error is returned
// alongside the fallback so the caller can log which policy fired.
func (p Policy[T]) Resolve(raw string) (T, error) {
	out, err := Decode[T](raw)
	if err != nil {
		return p.Value, fmt.Errorf("%s: %w", p.Name, err)
	}
	return out, nil
}
