package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aweris/fscms/internal/codec"
)

// parseAssignments turns key=value pairs into a field map. Values that parse as
// JSON keep their JSON type; anything else is a string.
func parseAssignments(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", pair)
		}
		fields[key] = parseValue(raw)
	}
	return fields, nil
}

func parseValue(raw string) any {
	if !json.Valid([]byte(raw)) {
		return raw
	}
	var v any
	if err := codec.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// parseDocument decodes a JSON object given inline.
func parseDocument(data string) (map[string]any, error) {
	if data == "" {
		return map[string]any{}, nil
	}
	var fields map[string]any
	if err := codec.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("parse document: not an object")
	}
	return fields, nil
}
