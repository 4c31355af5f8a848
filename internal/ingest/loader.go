// Package ingest reads profile records from JSON, YAML and spreadsheet files.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/schema"
	"gopkg.in/yaml.v3"
)

// Reserved record keys. Every other key is a profile field.
const (
	keyID     = "id"
	keyName   = "name"
	keyLabel  = "label"
	keyVector = "vector"
	keyFields = "fields"
)

// Loader reads profile records and normalizes their values for a schema.
type Loader struct {
	schema *schema.Schema
}

// NewLoader creates a loader for s.
func NewLoader(s *schema.Schema) *Loader {
	return &Loader{schema: s}
}

// Supported reports whether ext (with leading dot) is a readable format.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".json", ".yaml", ".yml", ".xlsx":
		return true
	}
	return false
}

// Load reads the file at path. Records are returned in file order.
func (l *Loader) Load(path string) ([]*models.ProfileInput, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return l.LoadBytes(content, filepath.Ext(path))
}

// LoadBytes parses content based on ext (with leading dot).
//
// JSON and YAML hold a list of records, or an object with a "profiles" list.
// A record is a flat object of field values plus optional "id", "name" or
// "label", and "vector"; field values may instead be nested under "fields".
func (l *Loader) LoadBytes(content []byte, ext string) ([]*models.ProfileInput, error) {
	var records []map[string]any
	switch strings.ToLower(ext) {
	case ".json":
		var err error
		if records, err = decodeJSON(content); err != nil {
			return nil, fmt.Errorf("parse JSON: %w", err)
		}
	case ".yaml", ".yml":
		var err error
		if records, err = decodeYAML(content); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	case ".xlsx":
		var err error
		if records, err = readWorkbook(content); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", ext)
	}

	inputs := make([]*models.ProfileInput, 0, len(records))
	for i, rec := range records {
		in, err := l.toInput(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func decodeJSON(content []byte) ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(content, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Profiles []map[string]any `json:"profiles"`
	}
	if err := json.Unmarshal(content, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Profiles, nil
}

func decodeYAML(content []byte) ([]map[string]any, error) {
	var list []map[string]any
	if err := yaml.Unmarshal(content, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Profiles []map[string]any `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(content, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Profiles, nil
}

func (l *Loader) toInput(rec map[string]any) (*models.ProfileInput, error) {
	in := &models.ProfileInput{Fields: make(map[string]any, len(rec))}
	for k, v := range rec {
		switch k {
		case keyID:
			in.ID = scalarString(v)
		case keyName, keyLabel:
			if in.Label == "" {
				in.Label = scalarString(v)
			}
		case keyVector:
			if v == nil {
				continue
			}
			vec, err := intList(v)
			if err != nil {
				return nil, fmt.Errorf("vector: %w", err)
			}
			in.Vector = vec
		case keyFields:
			nested, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("fields: expected object, got %T", v)
			}
			for fk, fv := range nested {
				in.Fields[fk] = fv
			}
		default:
			in.Fields[k] = v
		}
	}
	Normalize(l.schema, in.Fields)
	return in, nil
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func intList(v any) ([]int, error) {
	if s, ok := v.(string); ok {
		return parseIntList(s)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", v)
	}
	out := make([]int, len(items))
	for i, item := range items {
		switch n := item.(type) {
		case float64:
			if n != float64(int(n)) {
				return nil, fmt.Errorf("entry %d: %v is not an integer", i, n)
			}
			out[i] = int(n)
		case int:
			out[i] = n
		default:
			return nil, fmt.Errorf("entry %d: expected integer, got %T", i, item)
		}
	}
	return out, nil
}

// parseIntList reads "1,0,1" or "[1, 0, 1]"; blank text is no vector.
func parseIntList(s string) ([]int, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}
