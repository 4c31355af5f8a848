// Package schema defines the versioned field layout used to encode profiles into feature vectors.
package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kind is the type of a profile field.
type Kind string

const (
	// KindSingle is a categorical field with exactly one value from Domain.
	KindSingle Kind = "single"
	// KindMulti is a categorical field with zero or more values from Domain.
	KindMulti Kind = "multi"
	// KindOrdinal is an integer in [Min, Max], one-hot encoded by value.
	KindOrdinal Kind = "ordinal"
	// KindFlag is a boolean.
	KindFlag Kind = "flag"
)

// Field describes one profile field and its encoding.
type Field struct {
	Name   string   `yaml:"name" json:"name"`
	Kind   Kind     `yaml:"kind" json:"kind"`
	Domain []string `yaml:"domain,omitempty" json:"domain,omitempty"`
	Min    int      `yaml:"min,omitempty" json:"min,omitempty"`
	Max    int      `yaml:"max,omitempty" json:"max,omitempty"`
	// AllowEmpty applies to multi fields: when true an empty selection encodes as all
	// zeros, otherwise it is rejected.
	AllowEmpty bool `yaml:"allow_empty,omitempty" json:"allow_empty,omitempty"`
}

// Width returns the number of vector components the field occupies.
func (f Field) Width() int {
	switch f.Kind {
	case KindSingle, KindMulti:
		return len(f.Domain)
	case KindOrdinal:
		return f.Max - f.Min + 1
	case KindFlag:
		return 1
	default:
		return 0
	}
}

// Schema is an immutable, versioned list of fields. Vector layout is the
// concatenation of field encodings in Fields order.
type Schema struct {
	Version string
	Fields  []Field

	offsets []int
	byName  map[string]int
	length  int
}

type schemaFile struct {
	Version string  `yaml:"version"`
	Fields  []Field `yaml:"fields"`
}

// New validates fields and returns a schema. Field names must be unique, domains
// non-empty without duplicates, and ordinal bounds ordered.
func New(version string, fields []Field) (*Schema, error) {
	if version == "" {
		return nil, fmt.Errorf("schema version is required")
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("schema %s: no fields", version)
	}
	s := &Schema{
		Version: version,
		Fields:  make([]Field, len(fields)),
		offsets: make([]int, len(fields)),
		byName:  make(map[string]int, len(fields)),
	}
	copy(s.Fields, fields)
	for i, f := range s.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema %s: field %d has no name", version, i)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate field %q", version, f.Name)
		}
		if err := validateField(f); err != nil {
			return nil, fmt.Errorf("schema %s: field %q: %w", version, f.Name, err)
		}
		s.byName[f.Name] = i
		s.offsets[i] = s.length
		s.length += f.Width()
	}
	return s, nil
}

func validateField(f Field) error {
	switch f.Kind {
	case KindSingle, KindMulti:
		if len(f.Domain) == 0 {
			return fmt.Errorf("empty domain")
		}
		seen := make(map[string]struct{}, len(f.Domain))
		for _, v := range f.Domain {
			if _, ok := seen[v]; ok {
				return fmt.Errorf("duplicate domain value %q", v)
			}
			seen[v] = struct{}{}
		}
	case KindOrdinal:
		if f.Max < f.Min {
			return fmt.Errorf("max %d below min %d", f.Max, f.Min)
		}
	case KindFlag:
	default:
		return fmt.Errorf("unknown kind %q", f.Kind)
	}
	return nil
}

// Load reads a schema definition from a YAML file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema: %w", err)
	}
	var sf schemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return New(sf.Version, sf.Fields)
}

// Save writes the schema definition as YAML.
func Save(path string, s *Schema) error {
	data, err := yaml.Marshal(schemaFile{Version: s.Version, Fields: s.Fields})
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write schema: %w", err)
	}
	return nil
}

// Length returns the feature vector length.
func (s *Schema) Length() int {
	return s.length
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.Fields[i], true
}

// Offset returns the index of the field's first component in the vector.
func (s *Schema) Offset(name string) (int, bool) {
	i, ok := s.byName[name]
	if !ok {
		return 0, false
	}
	return s.offsets[i], true
}

// Index returns the position of value within a categorical field's domain, or -1.
func (f Field) Index(value string) int {
	for i, v := range f.Domain {
		if v == value {
			return i
		}
	}
	return -1
}
