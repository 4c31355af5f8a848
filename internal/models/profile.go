// Package models defines core data structures for profiles, feature vectors, and analysis results.
package models

import "time"

// Profile is a stored study profile: raw field values plus the feature vector derived from them.
type Profile struct {
	ID            string         `json:"id" db:"id"`
	Label         string         `json:"label" db:"label"`
	SchemaVersion string         `json:"schema_version" db:"schema_version"`
	Fields        map[string]any `json:"fields" db:"fields"`
	Vector        *FeatureVector `json:"vector,omitempty" db:"vector"`
	Source        string         `json:"source,omitempty" db:"source"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// ProfileInput is the input for creating or replacing a profile.
// Vector is an optional previously computed encoding; it is checked, never trusted.
type ProfileInput struct {
	ID     string         `json:"id,omitempty"`
	Label  string         `json:"label"`
	Fields map[string]any `json:"fields"`
	Vector []int          `json:"vector,omitempty"`
	Source string         `json:"source,omitempty"`
}

// FeatureVector is a fixed-length 0/1 encoding of a profile. Two vectors are only
// comparable when SchemaVersion matches.
type FeatureVector struct {
	SchemaVersion string `json:"schema_version"`
	Values        []int  `json:"values"`
}

// Len returns the number of components.
func (v FeatureVector) Len() int {
	return len(v.Values)
}

// IsZero reports whether no component is active.
func (v FeatureVector) IsZero() bool {
	for _, x := range v.Values {
		if x != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether both vectors share a schema version and components.
func (v FeatureVector) Equal(o FeatureVector) bool {
	if v.SchemaVersion != o.SchemaVersion || len(v.Values) != len(o.Values) {
		return false
	}
	for i := range v.Values {
		if v.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

// Match is a profile found by a lookup. Score is cosine similarity for
// neighbour lookups and the relevance score for keyword lookups.
type Match struct {
	Profile *Profile `json:"profile"`
	Score   float64  `json:"score"`
}
