package models

import "errors"

// ClusterAssignment maps profile index to a group id. Ids are contiguous from 0.
type ClusterAssignment []int

// Groups returns member indices per group id.
func (a ClusterAssignment) Groups() [][]int {
	n := 0
	for _, id := range a {
		if id+1 > n {
			n = id + 1
		}
	}
	groups := make([][]int, n)
	for i, id := range a {
		groups[id] = append(groups[id], i)
	}
	return groups
}

// Embedding maps profile index to a point. Coordinates are meaningful only up to
// rotation, reflection and translation.
type Embedding [][]float64

// Merge is one agglomeration step: clusters led by Left and Right (their smallest
// member indices) joined at Distance, producing a cluster of Size members.
type Merge struct {
	Left     int     `json:"left"`
	Right    int     `json:"right"`
	Distance float64 `json:"distance"`
	Size     int     `json:"size"`
}

// Member is one profile's row in an analysis. Everything known about the profile
// for this run lives here so callers never align parallel slices.
type Member struct {
	Index       int       `json:"index"`
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Vector      []int     `json:"vector"`
	ClusterID   *int      `json:"cluster_id,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

// Group is a cluster with its members' indices.
type Group struct {
	ID      int   `json:"id"`
	Members []int `json:"members"`
}

// RecordError describes a profile rejected during encoding.
type RecordError struct {
	Index     int    `json:"index"`
	ProfileID string `json:"profile_id"`
	Label     string `json:"label,omitempty"`
	Field     string `json:"field,omitempty"`
	Error     string `json:"error"`
}

// NewRecordError describes err, the failure of the profile at position index.
func NewRecordError(index int, p *Profile, err error) *RecordError {
	re := &RecordError{
		Index:     index,
		ProfileID: p.ID,
		Label:     p.Label,
		Error:     err.Error(),
	}
	var fe *FieldError
	if errors.As(err, &fe) {
		re.Field = fe.Field
	}
	return re
}

// Analysis is the result of one pipeline run.
type Analysis struct {
	SchemaVersion string         `json:"schema_version"`
	Members       []*Member      `json:"members"`
	Similarity    [][]float64    `json:"similarity"`
	Distance      [][]float64    `json:"distance"`
	Groups        []Group        `json:"groups,omitempty"`
	Merges        []Merge        `json:"merges,omitempty"`
	Threshold     *float64       `json:"threshold,omitempty"`
	Seed          *uint64        `json:"seed,omitempty"`
	Stress        *float64       `json:"stress,omitempty"`
	Rejected      []*RecordError `json:"rejected,omitempty"`
	ElapsedMs     int64          `json:"elapsed_ms"`
}
