package models

import (
	"errors"
	"testing"
)

func TestFeatureVector_IsZero(t *testing.T) {
	tests := []struct {
		name string
		v    FeatureVector
		want bool
	}{
		{"empty", FeatureVector{}, true},
		{"all zero", FeatureVector{Values: []int{0, 0, 0}}, true},
		{"one active", FeatureVector{Values: []int{0, 1, 0}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsZero(); got != tt.want {
				t.Errorf("IsZero() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFeatureVector_Equal(t *testing.T) {
	a := FeatureVector{SchemaVersion: "v1", Values: []int{1, 0, 1}}
	if !a.Equal(FeatureVector{SchemaVersion: "v1", Values: []int{1, 0, 1}}) {
		t.Error("identical vectors should be equal")
	}
	if a.Equal(FeatureVector{SchemaVersion: "v2", Values: []int{1, 0, 1}}) {
		t.Error("vectors from different schema versions should not be equal")
	}
	if a.Equal(FeatureVector{SchemaVersion: "v1", Values: []int{1, 0}}) {
		t.Error("vectors of different length should not be equal")
	}
}

func TestClusterAssignment_Groups(t *testing.T) {
	groups := ClusterAssignment{0, 1, 0, 2}.Groups()
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || groups[0][0] != 0 || groups[0][1] != 2 {
		t.Errorf("group 0 = %v, want [0 2]", groups[0])
	}
	if len(groups[2]) != 1 || groups[2][0] != 3 {
		t.Errorf("group 2 = %v, want [3]", groups[2])
	}
}

func TestFieldError_Is(t *testing.T) {
	err := error(&FieldError{ProfileID: "p1", Field: "major", Value: "Art", Kind: ErrDomainViolation})
	if !errors.Is(err, ErrDomainViolation) {
		t.Error("FieldError should match its kind")
	}
	if errors.Is(err, ErrRangeViolation) {
		t.Error("FieldError should not match other kinds")
	}
	var fe *FieldError
	if !errors.As(err, &fe) || fe.Field != "major" {
		t.Errorf("errors.As: got %+v", fe)
	}
}
