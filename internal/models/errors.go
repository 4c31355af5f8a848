package models

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaViolation is returned when a profile lacks a field the schema requires.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrDomainViolation is returned when a categorical value is not in its domain.
	ErrDomainViolation = errors.New("domain violation")
	// ErrRangeViolation is returned when an ordinal value is outside its bounds.
	ErrRangeViolation = errors.New("range violation")
	// ErrShapeMismatch is returned when vectors of unequal length are compared.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrSchemaMismatch is returned when vectors from different schema versions are compared.
	ErrSchemaMismatch = errors.New("schema version mismatch")
	// ErrEmptyInput is returned when a pipeline run has no profiles.
	ErrEmptyInput = errors.New("no input profiles")
	// ErrInvalidThreshold is returned for a missing or non-finite cluster threshold.
	ErrInvalidThreshold = errors.New("invalid distance threshold")
	// ErrSeedRequired is returned when a projection is requested without a seed.
	ErrSeedRequired = errors.New("projection seed is required")
	// ErrNotFound is returned when a stored profile does not exist.
	ErrNotFound = errors.New("not found")
)

// FieldError is an encoding failure for one field of one profile.
//
// Kind is one of ErrSchemaViolation, ErrDomainViolation or ErrRangeViolation and
// can be matched with errors.Is.
type FieldError struct {
	ProfileID string
	Field     string
	Value     any
	Kind      error
	Detail    string
}

func (e *FieldError) Error() string {
	msg := fmt.Sprintf("profile %q field %q: %v", e.ProfileID, e.Field, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *FieldError) Unwrap() error { return e.Kind }
