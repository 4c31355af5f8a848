// Package encoder converts profiles into fixed-length 0/1 feature vectors using a schema.
package encoder

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/schema"
)

// Encode returns the feature vector of p under s. It is a pure function of its
// inputs. Failures are *models.FieldError values naming the profile and field.
func Encode(p *models.Profile, s *schema.Schema) (models.FeatureVector, error) {
	out := make([]int, s.Length())
	pos := 0
	for _, f := range s.Fields {
		raw, ok := p.Fields[f.Name]
		if !ok || raw == nil {
			return models.FeatureVector{}, fieldErr(p, f, nil, models.ErrSchemaViolation, "missing value")
		}
		sub := out[pos : pos+f.Width()]
		var err error
		switch f.Kind {
		case schema.KindSingle:
			err = encodeSingle(p, f, raw, sub)
		case schema.KindMulti:
			err = encodeMulti(p, f, raw, sub)
		case schema.KindOrdinal:
			err = encodeOrdinal(p, f, raw, sub)
		case schema.KindFlag:
			err = encodeFlag(p, f, raw, sub)
		}
		if err != nil {
			return models.FeatureVector{}, err
		}
		pos += f.Width()
	}
	return models.FeatureVector{SchemaVersion: s.Version, Values: out}, nil
}

func encodeSingle(p *models.Profile, f schema.Field, raw any, sub []int) error {
	v, ok := raw.(string)
	if !ok {
		return fieldErr(p, f, raw, models.ErrDomainViolation, fmt.Sprintf("expected string, got %T", raw))
	}
	i := f.Index(v)
	if i < 0 {
		return fieldErr(p, f, raw, models.ErrDomainViolation, notInDomain(f, v))
	}
	sub[i] = 1
	return nil
}

func notInDomain(f schema.Field, v string) string {
	if s, ok := f.Suggest(v); ok {
		return fmt.Sprintf("%q not in domain, did you mean %q?", v, s)
	}
	return fmt.Sprintf("%q not in domain", v)
}

func encodeMulti(p *models.Profile, f schema.Field, raw any, sub []int) error {
	values, err := stringList(raw)
	if err != nil {
		return fieldErr(p, f, raw, models.ErrDomainViolation, err.Error())
	}
	if len(values) == 0 && !f.AllowEmpty {
		return fieldErr(p, f, raw, models.ErrSchemaViolation, "at least one value is required")
	}
	for _, v := range values {
		i := f.Index(v)
		if i < 0 {
			return fieldErr(p, f, v, models.ErrDomainViolation, notInDomain(f, v))
		}
		sub[i] = 1
	}
	return nil
}

func encodeOrdinal(p *models.Profile, f schema.Field, raw any, sub []int) error {
	n, err := toInt(raw)
	switch {
	case errors.Is(err, errNotInteger):
		return fieldErr(p, f, raw, models.ErrDomainViolation, fmt.Sprintf("expected integer, got %v", raw))
	case err != nil:
		return fieldErr(p, f, raw, models.ErrRangeViolation, fmt.Sprintf("%v outside [%d, %d]", raw, f.Min, f.Max))
	}
	if n < int64(f.Min) || n > int64(f.Max) {
		return fieldErr(p, f, raw, models.ErrRangeViolation, fmt.Sprintf("%d outside [%d, %d]", n, f.Min, f.Max))
	}
	sub[n-int64(f.Min)] = 1
	return nil
}

func encodeFlag(p *models.Profile, f schema.Field, raw any, sub []int) error {
	b, ok := raw.(bool)
	if !ok {
		return fieldErr(p, f, raw, models.ErrDomainViolation, fmt.Sprintf("expected boolean, got %T", raw))
	}
	if b {
		sub[0] = 1
	}
	return nil
}

func stringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("entry %d: expected string, got %T", i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list, got %T", raw)
	}
}

var (
	errNotInteger = errors.New("not an integer")
	errOverflow   = errors.New("integer overflows int64")
)

// toInt accepts Go integer types and integral floats (JSON numbers decode as float64).
// Integral values that do not fit in an int64 return errOverflow.
func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt(v)
	case float32:
		return floatToInt(float64(v))
	case float64:
		return floatToInt(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, errNotInteger
		}
		return floatToInt(f)
	default:
		return 0, errNotInteger
	}
}

func uintToInt(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, errOverflow
	}
	return int64(v), nil
}

func floatToInt(f float64) (int64, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f):
		return 0, errNotInteger
	case f < -(1<<63) || f >= 1<<63:
		return 0, errOverflow
	}
	return int64(f), nil
}

func fieldErr(p *models.Profile, f schema.Field, value any, kind error, detail string) error {
	return &models.FieldError{
		ProfileID: p.ID,
		Field:     f.Name,
		Value:     value,
		Kind:      kind,
		Detail:    detail,
	}
}
