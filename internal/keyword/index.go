// Package keyword provides full-text lookup of profiles by label and field values.
package keyword

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/hyperjump/cohort/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// LabelBoost multiplies the score of matches in the profile label. Use 1.0 for no boost.
	LabelBoost float64
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
}

// KeywordIndex defines keyword search operations.
type KeywordIndex interface {
	Index(ctx context.Context, p *models.Profile) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, id string) error
	Close() error
	// DocCount returns the total number of profiles in the index.
	DocCount() (uint64, error)
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	ID    string
	Score float64
}

// Reserved document fields. Schema fields are indexed under their own names,
// so queries like "major:Math" work.
const (
	fieldLabel  = "label"
	fieldText   = "text"
	fieldSource = "source"
)

// profileDocument flattens a profile into the document stored in the index.
func profileDocument(p *models.Profile) map[string]any {
	doc := make(map[string]any, len(p.Fields)+3)
	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var text []string
	for _, name := range names {
		v := valueText(p.Fields[name])
		if v == "" {
			continue
		}
		doc[name] = v
		if _, isBool := p.Fields[name].(bool); !isBool {
			text = append(text, v)
		}
	}
	doc[fieldLabel] = p.Label
	doc[fieldText] = strings.Join(text, " ")
	doc[fieldSource] = p.Source
	return doc
}

func valueText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []string:
		return strings.Join(x, " ")
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s := valueText(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(x)
	}
}
