package search

import (
	"errors"
	"strings"

	"github.com/hyperjump/cohort/internal/config"
)

// ErrEmptyQuery is returned when a query names neither text nor a reference profile.
var ErrEmptyQuery = errors.New("query needs text or a reference profile")

// Query is a profile lookup. Text is matched against labels and field values;
// Like names a stored profile whose neighbours are wanted. When both are set
// the scores are fused with KeywordWeight and SimilarityWeight.
type Query struct {
	Text             string  `json:"text,omitempty"`
	Like             string  `json:"like,omitempty"`
	Fuzzy            bool    `json:"fuzzy,omitempty"`
	Limit            int     `json:"limit,omitempty"`
	Offset           int     `json:"offset,omitempty"`
	MinScore         float64 `json:"min_score,omitempty"`
	KeywordWeight    float64 `json:"keyword_weight,omitempty"`
	SimilarityWeight float64 `json:"similarity_weight,omitempty"`
}

// Normalize validates q and fills unset values from cfg.
func (q *Query) Normalize(cfg config.SearchConfig) error {
	q.Text = strings.TrimSpace(q.Text)
	q.Like = strings.TrimSpace(q.Like)
	if q.Text == "" && q.Like == "" {
		return ErrEmptyQuery
	}
	if q.Limit <= 0 {
		q.Limit = cfg.DefaultLimit
	}
	if cfg.MaxLimit > 0 && q.Limit > cfg.MaxLimit {
		q.Limit = cfg.MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.KeywordWeight < 0 || q.SimilarityWeight < 0 {
		return errors.New("weights must not be negative")
	}
	if q.KeywordWeight == 0 && q.SimilarityWeight == 0 {
		q.KeywordWeight = cfg.KeywordWeight
		q.SimilarityWeight = cfg.SimilarityWeight
	}
	return nil
}
