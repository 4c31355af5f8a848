// Package search looks up stored profiles by text, by similarity to another
// profile, or by both with fused scores.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/cohort/internal/config"
	"github.com/hyperjump/cohort/internal/keyword"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/storage"
	"github.com/hyperjump/cohort/internal/vector"
	"golang.org/x/sync/errgroup"
)

// Result is one ranked profile.
type Result struct {
	Profile         *models.Profile `json:"profile"`
	Score           float64         `json:"score"`
	KeywordScore    float64         `json:"keyword_score,omitempty"`
	SimilarityScore float64         `json:"similarity_score,omitempty"`
	Rank            int             `json:"rank"`
}

// Response is a page of search results.
type Response struct {
	Results   []*Result `json:"results"`
	Total     int       `json:"total"`
	QueryTime int64     `json:"query_time_ms"`
	Query     *Query    `json:"query"`
}

// Engine runs profile lookups against the keyword and vector indices.
type Engine struct {
	storage      storage.Storage
	vectorIndex  vector.Index
	keywordIndex keyword.KeywordIndex
	config       config.SearchConfig
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	storage storage.Storage,
	vectorIndex vector.Index,
	keywordIndex keyword.KeywordIndex,
	cfg config.SearchConfig,
) *Engine {
	return &Engine{
		storage:      storage,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		config:       cfg,
	}
}

// VectorIndexSize returns the number of profiles in the vector index.
func (e *Engine) VectorIndexSize() int {
	return e.vectorIndex.Size()
}

// Search runs q and returns one page of profiles, best first.
func (e *Engine) Search(ctx context.Context, q *Query) (*Response, error) {
	startTime := time.Now()
	if err := q.Normalize(e.config); err != nil {
		return nil, err
	}
	candidates := max(e.config.Candidates, q.Offset+q.Limit)

	var ref *models.Profile
	if q.Like != "" {
		p, err := e.storage.GetProfile(ctx, q.Like)
		if err != nil {
			return nil, err
		}
		if p.Vector == nil {
			return nil, fmt.Errorf("profile %s has no vector", p.ID)
		}
		ref = p
	}

	var (
		keywordScores    map[string]float64
		similarityScores map[string]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	if q.Text != "" {
		g.Go(func() error {
			results, err := e.keywordIndex.Search(gctx, q.Text, candidates, &keyword.SearchOptions{
				LabelBoost:   e.config.LabelBoost,
				FuzzyEnabled: q.Fuzzy,
			})
			if err != nil {
				return fmt.Errorf("keyword search failed: %w", err)
			}
			keywordScores = NormalizeKeywordScores(results)
			return nil
		})
	}
	if ref != nil {
		g.Go(func() error {
			results, err := e.vectorIndex.Search(gctx, *ref.Vector, candidates+1)
			if err != nil {
				return fmt.Errorf("vector search failed: %w", err)
			}
			similarityScores = SimilarityScores(results, ref.ID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	kw, sim := q.KeywordWeight, q.SimilarityWeight
	switch {
	case ref == nil:
		kw, sim = 1, 0
	case q.Text == "":
		kw, sim = 0, 1
	}
	fused := Fuse(keywordScores, similarityScores, kw, sim)
	if q.Text != "" && ref != nil {
		// Both given: only profiles matching the text are wanted.
		filtered := fused[:0]
		for _, r := range fused {
			if _, ok := keywordScores[r.ProfileID]; ok {
				filtered = append(filtered, r)
			}
		}
		fused = filtered
	}
	if q.MinScore > 0 {
		filtered := fused[:0]
		for _, r := range fused {
			if r.Score >= q.MinScore {
				filtered = append(filtered, r)
			}
		}
		fused = filtered
	}

	start := min(q.Offset, len(fused))
	end := min(q.Offset+q.Limit, len(fused))
	page := fused[start:end]

	response := &Response{
		Results: make([]*Result, 0, len(page)),
		Total:   len(fused),
		Query:   q,
	}
	for i, r := range page {
		p, err := e.storage.GetProfile(ctx, r.ProfileID)
		if err != nil {
			continue
		}
		response.Results = append(response.Results, &Result{
			Profile:         p,
			Score:           r.Score,
			KeywordScore:    r.KeywordScore,
			SimilarityScore: r.SimilarityScore,
			Rank:            start + i + 1,
		})
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// Similar returns the k stored profiles most similar to the profile id,
// excluding the profile itself. k <= 0 uses the configured default.
func (e *Engine) Similar(ctx context.Context, id string, k int) ([]*models.Match, error) {
	p, err := e.storage.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Vector == nil {
		return nil, fmt.Errorf("profile %s has no vector", p.ID)
	}
	return e.Nearest(ctx, *p.Vector, k, p.ID)
}

// Nearest returns the k stored profiles most similar to v, skipping exclude.
// Ties are broken by profile ID.
func (e *Engine) Nearest(ctx context.Context, v models.FeatureVector, k int, exclude string) ([]*models.Match, error) {
	if k <= 0 {
		k = e.config.DefaultSimilar
	}
	if e.config.MaxLimit > 0 && k > e.config.MaxLimit {
		k = e.config.MaxLimit
	}
	want := k
	if exclude != "" {
		want++
	}
	hits, err := e.vectorIndex.Search(ctx, v, want)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	matches := make([]*models.Match, 0, k)
	for _, h := range hits {
		if h.ID == exclude {
			continue
		}
		if len(matches) == k {
			break
		}
		p, err := e.storage.GetProfile(ctx, h.ID)
		if err != nil {
			continue
		}
		matches = append(matches, &models.Match{Profile: p, Score: h.Score})
	}
	return matches, nil
}
