package search

import (
	"sort"

	"github.com/hyperjump/cohort/internal/keyword"
	"github.com/hyperjump/cohort/internal/vector"
)

// FusedResult holds a profile ID with its keyword and similarity scores.
type FusedResult struct {
	ProfileID       string
	Score           float64
	KeywordScore    float64
	SimilarityScore float64
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []*keyword.KeywordResult) map[string]float64 {
	normalized := make(map[string]float64, len(results))
	if len(results) == 0 {
		return normalized
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// SimilarityScores maps vector hits to their cosine similarity, dropping exclude.
func SimilarityScores(results []*vector.Result, exclude string) map[string]float64 {
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		if r.ID == exclude {
			continue
		}
		scores[r.ID] = r.Score
	}
	return scores
}

// Fuse merges keyword and similarity score maps with weights. Results are sorted
// by fused score descending, then by ID.
func Fuse(keywordScores, similarityScores map[string]float64, keywordWeight, similarityWeight float64) []*FusedResult {
	byID := make(map[string]*FusedResult, len(keywordScores)+len(similarityScores))
	for id, score := range keywordScores {
		byID[id] = &FusedResult{ProfileID: id, KeywordScore: score}
	}
	for id, score := range similarityScores {
		if r, ok := byID[id]; ok {
			r.SimilarityScore = score
		} else {
			byID[id] = &FusedResult{ProfileID: id, SimilarityScore: score}
		}
	}
	results := make([]*FusedResult, 0, len(byID))
	for _, r := range byID {
		r.Score = keywordWeight*r.KeywordScore + similarityWeight*r.SimilarityScore
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ProfileID < results[j].ProfileID
	})
	return results
}
