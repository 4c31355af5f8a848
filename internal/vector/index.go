package vector

import (
	"context"

	"github.com/hyperjump/cohort/internal/models"
)

// Index stores profile vectors for nearest-neighbour lookup by cosine similarity.
type Index interface {
	Add(ctx context.Context, ids []string, vectors []models.FeatureVector) error
	Search(ctx context.Context, query models.FeatureVector, k int) ([]*Result, error)
	Remove(ctx context.Context, ids []string) error
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}

// Result is a single nearest-neighbour hit.
type Result struct {
	ID    string
	Score float64 // cosine similarity
}
