// Package pipeline runs the encode, similarity, cluster and projection stages
// over one collection of profiles.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hyperjump/cohort/internal/cluster"
	"github.com/hyperjump/cohort/internal/encoder"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/projection"
	"github.com/hyperjump/cohort/internal/schema"
	"github.com/hyperjump/cohort/internal/vector"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Request selects the downstream stages of a run.
type Request struct {
	Cluster    bool
	Threshold  *float64
	Project    bool
	Projection projection.Options
	// SkipInvalid drops profiles that fail to encode and reports them in
	// Analysis.Rejected instead of aborting the run.
	SkipInvalid bool
}

// Engine owns no state beyond its schema and encoder.
type Engine struct {
	schema  *schema.Schema
	encoder *encoder.Encoder
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	logger  *zap.Logger
	cache   *encoder.VectorCache
	workers int
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// WithCache shares an encoded vector cache across runs.
func WithCache(c *encoder.VectorCache) Option {
	return func(o *engineOptions) { o.cache = c }
}

// WithWorkers bounds parallel encoding.
func WithWorkers(n int) Option {
	return func(o *engineOptions) { o.workers = n }
}

// NewEngine creates an engine for profiles of schema s.
func NewEngine(s *schema.Schema, opts ...Option) *Engine {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	encOpts := []encoder.Option{encoder.WithLogger(logger), encoder.WithWorkers(o.workers)}
	if o.cache != nil {
		encOpts = append(encOpts, encoder.WithCache(o.cache))
	}
	return &Engine{
		schema:  s,
		encoder: encoder.New(s, encOpts...),
		logger:  logger,
	}
}

// Schema returns the engine's schema.
func (e *Engine) Schema() *schema.Schema {
	return e.schema
}

// Run analyzes profiles. The returned Members are in input order, minus any
// profiles rejected under SkipInvalid, and index every matrix row.
func (e *Engine) Run(ctx context.Context, profiles []*models.Profile, req Request) (*models.Analysis, error) {
	start := time.Now()
	if len(profiles) == 0 {
		return nil, models.ErrEmptyInput
	}
	if req.Cluster && req.Threshold == nil {
		return nil, fmt.Errorf("clustering requested without a threshold: %w", models.ErrInvalidThreshold)
	}
	if req.Project && req.Projection.Seed == nil {
		return nil, models.ErrSeedRequired
	}

	kept, vectors, rejected, err := e.encode(ctx, profiles, req.SkipInvalid)
	if err != nil {
		return nil, err
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("all %d profiles rejected: %w", len(profiles), models.ErrEmptyInput)
	}

	sim, err := vector.SimilarityMatrix(vectors)
	if err != nil {
		return nil, fmt.Errorf("similarity: %w", err)
	}
	dist := vector.Distances(sim)

	analysis := &models.Analysis{
		SchemaVersion: e.schema.Version,
		Members:       make([]*models.Member, len(kept)),
		Similarity:    vector.Rows(sim),
		Distance:      vector.Rows(dist),
		Rejected:      rejected,
	}
	for i, p := range kept {
		analysis.Members[i] = &models.Member{
			Index:  i,
			ID:     p.ID,
			Label:  p.Label,
			Vector: vectors[i].Values,
		}
	}

	if err := e.downstream(ctx, dist, req, analysis); err != nil {
		return nil, err
	}

	analysis.ElapsedMs = time.Since(start).Milliseconds()
	e.logger.Debug("analysis complete",
		zap.Int("profiles", len(kept)),
		zap.Int("rejected", len(rejected)),
		zap.Int("groups", len(analysis.Groups)),
		zap.Int64("elapsed_ms", analysis.ElapsedMs),
	)
	return analysis, nil
}

// encode derives a vector per profile. A stored vector of the engine's schema
// version and length is reused as is.
func (e *Engine) encode(ctx context.Context, profiles []*models.Profile, skipInvalid bool) ([]*models.Profile, []models.FeatureVector, []*models.RecordError, error) {
	vectors := make([]models.FeatureVector, len(profiles))
	errs := make([]error, len(profiles))

	var pending []*models.Profile
	var pendingIdx []int
	for i, p := range profiles {
		if v := p.Vector; v != nil && v.SchemaVersion == e.schema.Version && v.Len() == e.schema.Length() {
			vectors[i] = *v
			continue
		}
		pending = append(pending, p)
		pendingIdx = append(pendingIdx, i)
	}
	if len(pending) > 0 {
		results, err := e.encoder.EncodeAll(ctx, pending)
		if err != nil {
			return nil, nil, nil, err
		}
		for k, r := range results {
			vectors[pendingIdx[k]] = r.Vector
			errs[pendingIdx[k]] = r.Err
		}
	}

	var kept []*models.Profile
	var keptVectors []models.FeatureVector
	var rejected []*models.RecordError
	var failures []error
	for i, p := range profiles {
		if errs[i] == nil {
			kept = append(kept, p)
			keptVectors = append(keptVectors, vectors[i])
			continue
		}
		failures = append(failures, errs[i])
		rejected = append(rejected, models.NewRecordError(i, p, errs[i]))
	}
	if len(failures) > 0 && !skipInvalid {
		return nil, nil, nil, errors.Join(failures...)
	}
	return kept, keptVectors, rejected, nil
}

// downstream runs clustering and projection concurrently; both only read dist.
func (e *Engine) downstream(ctx context.Context, dist *mat.SymDense, req Request, analysis *models.Analysis) error {
	g, _ := errgroup.WithContext(ctx)

	if req.Cluster {
		g.Go(func() error {
			assignment, merges, err := cluster.Dendrogram(dist, *req.Threshold)
			if err != nil {
				return fmt.Errorf("cluster: %w", err)
			}
			for i, id := range assignment {
				analysis.Members[i].ClusterID = &id
			}
			for id, members := range assignment.Groups() {
				analysis.Groups = append(analysis.Groups, models.Group{ID: id, Members: members})
			}
			analysis.Merges = merges
			threshold := *req.Threshold
			analysis.Threshold = &threshold
			return nil
		})
	}

	if req.Project {
		g.Go(func() error {
			res, err := projection.Run(dist, req.Projection)
			if err != nil {
				return fmt.Errorf("projection: %w", err)
			}
			for i, c := range res.Coordinates {
				analysis.Members[i].Coordinates = c
			}
			seed := *req.Projection.Seed
			analysis.Seed = &seed
			analysis.Stress = &res.Stress
			return nil
		})
	}

	return g.Wait()
}
