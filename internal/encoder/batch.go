package encoder

import (
	"context"
	"runtime"

	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Encoder encodes batches of profiles against one schema, optionally caching results.
type Encoder struct {
	schema  *schema.Schema
	cache   *VectorCache
	workers int
	logger  *zap.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithCache reuses vectors across calls.
func WithCache(c *VectorCache) Option {
	return func(e *Encoder) { e.cache = c }
}

// WithWorkers bounds the number of profiles encoded concurrently.
func WithWorkers(n int) Option {
	return func(e *Encoder) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Encoder) { e.logger = l }
}

// New creates an encoder for s.
func New(s *schema.Schema, opts ...Option) *Encoder {
	e := &Encoder{schema: s, workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the encoder's schema.
func (e *Encoder) Schema() *schema.Schema {
	return e.schema
}

// Encode encodes one profile, consulting the cache when configured.
func (e *Encoder) Encode(p *models.Profile) (models.FeatureVector, error) {
	if e.cache == nil {
		return Encode(p, e.schema)
	}
	key, ok := CacheKey(e.schema.Version, p.Fields)
	if ok {
		if v, hit := e.cache.Get(key); hit {
			return v, nil
		}
	}
	v, err := Encode(p, e.schema)
	if err != nil {
		return v, err
	}
	if ok {
		e.cache.Set(key, v)
	}
	return v, nil
}

// Result is the outcome of encoding one profile in a batch.
type Result struct {
	Vector models.FeatureVector
	Err    error
}

// EncodeAll encodes profiles concurrently. Results are index-aligned with
// profiles; a bad record sets its own Err and never affects the others. The
// returned error is non-nil only when ctx is done.
func (e *Encoder) EncodeAll(ctx context.Context, profiles []*models.Profile) ([]Result, error) {
	results := make([]Result, len(profiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, p := range profiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := e.Encode(p)
			results[i] = Result{Vector: v, Err: err}
			if err != nil && e.logger != nil {
				e.logger.Debug("profile rejected", zap.Int("index", i), zap.String("id", p.ID), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
