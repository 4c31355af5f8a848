package pipeline

import (
	"github.com/hyperjump/cohort/internal/config"
	"github.com/hyperjump/cohort/internal/projection"
)

// RequestFromConfig returns a request running both downstream stages with the
// configured threshold, projection settings and invalid record policy.
// Callers override fields per run.
func RequestFromConfig(cfg *config.Config) Request {
	p := cfg.Projection
	return Request{
		Cluster:   true,
		Threshold: cfg.Cluster.DistanceThreshold,
		Project:   true,
		Projection: projection.Options{
			Dimensions: p.Dimensions,
			Seed:       p.Seed,
			NInit:      p.NInit,
			MaxIter:    p.MaxIter,
			Eps:        p.Eps,
		},
		SkipInvalid: cfg.Encoding.SkipInvalid,
	}
}
