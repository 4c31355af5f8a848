// Package projection embeds items in a low-dimensional space so that Euclidean
// distances approximate a given distance matrix (metric MDS by SMACOF).
package projection

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/hyperjump/cohort/internal/models"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultDimensions = 2
	DefaultNInit      = 4
	DefaultMaxIter    = 300
	DefaultEps        = 1e-3
)

// Options controls an embedding run. Seed is required; the zero value of every
// other field selects its default.
type Options struct {
	Dimensions int
	Seed       *uint64
	NInit      int
	MaxIter    int
	Eps        float64
}

func (o Options) withDefaults() Options {
	if o.Dimensions == 0 {
		o.Dimensions = DefaultDimensions
	}
	if o.NInit == 0 {
		o.NInit = DefaultNInit
	}
	if o.MaxIter == 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Eps == 0 {
		o.Eps = DefaultEps
	}
	return o
}

// Result is an embedding with its raw stress, the sum over pairs of the
// squared difference between embedded and given distance.
type Result struct {
	Coordinates models.Embedding
	Stress      float64
	Iterations  int
}

// Embed returns the coordinates of Run.
func Embed(dist mat.Symmetric, opts Options) (models.Embedding, error) {
	res, err := Run(dist, opts)
	if err != nil {
		return nil, err
	}
	return res.Coordinates, nil
}

// Run performs NInit SMACOF restarts from random configurations drawn from one
// seeded stream and keeps the lowest-stress result. The output is centered on
// the origin and depends only on dist and opts.
//
// A matrix of all zeros places every item at the origin. A single item is
// placed at the origin.
func Run(dist mat.Symmetric, opts Options) (*Result, error) {
	if opts.Seed == nil {
		return nil, models.ErrSeedRequired
	}
	opts = opts.withDefaults()
	if opts.Dimensions < 0 || opts.NInit < 0 || opts.MaxIter < 0 || opts.Eps < 0 {
		return nil, fmt.Errorf("invalid projection options %+v", opts)
	}
	n := dist.SymmetricDim()
	if n == 0 {
		return nil, models.ErrEmptyInput
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if d := dist.At(i, j); math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
				return nil, fmt.Errorf("distance (%d,%d) = %v is not a valid dissimilarity", i, j, d)
			}
		}
	}

	if n == 1 {
		return &Result{Coordinates: models.Embedding{make([]float64, opts.Dimensions)}}, nil
	}

	rng := rand.New(rand.NewPCG(*opts.Seed, *opts.Seed))
	var best *mat.Dense
	bestStress := math.Inf(1)
	bestIter := 0
	for k := 0; k < opts.NInit; k++ {
		x, iters := smacof(dist, initial(rng, n, opts.Dimensions), opts)
		if s := stress(dist, x); s < bestStress {
			best, bestStress, bestIter = x, s, iters
		}
	}

	center(best)
	coords := make(models.Embedding, n)
	for i := range coords {
		coords[i] = append([]float64(nil), best.RawRowView(i)...)
	}
	return &Result{Coordinates: coords, Stress: stress(dist, best), Iterations: bestIter}, nil
}

func initial(rng *rand.Rand, n, dims int) *mat.Dense {
	data := make([]float64, n*dims)
	for i := range data {
		data[i] = rng.Float64()
	}
	return mat.NewDense(n, dims, data)
}

// smacof iterates the Guttman transform X ← B(X)·X / n until the normalized
// stress improves by less than eps.
func smacof(dist mat.Symmetric, x *mat.Dense, opts Options) (*mat.Dense, int) {
	n, _ := x.Dims()
	b := mat.NewDense(n, n, nil)
	oldStress := math.Inf(1)
	iter := 0
	for iter < opts.MaxIter {
		iter++
		s := stress(dist, x)
		if s == 0 {
			break
		}

		b.Zero()
		for i := 0; i < n; i++ {
			var rowSum float64
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				d := euclidean(x, i, j)
				if d == 0 {
					d = 1e-5
				}
				r := dist.At(i, j) / d
				b.Set(i, j, -r)
				rowSum += r
			}
			b.Set(i, i, rowSum)
		}

		var next mat.Dense
		next.Mul(b, x)
		next.Scale(1/float64(n), &next)
		x = &next

		norm := 0.0
		for i := 0; i < n; i++ {
			norm += mat.Norm(x.RowView(i), 2)
		}
		if norm == 0 {
			break
		}
		if oldStress-s/norm < opts.Eps {
			break
		}
		oldStress = s / norm
	}
	return x, iter
}

func stress(dist mat.Symmetric, x *mat.Dense) float64 {
	n, _ := x.Dims()
	var s float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			diff := euclidean(x, i, j) - dist.At(i, j)
			s += diff * diff
		}
	}
	return s
}

func euclidean(x *mat.Dense, i, j int) float64 {
	a, b := x.RawRowView(i), x.RawRowView(j)
	var sum float64
	for k := range a {
		d := a[k] - b[k]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func center(x *mat.Dense) {
	n, dims := x.Dims()
	for j := 0; j < dims; j++ {
		mean := stat.Mean(mat.Col(nil, j, x), nil)
		for i := 0; i < n; i++ {
			x.Set(i, j, x.At(i, j)-mean)
		}
	}
}
