// Package vector computes cosine similarity between feature vectors and keeps an
// in-memory index for nearest-profile lookup.
package vector

import (
	"fmt"
	"math"

	"github.com/hyperjump/cohort/internal/models"
	"gonum.org/v1/gonum/mat"
)

// Cosine returns dot(u,v)/(|u||v|). A zero vector has similarity 0 with every
// vector, itself included, so the result is never NaN.
func Cosine(u, v []int) float64 {
	var dot, nu, nv int
	for i := range u {
		dot += u[i] * v[i]
		nu += u[i] * u[i]
		nv += v[i] * v[i]
	}
	if nu == 0 || nv == 0 {
		return 0
	}
	sim := float64(dot) / math.Sqrt(float64(nu)*float64(nv))
	return math.Max(-1, math.Min(1, sim))
}

// CheckComparable verifies vectors is non-empty and that all vectors share a
// schema version and length.
func CheckComparable(vectors []models.FeatureVector) error {
	if len(vectors) == 0 {
		return models.ErrEmptyInput
	}
	first := vectors[0]
	for i, v := range vectors[1:] {
		if v.SchemaVersion != first.SchemaVersion {
			return fmt.Errorf("vector %d has version %q, vector 0 has %q: %w", i+1, v.SchemaVersion, first.SchemaVersion, models.ErrSchemaMismatch)
		}
		if v.Len() != first.Len() {
			return fmt.Errorf("vector %d has length %d, vector 0 has %d: %w", i+1, v.Len(), first.Len(), models.ErrShapeMismatch)
		}
	}
	return nil
}

// SimilarityMatrix returns the N×N cosine similarity matrix. Each unordered pair
// is computed once; SymDense stores a single triangle, so entry (i,j) and (j,i)
// are the same value.
func SimilarityMatrix(vectors []models.FeatureVector) (*mat.SymDense, error) {
	if err := CheckComparable(vectors); err != nil {
		return nil, err
	}
	n := len(vectors)
	sim := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sim.SetSym(i, j, Cosine(vectors[i].Values, vectors[j].Values))
		}
	}
	return sim, nil
}

// Distances returns 1 - sim with a zero diagonal.
func Distances(sim mat.Symmetric) *mat.SymDense {
	n := sim.SymmetricDim()
	dist := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dist.SetSym(i, j, 1-sim.At(i, j))
		}
	}
	return dist
}

// Rows copies a symmetric matrix into nested slices for serialization.
func Rows(m mat.Symmetric) [][]float64 {
	n := m.SymmetricDim()
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		for j := range out[i] {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

// FromRows builds a symmetric matrix from a square nested slice, reading the
// upper triangle only.
func FromRows(rows [][]float64) (*mat.SymDense, error) {
	n := len(rows)
	if n == 0 {
		return nil, models.ErrEmptyInput
	}
	m := mat.NewSymDense(n, nil)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), n, models.ErrShapeMismatch)
		}
		for j := i; j < n; j++ {
			m.SetSym(i, j, row[j])
		}
	}
	return m, nil
}

// normalize returns v scaled to unit length as float32; a zero vector stays zero.
func normalize(v []int) []float32 {
	var sum int
	for _, x := range v {
		sum += x * x
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(float64(sum))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
