package cluster

import (
	"math"
	"testing"

	"github.com/hyperjump/cohort/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sym(rows [][]float64) *mat.SymDense {
	n := len(rows)
	m := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			m.SetSym(i, j, rows[i][j])
		}
	}
	return m
}

var fourPoints = sym([][]float64{
	{0, 0.2, 0.9, 0.8},
	{0.2, 0, 0.7, 0.95},
	{0.9, 0.7, 0, 0.3},
	{0.8, 0.95, 0.3, 0},
})

func TestAgglomerate_ZeroThreshold(t *testing.T) {
	a, err := Agglomerate(fourPoints, 0)
	require.NoError(t, err)
	assert.Equal(t, models.ClusterAssignment{0, 1, 2, 3}, a)
}

func TestAgglomerate_NegativeThreshold(t *testing.T) {
	a, err := Agglomerate(fourPoints, -1)
	require.NoError(t, err)
	assert.Len(t, a.Groups(), 4)
}

func TestAgglomerate_MaxThreshold(t *testing.T) {
	a, err := Agglomerate(fourPoints, MaxDistance(fourPoints))
	require.NoError(t, err)
	assert.Equal(t, models.ClusterAssignment{0, 0, 0, 0}, a)
}

func TestAgglomerate_CompleteLinkage(t *testing.T) {
	// Single linkage would join {0,1} and {2,3} at 0.7; complete linkage needs 0.95.
	a, merges, err := Dendrogram(fourPoints, 0.9)
	require.NoError(t, err)
	assert.Equal(t, models.ClusterAssignment{0, 0, 1, 1}, a)
	require.Len(t, merges, 2)
	assert.Equal(t, models.Merge{Left: 0, Right: 1, Distance: 0.2, Size: 2}, merges[0])
	assert.Equal(t, models.Merge{Left: 2, Right: 3, Distance: 0.3, Size: 2}, merges[1])

	a, merges, err = Dendrogram(fourPoints, 0.95)
	require.NoError(t, err)
	assert.Equal(t, models.ClusterAssignment{0, 0, 0, 0}, a)
	require.Len(t, merges, 3)
	assert.Equal(t, 0.95, merges[2].Distance)
	assert.Equal(t, 4, merges[2].Size)
}

func TestAgglomerate_TieBreak(t *testing.T) {
	// Every pair is equally close: (0,1) merges first, then the pair {0,1} with 2.
	eq := sym([][]float64{
		{0, 0.5, 0.5},
		{0.5, 0, 0.5},
		{0.5, 0.5, 0},
	})
	_, merges, err := Dendrogram(eq, 0.5)
	require.NoError(t, err)
	require.Len(t, merges, 2)
	assert.Equal(t, 0, merges[0].Left)
	assert.Equal(t, 1, merges[0].Right)
	assert.Equal(t, 0, merges[1].Left)
	assert.Equal(t, 2, merges[1].Right)

	// Tie between (1,2) and (0,3): the pair with the smaller lead wins.
	tie := sym([][]float64{
		{0, 0.9, 0.9, 0.4},
		{0.9, 0, 0.4, 0.9},
		{0.9, 0.4, 0, 0.9},
		{0.4, 0.9, 0.9, 0},
	})
	_, merges, err = Dendrogram(tie, 0.4)
	require.NoError(t, err)
	require.Len(t, merges, 2)
	assert.Equal(t, models.Merge{Left: 0, Right: 3, Distance: 0.4, Size: 2}, merges[0])
	assert.Equal(t, models.Merge{Left: 1, Right: 2, Distance: 0.4, Size: 2}, merges[1])
}

func TestAgglomerate_IDsOrderedByLead(t *testing.T) {
	d := sym([][]float64{
		{0, 0.9, 0.1},
		{0.9, 0, 0.9},
		{0.1, 0.9, 0},
	})
	a, err := Agglomerate(d, 0.5)
	require.NoError(t, err)
	assert.Equal(t, models.ClusterAssignment{0, 1, 0}, a)
}

func TestAgglomerate_Single(t *testing.T) {
	a, err := Agglomerate(sym([][]float64{{0}}), 0.5)
	require.NoError(t, err)
	assert.Equal(t, models.ClusterAssignment{0}, a)
}

func TestAgglomerate_InvalidThreshold(t *testing.T) {
	_, err := Agglomerate(fourPoints, math.NaN())
	assert.ErrorIs(t, err, models.ErrInvalidThreshold)
	_, err = Agglomerate(fourPoints, math.Inf(1))
	assert.ErrorIs(t, err, models.ErrInvalidThreshold)
}

func TestAgglomerate_IdenticalPair(t *testing.T) {
	// A and B identical, C unrelated.
	d := sym([][]float64{
		{0, 0, 1},
		{0, 0, 1},
		{1, 1, 0},
	})
	a, err := Agglomerate(d, 0.5)
	require.NoError(t, err)
	assert.Equal(t, a[0], a[1])
	assert.NotEqual(t, a[0], a[2])
}
