// Package cluster groups items by complete-linkage agglomerative clustering
// over a distance matrix.
package cluster

import (
	"fmt"
	"math"

	"github.com/hyperjump/cohort/internal/models"
	"gonum.org/v1/gonum/mat"
)

type node struct {
	lead    int // smallest member index
	members []int
}

// Agglomerate partitions the items of dist into clusters. Starting from
// singletons it repeatedly merges the two closest clusters while their
// complete-linkage distance is at most threshold.
//
// Ties go to the pair with the lexicographically smallest (lead, lead), where
// a cluster's lead is its smallest member index. Cluster ids are contiguous from
// 0 and assigned in order of lead.
func Agglomerate(dist mat.Symmetric, threshold float64) (models.ClusterAssignment, error) {
	a, _, err := Dendrogram(dist, threshold)
	return a, err
}

// Dendrogram is Agglomerate that also returns the merges in the order performed.
func Dendrogram(dist mat.Symmetric, threshold float64) (models.ClusterAssignment, []models.Merge, error) {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, nil, fmt.Errorf("threshold %v: %w", threshold, models.ErrInvalidThreshold)
	}
	n := dist.SymmetricDim()
	if n == 0 {
		return nil, nil, models.ErrEmptyInput
	}

	// nodes stays sorted by lead: a merge keeps the lower slot, whose lead is
	// the smaller of the two, and removes the higher one.
	nodes := make([]*node, n)
	link := make([][]float64, n)
	for i := 0; i < n; i++ {
		nodes[i] = &node{lead: i, members: []int{i}}
		link[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			link[i][j] = dist.At(i, j)
		}
	}

	var merges []models.Merge
	for len(nodes) > 1 {
		bi, bj := -1, -1
		best := math.Inf(1)
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				if d := link[i][j]; d < best {
					best, bi, bj = d, i, j
				}
			}
		}
		if bi < 0 || best > threshold {
			break
		}

		merged := &node{
			lead:    nodes[bi].lead,
			members: append(nodes[bi].members, nodes[bj].members...),
		}
		merges = append(merges, models.Merge{
			Left:     nodes[bi].lead,
			Right:    nodes[bj].lead,
			Distance: best,
			Size:     len(merged.members),
		})

		// Complete linkage: d(a∪b, c) = max(d(a,c), d(b,c)).
		for k := range nodes {
			if k == bi || k == bj {
				continue
			}
			d := math.Max(link[bi][k], link[bj][k])
			link[bi][k], link[k][bi] = d, d
		}
		nodes[bi] = merged
		nodes = append(nodes[:bj], nodes[bj+1:]...)
		link = append(link[:bj], link[bj+1:]...)
		for k := range link {
			link[k] = append(link[k][:bj], link[k][bj+1:]...)
		}
	}

	assignment := make(models.ClusterAssignment, n)
	for id, nd := range nodes {
		for _, m := range nd.members {
			assignment[m] = id
		}
	}
	return assignment, merges, nil
}

// MaxDistance returns the largest off-diagonal entry of dist, or 0 for fewer than two items.
func MaxDistance(dist mat.Symmetric) float64 {
	n := dist.SymmetricDim()
	maxD := 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			maxD = math.Max(maxD, dist.At(i, j))
		}
	}
	return maxD
}
