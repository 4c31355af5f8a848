// Package cli renders analyses, lookups and import reports for the command line.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/cohort/internal/cluster"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/vector"
	"github.com/mattn/go-runewidth"
)

const cellWidth = 6

// WriteSimilarityMatrix writes the similarity matrix as a table with a header
// row of labels. Labels are padded to the widest one, never cut.
func WriteSimilarityMatrix(w io.Writer, a *models.Analysis) {
	fmt.Fprintln(w, "\nSimilarity Matrix:")
	width := labelWidth(a.Members)
	colWidth := max(cellWidth, width)

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", width))
	for _, m := range a.Members {
		b.WriteString(" ")
		b.WriteString(runewidth.FillLeft(m.Label, colWidth))
	}
	fmt.Fprintln(w, strings.TrimRight(b.String(), " "))

	for i, m := range a.Members {
		b.Reset()
		b.WriteString(runewidth.FillRight(m.Label, width))
		for j := range a.Members {
			b.WriteString(" ")
			b.WriteString(fmt.Sprintf("%*.2f", colWidth, a.Similarity[i][j]))
		}
		fmt.Fprintln(w, b.String())
	}
}

// WriteClusters writes one line per group listing member labels in index order.
func WriteClusters(w io.Writer, a *models.Analysis) {
	if a.Threshold == nil {
		return
	}
	if dist, err := vector.FromRows(a.Distance); err == nil {
		fmt.Fprintf(w, "\nCluster Results (distance threshold %.2f, max distance %.2f):\n", *a.Threshold, cluster.MaxDistance(dist))
	} else {
		fmt.Fprintf(w, "\nCluster Results (distance threshold %.2f):\n", *a.Threshold)
	}
	for _, g := range a.Groups {
		labels := make([]string, len(g.Members))
		for i, idx := range g.Members {
			labels[i] = a.Members[idx].Label
		}
		fmt.Fprintf(w, "Group %d: %s\n", g.ID, strings.Join(labels, ", "))
	}
}

// WriteCoordinates writes each member's embedded position.
func WriteCoordinates(w io.Writer, a *models.Analysis) {
	if a.Seed == nil {
		return
	}
	stress := 0.0
	if a.Stress != nil {
		stress = *a.Stress
	}
	fmt.Fprintf(w, "\nCoordinates (seed %d, stress %.4f):\n", *a.Seed, stress)
	width := labelWidth(a.Members)
	for _, m := range a.Members {
		parts := make([]string, len(m.Coordinates))
		for i, c := range m.Coordinates {
			parts[i] = fmt.Sprintf("%8.4f", c)
		}
		fmt.Fprintf(w, "%s %s\n", runewidth.FillRight(m.Label, width), strings.Join(parts, " "))
	}
}

// WriteRejected lists profiles left out of an analysis.
func WriteRejected(w io.Writer, rejected []*models.RecordError) {
	if len(rejected) == 0 {
		return
	}
	fmt.Fprintf(w, "\nRejected (%d):\n", len(rejected))
	for _, r := range rejected {
		name := r.Label
		if name == "" {
			name = r.ProfileID
		}
		fmt.Fprintf(w, "  #%d %s: %s\n", r.Index, name, r.Error)
	}
}

func labelWidth(members []*models.Member) int {
	width := 0
	for _, m := range members {
		width = max(width, runewidth.StringWidth(m.Label))
	}
	return width
}
