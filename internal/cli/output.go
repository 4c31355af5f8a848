package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/cohort/internal/indexer"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/search"
	"github.com/mattn/go-runewidth"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputXLSX is an xlsx workbook. Only analyses support it.
	OutputXLSX OutputFormat = "xlsx"
)

// ParseFormat validates a --output value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON, OutputXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or xlsx)", s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnalysis writes an analysis in the given format.
func WriteAnalysis(w io.Writer, a *models.Analysis, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, a)
	case OutputXLSX:
		return WriteWorkbook(w, a)
	default:
		fmt.Fprintf(w, "Analyzed %d profiles (schema %s) in %dms\n", len(a.Members), a.SchemaVersion, a.ElapsedMs)
		WriteSimilarityMatrix(w, a)
		WriteClusters(w, a)
		WriteCoordinates(w, a)
		WriteRejected(w, a.Rejected)
		return nil
	}
}

// WriteSearchResults writes search results in the given format.
func WriteSearchResults(w io.Writer, resp *search.Response, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nFound %d profiles in %dms\n\n", resp.Total, resp.QueryTime)
	for _, r := range resp.Results {
		fmt.Fprintf(w, "%3d. %s (%s)  score %.4f", r.Rank, r.Profile.Label, r.Profile.ID, r.Score)
		if r.KeywordScore > 0 && r.SimilarityScore > 0 {
			fmt.Fprintf(w, "  [keyword %.4f, similarity %.4f]", r.KeywordScore, r.SimilarityScore)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteMatches writes nearest-profile matches for the profile labelled of.
func WriteMatches(w io.Writer, of string, matches []*models.Match, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, matches)
	}
	fmt.Fprintf(w, "\nMost similar to %s:\n", of)
	if len(matches) == 0 {
		fmt.Fprintln(w, "  (no other profiles)")
		return nil
	}
	width := 0
	for _, m := range matches {
		width = max(width, runewidth.StringWidth(m.Profile.Label))
	}
	for i, m := range matches {
		fmt.Fprintf(w, "%3d. %s  %.4f  %s\n", i+1, runewidth.FillRight(m.Profile.Label, width), m.Score, m.Profile.ID)
	}
	return nil
}

// WriteProfiles writes a profile listing. Text output shows one line per
// profile; WriteProfile shows every field.
func WriteProfiles(w io.Writer, profiles []*models.Profile, total int64, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]any{"profiles": profiles, "total": total})
	}
	fmt.Fprintf(w, "%d of %d profiles\n", len(profiles), total)
	for _, p := range profiles {
		line := fmt.Sprintf("%s  %s", p.ID, p.Label)
		if p.Source != "" {
			line += "  [" + p.Source + "]"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// WriteProfile writes one profile with its fields sorted by name.
func WriteProfile(w io.Writer, p *models.Profile, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, p)
	}
	fmt.Fprintf(w, "ID:      %s\nLabel:   %s\nSchema:  %s\n", p.ID, p.Label, p.SchemaVersion)
	if p.Source != "" {
		fmt.Fprintf(w, "Source:  %s\n", p.Source)
	}
	names := make([]string, 0, len(p.Fields))
	for name := range p.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-22s %v\n", name, p.Fields[name])
	}
	return nil
}

// WriteImportReports writes the outcome of importing one or more files.
func WriteImportReports(w io.Writer, reports []*indexer.ImportReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, reports)
	}
	for _, r := range reports {
		fmt.Fprintf(w, "%s: %d imported, %d rejected, %d removed\n",
			r.Source, r.Imported, len(r.Rejected), r.Removed)
		for _, re := range r.Rejected {
			fmt.Fprintf(w, "  row %d (%s): %s\n", re.Index, re.ProfileID, re.Error)
		}
		if len(r.StaleVectors) > 0 {
			fmt.Fprintf(w, "  re-derived vectors differ from supplied ones: %s\n", strings.Join(r.StaleVectors, ", "))
		}
	}
	return nil
}
