package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/cohort/internal/models"
)

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An existing index is
// reused; remove the directory after changing the mapping to force a rebuild.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "math" matches "Math" exactly.
	im.DefaultAnalyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt(fieldLabel, textFieldMapping)
	docMapping.AddFieldMappingsAt(fieldText, textFieldMapping)
	sourceMapping := bleve.NewTextFieldMapping()
	sourceMapping.Analyzer = keywordanalyzer.Name
	docMapping.AddFieldMappingsAt(fieldSource, sourceMapping)
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index indexes (or re-indexes) a profile under its ID.
func (b *BleveIndex) Index(ctx context.Context, p *models.Profile) error {
	return b.index.Index(p.ID, profileDocument(p))
}

// Search returns up to limit profile IDs matching query, best first.
//
// A query containing "field:value" terms is parsed with the Bleve query string
// syntax, so "major:Math grade:3" restricts matches to those fields. Any other
// query matches against the label and the field values, with label matches
// scaled by LabelBoost.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return nil, nil
	}
	labelBoost := 1.0
	fuzzyEnabled := false
	fuzziness := 2
	if opts != nil {
		if opts.LabelBoost > 0 {
			labelBoost = opts.LabelBoost
		}
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	var q blevequery.Query
	if strings.Contains(query, ":") {
		q = bleve.NewQueryStringQuery(query)
	} else {
		label := b.fieldQuery(query, fieldLabel, fuzzyEnabled, fuzziness)
		label.(blevequery.BoostableQuery).SetBoost(labelBoost)
		q = bleve.NewDisjunctionQuery(label, b.fieldQuery(query, fieldText, fuzzyEnabled, fuzziness))
	}

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// fieldQuery matches query against one field. With fuzzy matching each term
// becomes a FuzzyQuery and any term may match.
func (b *BleveIndex) fieldQuery(query, field string, fuzzyEnabled bool, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(query)
	if !fuzzyEnabled || len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField(field)
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		fq.SetField(field)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Delete removes a profile from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of profiles in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
