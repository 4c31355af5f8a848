// Package indexer stores profiles and keeps the keyword and vector indices in step with storage.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/cohort/internal/encoder"
	"github.com/hyperjump/cohort/internal/fileid"
	"github.com/hyperjump/cohort/internal/ingest"
	"github.com/hyperjump/cohort/internal/keyword"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/storage"
	"github.com/hyperjump/cohort/internal/vector"
	"go.uber.org/zap"
)

// Indexer indexes profiles into storage, keyword index, and vector index.
type Indexer struct {
	storage      storage.Storage
	encoder      *encoder.Encoder
	vectorIndex  vector.Index
	keywordIndex keyword.KeywordIndex
	loader       *ingest.Loader
	logger       *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output (file imported, profile deleted, etc.).
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer with the given dependencies. Files are read
// with a loader for the encoder's schema.
func NewIndexer(
	storage storage.Storage,
	enc *encoder.Encoder,
	vectorIndex vector.Index,
	keywordIndex keyword.KeywordIndex,
	opts ...IndexerOption,
) *Indexer {
	idx := &Indexer{
		storage:      storage,
		encoder:      enc,
		vectorIndex:  vectorIndex,
		keywordIndex: keywordIndex,
		loader:       ingest.NewLoader(enc.Schema()),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// ImportReport summarizes one file import.
type ImportReport struct {
	Source   string                `json:"source"`
	Imported int                   `json:"imported"`
	Removed  int                   `json:"removed"`
	Rejected []*models.RecordError `json:"rejected,omitempty"`
	// StaleVectors lists profiles whose supplied vector disagreed with the
	// re-derived one. The re-derived vector is stored.
	StaleVectors []string `json:"stale_vectors,omitempty"`
}

// IndexProfile encodes and stores a profile, replacing any profile with the
// same ID. A missing ID is generated. Encoding failures are returned as
// *models.FieldError and nothing is stored.
func (idx *Indexer) IndexProfile(ctx context.Context, input *models.ProfileInput) (*models.Profile, error) {
	p, _, err := idx.indexProfile(ctx, input)
	return p, err
}

func (idx *Indexer) indexProfile(ctx context.Context, input *models.ProfileInput) (*models.Profile, bool, error) {
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	label := input.Label
	if label == "" {
		label = input.ID
	}
	p := &models.Profile{
		ID:            input.ID,
		Label:         label,
		SchemaVersion: idx.encoder.Schema().Version,
		Fields:        input.Fields,
		Source:        input.Source,
	}
	vec, err := idx.encoder.Encode(p)
	if err != nil {
		return nil, false, err
	}
	p.Vector = &vec

	stale := false
	if input.Vector != nil && !vec.Equal(models.FeatureVector{SchemaVersion: vec.SchemaVersion, Values: input.Vector}) {
		stale = true
		idx.logger.Warn("supplied vector differs from encoding",
			zap.String("id", p.ID), zap.Ints("supplied", input.Vector), zap.Ints("encoded", vec.Values))
	}

	existing, err := idx.storage.GetProfile(ctx, p.ID)
	switch {
	case err == nil:
		p.CreatedAt = existing.CreatedAt
		err = idx.storage.UpdateProfile(ctx, p)
	case errors.Is(err, models.ErrNotFound):
		err = idx.storage.CreateProfile(ctx, p)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to store profile: %w", err)
	}
	if err := idx.vectorIndex.Add(ctx, []string{p.ID}, []models.FeatureVector{vec}); err != nil {
		return nil, false, fmt.Errorf("failed to index vector: %w", err)
	}
	if err := idx.keywordIndex.Index(ctx, p); err != nil {
		return nil, false, fmt.Errorf("failed to index keywords: %w", err)
	}
	return p, stale, nil
}

// IndexFile imports every record of the file at path. If allowedExts is non-nil
// and non-empty, the file's extension must be in the list (case-insensitive).
//
// Records without an ID get one derived from the path and row, so re-importing
// a file replaces its profiles. Profiles from an earlier import of the same file
// that are no longer present are removed. Records that fail to encode are
// reported and skipped; the rest are imported.
func (idx *Indexer) IndexFile(ctx context.Context, path string, allowedExts []string) (*ImportReport, error) {
	idx.logger.Debug("indexer importing file", zap.String("path", path))
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	if !ingest.Supported(ext) {
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	inputs, err := idx.loader.Load(absPath)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", absPath, err)
	}

	source := fileid.Source(absPath)
	report := &ImportReport{Source: source}
	present := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		if in.ID == "" {
			in.ID = fileid.RowID(absPath, i)
		}
		in.Source = source
		present[in.ID] = true
	}

	previous, err := idx.storage.ListProfilesBySource(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("list previous import: %w", err)
	}
	for _, p := range previous {
		if present[p.ID] {
			continue
		}
		if err := idx.DeleteProfile(ctx, p.ID); err != nil {
			return nil, err
		}
		report.Removed++
	}

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		_, stale, err := idx.indexProfile(ctx, in)
		if err != nil {
			var fe *models.FieldError
			if !errors.As(err, &fe) {
				return nil, err
			}
			report.Rejected = append(report.Rejected, models.NewRecordError(i,
				&models.Profile{ID: in.ID, Label: in.Label}, err))
			idx.logger.Warn("rejected record", zap.String("path", absPath), zap.Int("row", i), zap.Error(err))
			continue
		}
		if stale {
			report.StaleVectors = append(report.StaleVectors, in.ID)
		}
		report.Imported++
	}
	idx.logger.Debug("indexer file imported",
		zap.String("path", absPath),
		zap.Int("imported", report.Imported),
		zap.Int("rejected", len(report.Rejected)),
		zap.Int("removed", report.Removed))
	return report, nil
}

// IndexDirectory walks dir recursively and imports each regular file whose extension
// is in allowedExts (if non-nil and non-empty; otherwise every supported file).
// Returns one report per imported file and the first error encountered, if any.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string, allowedExts []string) ([]*ImportReport, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}
	var reports []*ImportReport
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
			return nil
		}
		if !ingest.Supported(ext) {
			return nil
		}
		// Resolve symlinks so we only import regular files
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		report, indexErr := idx.IndexFile(ctx, path, allowedExts)
		if indexErr != nil {
			return indexErr
		}
		reports = append(reports, report)
		return nil
	})
	return reports, err
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// DeleteProfile removes a profile from all indices and storage.
func (idx *Indexer) DeleteProfile(ctx context.Context, id string) error {
	idx.logger.Debug("indexer deleting profile", zap.String("id", id))
	if err := idx.keywordIndex.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	if err := idx.vectorIndex.Remove(ctx, []string{id}); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if err := idx.storage.DeleteProfile(ctx, id); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}

// DeleteSource removes every profile imported from the file at path and
// returns how many were removed.
func (idx *Indexer) DeleteSource(ctx context.Context, path string) (int, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	ids, err := idx.storage.DeleteProfilesBySource(ctx, fileid.Source(absPath))
	if err != nil {
		return 0, fmt.Errorf("failed to delete profiles: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	for _, id := range ids {
		if err := idx.keywordIndex.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("failed to delete from keyword index: %w", err)
		}
	}
	if err := idx.vectorIndex.Remove(ctx, ids); err != nil {
		return 0, fmt.Errorf("failed to delete from vector index: %w", err)
	}
	idx.logger.Debug("indexer source deleted", zap.String("source", absPath), zap.Int("profiles", len(ids)))
	return len(ids), nil
}

// Rebuild re-adds every stored profile to the keyword and vector indices.
// Profiles stored under another schema version are skipped. It returns the
// number of profiles indexed.
func (idx *Indexer) Rebuild(ctx context.Context) (int, error) {
	profiles, err := idx.storage.ListProfiles(ctx, 0, 0)
	if err != nil {
		return 0, fmt.Errorf("list profiles: %w", err)
	}
	version := idx.encoder.Schema().Version
	var ids []string
	var vectors []models.FeatureVector
	for _, p := range profiles {
		if p.SchemaVersion != version || p.Vector == nil {
			idx.logger.Warn("skipping profile from another schema",
				zap.String("id", p.ID), zap.String("schema_version", p.SchemaVersion))
			continue
		}
		if err := idx.keywordIndex.Index(ctx, p); err != nil {
			return 0, fmt.Errorf("failed to index keywords: %w", err)
		}
		ids = append(ids, p.ID)
		vectors = append(vectors, *p.Vector)
	}
	if len(ids) > 0 {
		if err := idx.vectorIndex.Add(ctx, ids, vectors); err != nil {
			return 0, fmt.Errorf("failed to index vectors: %w", err)
		}
	}
	return len(ids), nil
}
