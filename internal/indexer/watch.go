package indexer

import (
	"context"

	"go.uber.org/zap"
)

// FileHandler imports watched files through an Indexer. It satisfies
// watcher.Handler.
type FileHandler struct {
	indexer    *Indexer
	extensions []string
}

// NewFileHandler returns a handler importing files with one of extensions.
func NewFileHandler(idx *Indexer, extensions []string) *FileHandler {
	return &FileHandler{indexer: idx, extensions: extensions}
}

// FileChanged re-imports the file at path.
func (h *FileHandler) FileChanged(ctx context.Context, path string) error {
	report, err := h.indexer.IndexFile(ctx, path, h.extensions)
	if err != nil {
		return err
	}
	h.indexer.logger.Info("imported profiles",
		zap.String("source", report.Source),
		zap.Int("imported", report.Imported),
		zap.Int("rejected", len(report.Rejected)),
		zap.Int("removed", report.Removed))
	return nil
}

// FileRemoved drops the profiles imported from path.
func (h *FileHandler) FileRemoved(ctx context.Context, path string) error {
	n, err := h.indexer.DeleteSource(ctx, path)
	if err != nil {
		return err
	}
	if n > 0 {
		h.indexer.logger.Info("removed profiles", zap.String("source", path), zap.Int("profiles", n))
	}
	return nil
}
