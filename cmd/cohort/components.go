package main

import (
	"context"
	"fmt"

	"github.com/hyperjump/cohort/internal/config"
	"github.com/hyperjump/cohort/internal/encoder"
	"github.com/hyperjump/cohort/internal/indexer"
	"github.com/hyperjump/cohort/internal/keyword"
	"github.com/hyperjump/cohort/internal/pipeline"
	"github.com/hyperjump/cohort/internal/schema"
	"github.com/hyperjump/cohort/internal/search"
	"github.com/hyperjump/cohort/internal/storage"
	"github.com/hyperjump/cohort/internal/vector"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Config       *config.Config
	Schema       *schema.Schema
	Storage      storage.Storage
	VectorIndex  *vector.MemoryIndex
	KeywordIndex keyword.KeywordIndex
	Analyzer     *pipeline.Engine
	Search       *search.Engine
	Indexer      *indexer.Indexer
	logger       *zap.Logger
}

// Close saves the vector index and closes the stores.
func (c *Components) Close() {
	if c.VectorIndex != nil {
		if err := c.VectorIndex.Save(c.Config.Storage.VectorIndexPath); err != nil {
			c.logger.Warn("vector index save failed",
				zap.String("path", c.Config.Storage.VectorIndexPath), zap.Error(err))
		}
		_ = c.VectorIndex.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

// loadSchema returns the configured schema, or the built-in student schema.
func loadSchema(cfg *config.Config) (*schema.Schema, error) {
	if cfg.Schema.Path == "" {
		return schema.StudentV1(), nil
	}
	return schema.Load(cfg.Schema.Path)
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	sc, err := loadSchema(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	c := &Components{Config: cfg, Schema: sc, logger: logger}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = store

	keywordIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.KeywordIndex = keywordIndex

	count, err := store.CountProfiles(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to count profiles: %w", err)
	}
	vectorIndex, err := vector.NewMemoryIndex(sc.Version, sc.Length())
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}
	if loadErr := vectorIndex.Load(cfg.Storage.VectorIndexPath); loadErr != nil {
		logger.Warn("vector index load skipped, rebuilding from store",
			zap.String("path", cfg.Storage.VectorIndexPath), zap.Error(loadErr))
	}
	rebuild := int64(vectorIndex.Size()) != count
	if rebuild && vectorIndex.Size() > 0 {
		// Start from empty so profiles deleted while the file was stale drop out.
		vectorIndex, _ = vector.NewMemoryIndex(sc.Version, sc.Length())
	}
	c.VectorIndex = vectorIndex

	// Analyses and imports share one cache so re-imported rows and analyzed
	// stored profiles are encoded once.
	cache := encoder.NewVectorCache(cfg.Encoding.CacheSize)
	enc := encoder.New(sc,
		encoder.WithCache(cache),
		encoder.WithWorkers(cfg.Encoding.Workers),
		encoder.WithLogger(logger),
	)
	c.Analyzer = pipeline.NewEngine(sc,
		pipeline.WithCache(cache),
		pipeline.WithWorkers(cfg.Encoding.Workers),
		pipeline.WithLogger(logger),
	)
	c.Indexer = indexer.NewIndexer(store, enc, vectorIndex, keywordIndex, indexer.WithLogger(logger))
	c.Search = search.NewEngine(store, vectorIndex, keywordIndex, cfg.Search)

	if rebuild {
		n, err := c.Indexer.Rebuild(ctx)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to rebuild indices: %w", err)
		}
		logger.Info("indices rebuilt from store", zap.Int("profiles", n), zap.Int64("stored", count))
	}

	logger.Debug("components initialized",
		zap.String("schema_version", sc.Version),
		zap.Int("vector_length", sc.Length()),
		zap.Int("vector_index_size", vectorIndex.Size()))
	return c, nil
}
