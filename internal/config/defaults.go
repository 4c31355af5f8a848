package config

import "runtime"

// ApplyDefaults sets default values for any zero values in cfg. The cluster
// threshold and projection seed are left alone.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/cohort/data/db/profiles.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/cohort/data/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "/usr/local/var/cohort/data/indices/vectors.bin"
	}
	if cfg.Projection.Dimensions == 0 {
		cfg.Projection.Dimensions = 2
	}
	if cfg.Projection.NInit == 0 {
		cfg.Projection.NInit = 4
	}
	if cfg.Projection.MaxIter == 0 {
		cfg.Projection.MaxIter = 300
	}
	if cfg.Projection.Eps == 0 {
		cfg.Projection.Eps = 1e-3
	}
	if cfg.Encoding.Workers == 0 {
		cfg.Encoding.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Encoding.CacheSize == 0 {
		cfg.Encoding.CacheSize = 10000
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.DefaultSimilar == 0 {
		cfg.Search.DefaultSimilar = 5
	}
	if cfg.Search.Candidates == 0 {
		cfg.Search.Candidates = 50
	}
	if cfg.Search.LabelBoost == 0 {
		cfg.Search.LabelBoost = 2.0
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SimilarityWeight == 0 {
		cfg.Search.KeywordWeight = 0.5
		cfg.Search.SimilarityWeight = 0.5
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".json", ".yaml", ".yml", ".xlsx"}
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
