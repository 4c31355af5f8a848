// Package config provides configuration loading and structs for the cohort server and CLI.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Schema     SchemaConfig     `yaml:"schema"`
	Cluster    ClusterConfig    `yaml:"cluster"`
	Projection ProjectionConfig `yaml:"projection"`
	Encoding   EncodingConfig   `yaml:"encoding"`
	Search     SearchConfig     `yaml:"search"`
	Watch      WatchConfig      `yaml:"watch"`
}

// WatchConfig holds import directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the profile database and indices.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	BleveIndexPath  string `yaml:"bleve_index_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// SchemaConfig selects the profile schema. An empty Path means the built-in student schema.
type SchemaConfig struct {
	Path string `yaml:"path"`
}

// ClusterConfig holds clustering settings. DistanceThreshold has no default.
type ClusterConfig struct {
	DistanceThreshold *float64 `yaml:"distance_threshold"`
}

// ProjectionConfig holds MDS settings. Seed has no default.
type ProjectionConfig struct {
	Dimensions int     `yaml:"dimensions"`
	Seed       *uint64 `yaml:"seed"`
	NInit      int     `yaml:"n_init"`
	MaxIter    int     `yaml:"max_iter"`
	Eps        float64 `yaml:"eps"`
}

// EncodingConfig holds batch encoding settings.
type EncodingConfig struct {
	Workers     int  `yaml:"workers"`
	CacheSize   int  `yaml:"cache_size"`
	SkipInvalid bool `yaml:"skip_invalid"`
}

// SearchConfig holds paging limits for profile listing, text search and similar lookups.
type SearchConfig struct {
	DefaultLimit   int `yaml:"default_limit"`
	MaxLimit       int `yaml:"max_limit"`
	DefaultSimilar int `yaml:"default_similar"`
	// Candidates is how many hits each index returns before fusion and paging.
	Candidates int     `yaml:"candidates"`
	LabelBoost float64 `yaml:"label_boost"`
	// Weights used when a search combines text and a reference profile.
	KeywordWeight    float64 `yaml:"keyword_weight"`
	SimilarityWeight float64 `yaml:"similarity_weight"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	if cfg.Schema.Path != "" {
		cfg.Schema.Path = expandPath(cfg.Schema.Path, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the analysis knobs that have no defaults. A nil threshold or
// seed is allowed here; callers that cluster or project must supply one.
func Validate(cfg *Config) error {
	var errs []error
	if t := cfg.Cluster.DistanceThreshold; t != nil && (math.IsNaN(*t) || math.IsInf(*t, 0)) {
		errs = append(errs, fmt.Errorf("cluster.distance_threshold must be finite, got %v", *t))
	}
	p := cfg.Projection
	if p.Dimensions < 1 {
		errs = append(errs, fmt.Errorf("projection.dimensions must be positive, got %d", p.Dimensions))
	}
	if p.NInit < 1 || p.MaxIter < 1 || p.Eps <= 0 {
		errs = append(errs, fmt.Errorf("projection n_init, max_iter and eps must be positive"))
	}
	if cfg.Encoding.Workers < 1 || cfg.Encoding.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("encoding.workers and encoding.cache_size must be positive"))
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", cfg.Server.Port))
	}
	return errors.Join(errs...)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
