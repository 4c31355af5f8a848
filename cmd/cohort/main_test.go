package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/cohort/internal/config"
	"github.com/hyperjump/cohort/internal/ingest"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/schema"
	"go.uber.org/zap"
)

func TestSearchArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"computer science", "-limit", "5"},
			expected: []string{"-limit", "5", "computer science"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-limit", "5", "computer science"},
			expected: []string{"-limit", "5", "computer science"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"computer science"},
			expected: []string{"computer science"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"evening", "library", "-like", "s-1"},
			expected: []string{"-like", "s-1", "evening", "library"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := searchArgsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("searchArgsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"math"}, "math"},
		{"multiple words", []string{"computer", "science"}, "computer science"},
		{"single quoted phrase", []string{"computer science"}, "computer science"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildSearchQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestSplitIDs(t *testing.T) {
	got := splitIDs(" a, b,,c ,")
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("splitIDs() = %v", got)
	}
	if got := splitIDs(""); got != nil {
		t.Errorf("splitIDs(\"\") = %v, want nil", got)
	}
}

func TestConfigPathDefault(t *testing.T) {
	t.Setenv("COHORT_CONFIG", "")
	if got := configPathDefault(); got != defaultConfigPath {
		t.Errorf("configPathDefault() = %q, want %q", got, defaultConfigPath)
	}
	t.Setenv("COHORT_CONFIG", "/tmp/cohort.yaml")
	if got := configPathDefault(); got != "/tmp/cohort.yaml" {
		t.Errorf("configPathDefault() = %q", got)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  host: "localhost"
  port: 8080
storage:
  database_path: "./test.db"
cluster:
  distance_threshold: 0.4
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while configPath from t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
	if cfg.Cluster.DistanceThreshold == nil || *cfg.Cluster.DistanceThreshold != 0.4 {
		t.Errorf("distance threshold = %v", cfg.Cluster.DistanceThreshold)
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfig_rejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  port: 70000\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := loadConfig(configPath); err == nil || !strings.Contains(err.Error(), "server.port") {
		t.Errorf("loadConfig() error = %v, want server.port error", err)
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func student(id, name, major string) map[string]any {
	return map[string]any{
		"id":                    id,
		"name":                  name,
		"major":                 major,
		"grade":                 3,
		"study_goal":            "Research",
		"class_participation":   "High",
		"weekly_study_hours":    "10-15",
		"current_projects":      1,
		"available_days":        []string{"Mon", "Fri"},
		"preferred_time":        "Evening",
		"exam_preparation_time": "1-2 weeks",
		"uses_course_materials": true,
		"self_study_ability":    false,
		"preferred_environment": "Library",
		"preferred_study_tool":  "Laptop",
		"study_intensity":       "Moderate",
		"study_mode":            "Online",
		"programming_stack":     []string{"Python"},
		"research_experience":   true,
		"foreign_languages":     []string{},
		"online_courses":        2,
		"leadership_experience": false,
	}
}

func writeRecords(t *testing.T, path string, records []map[string]any) {
	t.Helper()
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadProfileFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "class.json")
	noID := student("", "", "Math")
	delete(noID, "id")
	delete(noID, "name")
	writeRecords(t, path, []map[string]any{student("s-1", "Ana", "Biology"), noID})

	profiles, err := loadProfileFiles(ingest.NewLoader(schema.StudentV1()), []string{path})
	if err != nil {
		t.Fatal(err)
	}
	if len(profiles) != 2 {
		t.Fatalf("got %d profiles, want 2", len(profiles))
	}
	if profiles[0].ID != "s-1" || profiles[0].Label != "Ana" {
		t.Errorf("first profile = %s/%s", profiles[0].ID, profiles[0].Label)
	}
	if !strings.HasPrefix(profiles[1].ID, "file:") || profiles[1].Label != profiles[1].ID {
		t.Errorf("unnamed row got id %q label %q", profiles[1].ID, profiles[1].Label)
	}

	if _, err := loadProfileFiles(ingest.NewLoader(schema.StudentV1()), []string{filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("expected error for missing file")
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath:    filepath.Join(dir, "profiles.db"),
			BleveIndexPath:  filepath.Join(dir, "bleve"),
			VectorIndexPath: filepath.Join(dir, "vectors.bin"),
		},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestInitializeComponents_rebuildsStaleVectorIndex(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	c, err := initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range []map[string]any{student("a", "Ana", "Math"), student("b", "Ben", "Biology")} {
		if _, err := c.Indexer.IndexProfile(ctx, &models.ProfileInput{ID: rec["id"].(string), Label: rec["name"].(string), Fields: rec}); err != nil {
			t.Fatal(err)
		}
	}
	c.Close()

	// A vector file written before the last import is out of date.
	if err := os.Remove(cfg.Storage.VectorIndexPath); err != nil {
		t.Fatal(err)
	}

	c, err = initializeComponents(ctx, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if got := c.VectorIndex.Size(); got != 2 {
		t.Errorf("vector index size after reopen = %d, want 2", got)
	}
	matches, err := c.Search.Similar(ctx, "a", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Profile.ID != "b" {
		t.Errorf("Similar(a) = %+v", matches)
	}
	status := localStatus(c)
	if status.Profiles != 2 || status.SchemaVersion != schema.StudentV1Version {
		t.Errorf("status = %+v", status)
	}
}

func TestInitializeComponents_customSchema(t *testing.T) {
	cfg := testConfig(t)
	sc, err := schema.New("colors-v1", []schema.Field{
		{Name: "color", Kind: schema.KindSingle, Domain: []string{"red", "green"}},
		{Name: "outdoor", Kind: schema.KindFlag},
	})
	if err != nil {
		t.Fatal(err)
	}
	cfg.Schema.Path = filepath.Join(t.TempDir(), "schema.yaml")
	if err := schema.Save(cfg.Schema.Path, sc); err != nil {
		t.Fatal(err)
	}

	c, err := initializeComponents(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if c.Schema.Version != "colors-v1" || c.Schema.Length() != 3 {
		t.Errorf("schema = %s/%d", c.Schema.Version, c.Schema.Length())
	}
}
