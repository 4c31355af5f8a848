// Package integration provides end-to-end tests (requires real storage and indices).
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/cohort/internal/config"
	"github.com/hyperjump/cohort/internal/encoder"
	"github.com/hyperjump/cohort/internal/indexer"
	"github.com/hyperjump/cohort/internal/keyword"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/pipeline"
	"github.com/hyperjump/cohort/internal/schema"
	"github.com/hyperjump/cohort/internal/search"
	"github.com/hyperjump/cohort/internal/server"
	"github.com/hyperjump/cohort/internal/storage"
	"github.com/hyperjump/cohort/internal/vector"
	"github.com/hyperjump/cohort/internal/watcher"
)

func student(id, major, env string, days ...string) map[string]any {
	return map[string]any{
		"id":                    id,
		"name":                  "Student " + id,
		"major":                 major,
		"grade":                 2,
		"study_goal":            "Research",
		"class_participation":   "High",
		"weekly_study_hours":    "10-15",
		"current_projects":      1,
		"available_days":        days,
		"preferred_time":        "Evening",
		"exam_preparation_time": "1-2 weeks",
		"uses_course_materials": true,
		"self_study_ability":    false,
		"preferred_environment": env,
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

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestIntegration_WatchImportAnalyze drops a file into a watched directory and
// analyzes the imported profiles over HTTP.
func TestIntegration_WatchImportAnalyze(t *testing.T) {
	dir := t.TempDir()
	importDir := filepath.Join(dir, "imports")
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath:    filepath.Join(dir, "db.sqlite"),
			BleveIndexPath:  filepath.Join(dir, "bleve"),
			VectorIndexPath: filepath.Join(dir, "vectors.bin"),
		},
		Watch: config.WatchConfig{Directories: []string{importDir}},
	}
	config.ApplyDefaults(cfg)
	s := schema.StudentV1()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	vecIndex, err := vector.NewMemoryIndex(s.Version, s.Length())
	if err != nil {
		t.Fatal(err)
	}
	kwIndex, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	defer kwIndex.Close()

	idx := indexer.NewIndexer(store, encoder.New(s), vecIndex, kwIndex)
	w := watcher.New(cfg.Watch.Directories, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(),
		indexer.NewFileHandler(idx, cfg.Watch.Extensions), watcher.WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	srv := server.NewServer(server.Deps{
		Analyzer: pipeline.NewEngine(s),
		Search:   search.NewEngine(store, vecIndex, kwIndex, cfg.Search),
		Indexer:  idx,
		Storage:  store,
		Keyword:  kwIndex,
		Config:   cfg,
		Watch:    w,
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	records := []map[string]any{
		student("a", "Math", "Library", "Mon", "Tue"),
		student("b", "Math", "Library", "Mon", "Tue", "Wed"),
		student("c", "Biology", "Cafe", "Sat", "Sun"),
	}
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(importDir, "class.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "watched import", func() bool {
		n, err := store.CountProfiles(ctx)
		return err == nil && n == 3
	})

	body, _ := json.Marshal(map[string]any{"threshold": 0.1, "seed": 11})
	resp, err := http.Post(ts.URL+"/api/v1/analyze", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analyze status = %d", resp.StatusCode)
	}
	var a models.Analysis
	if err := json.NewDecoder(resp.Body).Decode(&a); err != nil {
		t.Fatal(err)
	}
	if len(a.Members) != 3 || len(a.Groups) != 2 {
		t.Fatalf("got %d members in %d groups, want 3 in 2", len(a.Members), len(a.Groups))
	}
	if *a.Members[0].ClusterID != *a.Members[1].ClusterID || *a.Members[0].ClusterID == *a.Members[2].ClusterID {
		t.Errorf("cluster ids = %d %d %d, want a and b together apart from c",
			*a.Members[0].ClusterID, *a.Members[1].ClusterID, *a.Members[2].ClusterID)
	}

	// Deleting the file removes its profiles.
	if err := os.Remove(filepath.Join(importDir, "class.json")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "watched removal", func() bool {
		n, err := store.CountProfiles(ctx)
		return err == nil && n == 0
	})
	if vecIndex.Size() != 0 {
		t.Errorf("vector index size = %d after removal", vecIndex.Size())
	}
}
