package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/cohort/internal/encoder"
	"github.com/hyperjump/cohort/internal/fileid"
	"github.com/hyperjump/cohort/internal/keyword"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/schema"
	"github.com/hyperjump/cohort/internal/storage"
	"github.com/hyperjump/cohort/internal/vector"
)

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".json", []string{".json", ".yaml"}, true},
		{".JSON", []string{".json"}, true},
		{".yml", []string{"yml"}, true},
		{".txt", []string{".json"}, false},
		{"", []string{".json"}, false},
		{".xlsx", []string{".json", ".yaml", ".xlsx"}, true},
	}
	for _, tt := range tests {
		got := extensionAllowed(tt.ext, tt.allowed)
		if got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

type fixture struct {
	idx   *Indexer
	store storage.Storage
	vecs  *vector.MemoryIndex
	kw    *keyword.BleveIndex
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	s := schema.StudentV1()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "db.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	vecIndex, err := vector.NewMemoryIndex(s.Version, s.Length())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = vecIndex.Close() })
	kwIndex, err := keyword.NewBleveIndex(filepath.Join(dir, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })
	return &fixture{
		idx:   NewIndexer(store, encoder.New(s), vecIndex, kwIndex),
		store: store,
		vecs:  vecIndex,
		kw:    kwIndex,
	}
}

func student(name, major string) map[string]any {
	return map[string]any{
		"name":                  name,
		"major":                 major,
		"grade":                 2,
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

func writeJSON(t *testing.T, path string, records []map[string]any) {
	t.Helper()
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
}

func mustAbs(path string) string {
	a, err := filepath.Abs(path)
	if err != nil {
		panic(err)
	}
	return a
}

func TestIndexProfile_createAndReplace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fields := student("", "Math")
	delete(fields, "name")
	p, err := f.idx.IndexProfile(ctx, &models.ProfileInput{Label: "Alice", Fields: fields})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == "" || p.Vector == nil || p.SchemaVersion != schema.StudentV1().Version {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if !f.vecs.Has(p.ID) {
		t.Error("vector not indexed")
	}

	fields["major"] = "Biology"
	if _, err := f.idx.IndexProfile(ctx, &models.ProfileInput{ID: p.ID, Label: "Alice", Fields: fields}); err != nil {
		t.Fatal(err)
	}
	got, err := f.store.GetProfile(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Fields["major"] != "Biology" {
		t.Errorf("major = %v", got.Fields["major"])
	}
	if n, _ := f.store.CountProfiles(ctx); n != 1 {
		t.Errorf("CountProfiles = %d", n)
	}
	results, _ := f.kw.Search(ctx, "major:biology", 10, nil)
	if len(results) != 1 || results[0].ID != p.ID {
		t.Errorf("keyword results = %+v", results)
	}
}

func TestIndexProfile_invalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fields := student("", "Astrology")
	_, err := f.idx.IndexProfile(ctx, &models.ProfileInput{ID: "x", Fields: fields})
	if !errors.Is(err, models.ErrDomainViolation) {
		t.Fatalf("err = %v, want domain violation", err)
	}
	if _, err := f.store.GetProfile(ctx, "x"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("invalid profile was stored: %v", err)
	}
}

func TestIndexFile_importAndReimport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "students.json")

	bad := student("Eve", "Astrology")
	writeJSON(t, path, []map[string]any{student("Alice", "Math"), student("Bob", "Computer Science"), bad})

	report, err := f.idx.IndexFile(ctx, path, []string{".json"})
	if err != nil {
		t.Fatal(err)
	}
	if report.Imported != 2 || len(report.Rejected) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if r := report.Rejected[0]; r.Index != 2 || r.Field != "major" || r.Label != "Eve" {
		t.Errorf("rejected = %+v", r)
	}

	src := fileid.Source(mustAbs(path))
	p, err := f.store.GetProfile(ctx, fileid.RowID(mustAbs(path), 0))
	if err != nil {
		t.Fatal(err)
	}
	if p.Label != "Alice" || p.Source != src {
		t.Errorf("profile = %+v", p)
	}

	writeJSON(t, path, []map[string]any{student("Alice", "Biology")})
	report, err = f.idx.IndexFile(ctx, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.Imported != 1 || report.Removed != 1 {
		t.Errorf("reimport report = %+v", report)
	}
	if n, _ := f.store.CountProfiles(ctx); n != 1 {
		t.Errorf("CountProfiles = %d", n)
	}
	if f.vecs.Size() != 1 {
		t.Errorf("vector index size = %d", f.vecs.Size())
	}
}

func TestIndexFile_staleVector(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "students.json")
	rec := student("Alice", "Math")
	rec["id"] = "alice"
	rec["vector"] = make([]int, 64)
	writeJSON(t, path, []map[string]any{rec})

	report, err := f.idx.IndexFile(context.Background(), path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.StaleVectors) != 1 || report.StaleVectors[0] != "alice" {
		t.Errorf("StaleVectors = %v", report.StaleVectors)
	}
	p, _ := f.store.GetProfile(context.Background(), "alice")
	if p == nil || p.Vector.IsZero() {
		t.Error("stored vector should be the re-derived encoding")
	}
}

func TestIndexFile_extensionFiltered(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "students.json")
	writeJSON(t, path, []map[string]any{student("Alice", "Math")})

	if _, err := f.idx.IndexFile(context.Background(), path, []string{".yaml"}); err == nil {
		t.Error("expected error for disallowed extension")
	}
}

func TestIndexFile_unsupported(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := f.idx.IndexFile(context.Background(), path, nil); err == nil {
		t.Error("expected error for unsupported file type")
	}
}

func TestIndexFile_notRegularFile(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Join(t.TempDir(), "dir.json")
	if err := os.Mkdir(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if _, err := f.idx.IndexFile(context.Background(), dir, nil); err == nil {
		t.Error("expected error for directory")
	}
}

func TestIndexFile_nonexistent(t *testing.T) {
	f := newFixture(t)
	if _, err := f.idx.IndexFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIndexDirectory(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0700); err != nil {
		t.Fatal(err)
	}
	writeJSON(t, filepath.Join(dir, "a.json"), []map[string]any{student("Alice", "Math")})
	writeJSON(t, filepath.Join(sub, "b.json"), []map[string]any{student("Bob", "Math"), student("Carol", "Biology")})
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip me"), 0600); err != nil {
		t.Fatal(err)
	}

	reports, err := f.idx.IndexDirectory(context.Background(), dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 2 {
		t.Fatalf("reports = %d, want 2", len(reports))
	}
	if n, _ := f.store.CountProfiles(context.Background()); n != 3 {
		t.Errorf("CountProfiles = %d", n)
	}
}

func TestDeleteSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "students.json")
	writeJSON(t, path, []map[string]any{student("Alice", "Math"), student("Bob", "Math")})
	if _, err := f.idx.IndexFile(ctx, path, nil); err != nil {
		t.Fatal(err)
	}

	n, err := f.idx.DeleteSource(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("deleted = %d", n)
	}
	if f.vecs.Size() != 0 {
		t.Errorf("vector index size = %d", f.vecs.Size())
	}
	if c, _ := f.kw.DocCount(); c != 0 {
		t.Errorf("keyword DocCount = %d", c)
	}
}

func TestDeleteProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fields := student("", "Math")
	delete(fields, "name")
	p, err := f.idx.IndexProfile(ctx, &models.ProfileInput{ID: "p1", Fields: fields})
	if err != nil {
		t.Fatal(err)
	}
	if p.Label != "p1" {
		t.Errorf("label defaults to ID, got %q", p.Label)
	}
	if err := f.idx.DeleteProfile(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.GetProfile(ctx, "p1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("profile should be deleted: %v", err)
	}
	if err := f.idx.DeleteProfile(ctx, "p1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestRebuild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "students.json")
	writeJSON(t, path, []map[string]any{student("Alice", "Math"), student("Bob", "Biology")})
	if _, err := f.idx.IndexFile(ctx, path, nil); err != nil {
		t.Fatal(err)
	}

	s := schema.StudentV1()
	fresh, err := vector.NewMemoryIndex(s.Version, s.Length())
	if err != nil {
		t.Fatal(err)
	}
	idx := NewIndexer(f.store, encoder.New(s), fresh, f.kw)
	n, err := idx.Rebuild(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || fresh.Size() != 2 {
		t.Errorf("rebuilt %d, index size %d", n, fresh.Size())
	}
}

func TestFileHandler(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "students.json")
	writeJSON(t, path, []map[string]any{student("Alice", "Math")})

	h := NewFileHandler(f.idx, []string{".json"})
	if err := h.FileChanged(ctx, path); err != nil {
		t.Fatal(err)
	}
	if n, _ := f.store.CountProfiles(ctx); n != 1 {
		t.Fatalf("CountProfiles = %d", n)
	}
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := h.FileRemoved(ctx, path); err != nil {
		t.Fatal(err)
	}
	if n, _ := f.store.CountProfiles(ctx); n != 0 {
		t.Errorf("CountProfiles after remove = %d", n)
	}
}
