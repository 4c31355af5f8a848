package search

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperjump/cohort/internal/config"
	"github.com/hyperjump/cohort/internal/encoder"
	"github.com/hyperjump/cohort/internal/indexer"
	"github.com/hyperjump/cohort/internal/keyword"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/schema"
	"github.com/hyperjump/cohort/internal/storage"
	"github.com/hyperjump/cohort/internal/vector"
)

func fields(major string, days []string, stack []string) map[string]any {
	return map[string]any{
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
		"preferred_environment": "Library",
		"preferred_study_tool":  "Laptop",
		"study_intensity":       "Moderate",
		"study_mode":            "Online",
		"programming_stack":     stack,
		"research_experience":   true,
		"foreign_languages":     []string{"English"},
		"online_courses":        2,
		"leadership_experience": false,
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()
	s := schema.StudentV1()
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	vecIndex, err := vector.NewMemoryIndex(s.Version, s.Length())
	if err != nil {
		t.Fatal(err)
	}
	kwIndex, err := keyword.NewBleveIndex(t.TempDir() + "/bleve")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kwIndex.Close() })

	idx := indexer.NewIndexer(store, encoder.New(s), vecIndex, kwIndex)
	inputs := []*models.ProfileInput{
		{ID: "alice", Label: "Alice Kim", Fields: fields("Math", []string{"Mon", "Fri"}, []string{"Python"})},
		{ID: "bob", Label: "Bob Lee", Fields: fields("Math", []string{"Mon", "Fri"}, []string{"Python", "Java"})},
		{ID: "carol", Label: "Carol Diaz", Fields: fields("Biology", []string{"Sat"}, []string{})},
	}
	for _, in := range inputs {
		if _, err := idx.IndexProfile(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return NewEngine(store, vecIndex, kwIndex, cfg.Search)
}

func TestEngine_SearchText(t *testing.T) {
	engine := newTestEngine(t)
	resp, err := engine.Search(context.Background(), &Query{Text: "java"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Results[0].Profile.ID != "bob" {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].Score != 1 || resp.Results[0].Rank != 1 {
		t.Errorf("top result = %+v", resp.Results[0])
	}
}

func TestEngine_SearchLike(t *testing.T) {
	engine := newTestEngine(t)
	resp, err := engine.Search(context.Background(), &Query{Like: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 {
		t.Fatalf("total = %d, want 2 (self excluded)", resp.Total)
	}
	if resp.Results[0].Profile.ID != "bob" {
		t.Errorf("closest to alice = %s, want bob", resp.Results[0].Profile.ID)
	}
}

func TestEngine_SearchTextAndLike(t *testing.T) {
	engine := newTestEngine(t)
	resp, err := engine.Search(context.Background(), &Query{Text: "math", Like: "carol"})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Results {
		if r.Profile.ID == "carol" {
			t.Error("reference profile should not match")
		}
		if r.KeywordScore == 0 {
			t.Errorf("%s does not match the text", r.Profile.ID)
		}
	}
	if resp.Total != 2 {
		t.Errorf("total = %d", resp.Total)
	}
}

func TestEngine_SearchPaging(t *testing.T) {
	engine := newTestEngine(t)
	resp, err := engine.Search(context.Background(), &Query{Like: "alice", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 2 || len(resp.Results) != 1 || resp.Results[0].Rank != 2 {
		t.Errorf("page = %+v total=%d", resp.Results, resp.Total)
	}
	if resp.Results[0].Profile.ID != "carol" {
		t.Errorf("second result = %s", resp.Results[0].Profile.ID)
	}
}

func TestEngine_SearchErrors(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	if _, err := engine.Search(ctx, &Query{Text: "  "}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("empty query: %v", err)
	}
	if _, err := engine.Search(ctx, &Query{Like: "nobody"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown reference: %v", err)
	}
}

func TestEngine_Similar(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	matches, err := engine.Similar(ctx, "alice", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].Profile.ID != "bob" {
		t.Fatalf("matches = %+v", matches)
	}
	if matches[0].Score <= 0 || matches[0].Score >= 1 {
		t.Errorf("score = %f", matches[0].Score)
	}

	all, err := engine.Similar(ctx, "alice", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("default k: got %d matches", len(all))
	}
	if _, err := engine.Similar(ctx, "nobody", 3); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown profile: %v", err)
	}
}
