package benchmark

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/hyperjump/cohort/internal/cluster"
	"github.com/hyperjump/cohort/internal/encoder"
	"github.com/hyperjump/cohort/internal/models"
	"github.com/hyperjump/cohort/internal/projection"
	"github.com/hyperjump/cohort/internal/schema"
	"github.com/hyperjump/cohort/internal/search"
	"github.com/hyperjump/cohort/internal/vector"
)

const benchProfiles = 200

func randomVectors(n, length int) ([]string, []models.FeatureVector) {
	r := rand.New(rand.NewPCG(1, 2))
	ids := make([]string, n)
	vecs := make([]models.FeatureVector, n)
	for i := range vecs {
		values := make([]int, length)
		values[r.IntN(length)] = 1
		for j := range values {
			if r.IntN(3) == 0 {
				values[j] = 1
			}
		}
		ids[i] = fmt.Sprintf("p-%04d", i)
		vecs[i] = models.FeatureVector{SchemaVersion: schema.StudentV1Version, Values: values}
	}
	return ids, vecs
}

func randomProfiles(n int) []*models.Profile {
	r := rand.New(rand.NewPCG(3, 4))
	pick := func(domain []string) string { return domain[r.IntN(len(domain))] }
	profiles := make([]*models.Profile, n)
	for i := range profiles {
		profiles[i] = &models.Profile{ID: fmt.Sprintf("p-%04d", i), Fields: map[string]any{
			"major": pick(schema.Majors), "grade": 1 + r.IntN(4), "study_goal": pick(schema.StudyGoals),
			"class_participation": pick(schema.Participation), "weekly_study_hours": pick(schema.WeeklyStudyHours),
			"current_projects": r.IntN(6), "available_days": []string{pick(schema.WeekDays)},
			"preferred_time": pick(schema.PreferredTimes), "exam_preparation_time": pick(schema.ExamPrepTimes),
			"uses_course_materials": r.IntN(2) == 0, "self_study_ability": r.IntN(2) == 0,
			"preferred_environment": pick(schema.Environments), "preferred_study_tool": pick(schema.StudyTools),
			"study_intensity": pick(schema.StudyIntensity), "study_mode": pick(schema.StudyModes),
			"programming_stack": []string{pick(schema.ProgrammingStacks)}, "research_experience": r.IntN(2) == 0,
			"foreign_languages": []string{}, "online_courses": r.IntN(6), "leadership_experience": r.IntN(2) == 0,
		}}
	}
	return profiles
}

func BenchmarkFuse(b *testing.B) {
	kw := make(map[string]float64)
	sim := make(map[string]float64)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("p-%03d", i)
		kw[id] = float64(i) / 100
		sim[id] = float64(100-i) / 100
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = search.Fuse(kw, sim, 0.5, 0.5)
	}
}

func BenchmarkMemoryIndexSearch(b *testing.B) {
	s := schema.StudentV1()
	idx, _ := vector.NewMemoryIndex(s.Version, s.Length())
	ctx := context.Background()
	ids, vecs := randomVectors(1000, s.Length())
	_ = idx.Add(ctx, ids, vecs)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, vecs[i%len(vecs)], 10)
	}
}

func BenchmarkEncodeAll(b *testing.B) {
	enc := encoder.New(schema.StudentV1(), encoder.WithWorkers(4))
	profiles := randomProfiles(benchProfiles)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = enc.EncodeAll(ctx, profiles)
	}
}

func BenchmarkSimilarityMatrix(b *testing.B) {
	_, vecs := randomVectors(benchProfiles, schema.StudentV1().Length())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = vector.SimilarityMatrix(vecs)
	}
}

func BenchmarkDendrogram(b *testing.B) {
	_, vecs := randomVectors(benchProfiles, schema.StudentV1().Length())
	sim, _ := vector.SimilarityMatrix(vecs)
	dist := vector.Distances(sim)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = cluster.Dendrogram(dist, 0.5)
	}
}

func BenchmarkProjection(b *testing.B) {
	_, vecs := randomVectors(50, schema.StudentV1().Length())
	sim, _ := vector.SimilarityMatrix(vecs)
	dist := vector.Distances(sim)
	seed := uint64(42)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = projection.Run(dist, projection.Options{Seed: &seed})
	}
}
