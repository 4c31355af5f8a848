// Package e2e provides end-to-end tests over a synthetic cohort with known groups.
package e2e

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/hyperjump/cohort/internal/schema"
)

// Record is one profile as it appears in an import file.
type Record map[string]any

// Archetype is a kind of student. Members of one archetype differ from it in
// at most one field, and archetypes share almost no feature values, so a
// clustering at a moderate threshold must recover them exactly.
type Archetype struct {
	Name   string
	Fields Record
	// Vary is the ordinal field perturbed per member, and the values it cycles through.
	Vary   string
	Values []int
}

// QueryTestCase defines a search and the profile IDs that must appear in its results.
type QueryTestCase struct {
	Text        string
	Like        string
	Fuzzy       bool
	ExpectedIDs []string
	Description string
}

// Corpus holds profiles, their true grouping and search test cases.
type Corpus struct {
	Records   []Record
	Groups    map[string][]string
	TestCases []QueryTestCase
}

// Archetypes returns the three student archetypes of the corpus.
func Archetypes() []Archetype {
	return []Archetype{
		{
			Name: "night-coder",
			Fields: Record{
				"major": "Computer Science", "grade": 3, "study_goal": "Project",
				"class_participation": "High", "weekly_study_hours": "15+", "current_projects": 3,
				"available_days": []string{"Mon", "Wed", "Fri"}, "preferred_time": "Evening",
				"exam_preparation_time": "<1 week", "uses_course_materials": false, "self_study_ability": true,
				"preferred_environment": "Home", "preferred_study_tool": "Laptop", "study_intensity": "Intensive",
				"study_mode": "Online", "programming_stack": []string{"Python", "C++"}, "research_experience": false,
				"foreign_languages": []string{"English"}, "online_courses": 4, "leadership_experience": true,
			},
			Vary:   "grade",
			Values: []int{3, 4},
		},
		{
			Name: "lab-biologist",
			Fields: Record{
				"major": "Biology", "grade": 4, "study_goal": "Research",
				"class_participation": "Moderate", "weekly_study_hours": "10-15", "current_projects": 1,
				"available_days": []string{"Tue", "Thu"}, "preferred_time": "Morning",
				"exam_preparation_time": ">2 weeks", "uses_course_materials": true, "self_study_ability": false,
				"preferred_environment": "Library", "preferred_study_tool": "Notebook", "study_intensity": "Moderate",
				"study_mode": "In-person", "programming_stack": []string{}, "research_experience": true,
				"foreign_languages": []string{"Spanish"}, "online_courses": 0, "leadership_experience": false,
			},
			Vary:   "current_projects",
			Values: []int{1, 2},
		},
		{
			Name: "exam-crammer",
			Fields: Record{
				"major": "Math", "grade": 1, "study_goal": "Exam Preparation",
				"class_participation": "Low", "weekly_study_hours": "<5", "current_projects": 0,
				"available_days": []string{"Sat", "Sun"}, "preferred_time": "Afternoon",
				"exam_preparation_time": "1-2 weeks", "uses_course_materials": true, "self_study_ability": false,
				"preferred_environment": "Cafe", "preferred_study_tool": "Tablet", "study_intensity": "Light",
				"study_mode": "Online", "programming_stack": []string{"Java"}, "research_experience": false,
				"foreign_languages": []string{"Chinese", "Japanese"}, "online_courses": 1, "leadership_experience": false,
			},
			Vary:   "online_courses",
			Values: []int{1, 2},
		},
	}
}

// BuildCorpus returns perArchetype members of each archetype, interleaved so
// that no archetype occupies a contiguous index range.
func BuildCorpus(perArchetype int) *Corpus {
	archetypes := Archetypes()
	c := &Corpus{Groups: make(map[string][]string, len(archetypes))}
	for i := 0; i < perArchetype; i++ {
		for _, a := range archetypes {
			id := fmt.Sprintf("%s-%02d", a.Name, i)
			rec := maps.Clone(a.Fields)
			rec[a.Vary] = a.Values[i%len(a.Values)]
			rec["id"] = id
			rec["name"] = fmt.Sprintf("%s %d", a.Name, i)
			c.Records = append(c.Records, rec)
			c.Groups[a.Name] = append(c.Groups[a.Name], id)
		}
	}
	c.TestCases = buildQueryTestCases(c.Groups)
	return c
}

func buildQueryTestCases(groups map[string][]string) []QueryTestCase {
	return []QueryTestCase{
		{Text: "Biology", ExpectedIDs: groups["lab-biologist"], Description: "major value"},
		{Text: "Biolgy", Fuzzy: true, ExpectedIDs: groups["lab-biologist"], Description: "misspelled major"},
		{Text: "Cafe", ExpectedIDs: groups["exam-crammer"], Description: "environment value"},
		{Text: "night-coder 0", ExpectedIDs: groups["night-coder"][:1], Description: "label"},
		{Like: groups["night-coder"][0], ExpectedIDs: groups["night-coder"][1:], Description: "neighbours of one member"},
	}
}

// SortedGroups returns each group's IDs sorted, groups ordered by first ID.
func SortedGroups(groups map[string][]string) [][]string {
	out := make([][]string, 0, len(groups))
	for _, ids := range groups {
		out = append(out, slices.Sorted(slices.Values(ids)))
	}
	slices.SortFunc(out, func(a, b []string) int { return cmp.Compare(a[0], b[0]) })
	return out
}

// FieldNames returns the record keys in schema order, preceded by id and name.
func FieldNames(s *schema.Schema) []string {
	names := []string{"id", "name"}
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}
