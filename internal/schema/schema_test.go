package schema

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStudentV1_Length(t *testing.T) {
	s := StudentV1()
	if s.Version != StudentV1Version {
		t.Errorf("version = %q", s.Version)
	}
	if got := s.Length(); got != 64 {
		t.Errorf("Length() = %d, want 64", got)
	}
	off, ok := s.Offset("grade")
	if !ok || off != 3 {
		t.Errorf("Offset(grade) = %d, %v; want 3, true", off, ok)
	}
	off, ok = s.Offset("leadership_experience")
	if !ok || off != 63 {
		t.Errorf("Offset(leadership_experience) = %d, %v; want 63, true", off, ok)
	}
}

func TestField_Width(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		want  int
	}{
		{"single", Field{Kind: KindSingle, Domain: []string{"a", "b", "c"}}, 3},
		{"multi", Field{Kind: KindMulti, Domain: []string{"a", "b"}}, 2},
		{"ordinal", Field{Kind: KindOrdinal, Min: 1, Max: 4}, 4},
		{"ordinal from zero", Field{Kind: KindOrdinal, Min: 0, Max: 5}, 6},
		{"flag", Field{Kind: KindFlag}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.field.Width(); got != tt.want {
				t.Errorf("Width() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		version string
		fields  []Field
	}{
		{"no version", "", []Field{{Name: "a", Kind: KindFlag}}},
		{"no fields", "v", nil},
		{"unnamed field", "v", []Field{{Kind: KindFlag}}},
		{"duplicate name", "v", []Field{{Name: "a", Kind: KindFlag}, {Name: "a", Kind: KindFlag}}},
		{"empty domain", "v", []Field{{Name: "a", Kind: KindSingle}}},
		{"duplicate domain value", "v", []Field{{Name: "a", Kind: KindMulti, Domain: []string{"x", "x"}}}},
		{"inverted bounds", "v", []Field{{Name: "a", Kind: KindOrdinal, Min: 3, Max: 1}}},
		{"unknown kind", "v", []Field{{Name: "a", Kind: "range"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.version, tt.fields); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	content := `
version: club-v2
fields:
  - name: club
    kind: single
    domain: [Chess, Robotics]
  - name: year
    kind: ordinal
    min: 1
    max: 3
  - name: hobbies
    kind: multi
    domain: [Music, Hiking, Games]
    allow_empty: true
  - name: mentor
    kind: flag
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Version != "club-v2" || s.Length() != 2+3+3+1 {
		t.Errorf("loaded version=%q length=%d", s.Version, s.Length())
	}
	f, ok := s.Field("hobbies")
	if !ok || !f.AllowEmpty {
		t.Errorf("hobbies field: %+v, %v", f, ok)
	}

	out := filepath.Join(dir, "saved.yaml")
	if err := Save(out, s); err != nil {
		t.Fatal(err)
	}
	again, err := Load(out)
	if err != nil {
		t.Fatal(err)
	}
	if again.Length() != s.Length() || again.Version != s.Version {
		t.Errorf("round trip: version=%q length=%d", again.Version, again.Length())
	}
}

func TestField_Index(t *testing.T) {
	f := Field{Kind: KindSingle, Domain: Majors}
	if f.Index("Math") != 1 {
		t.Errorf("Index(Math) = %d", f.Index("Math"))
	}
	if f.Index("math") != -1 {
		t.Error("domain matching must be exact")
	}
}
