package schema

import "testing"

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"math", "math", 0},
		{"biolgoy", "biology", 1},
		{"ca", "ac", 1},
		{"日本語", "日本", 1},
	}
	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestField_Suggest(t *testing.T) {
	f := Field{Name: "major", Kind: KindSingle, Domain: Majors}

	tests := []struct {
		value string
		want  string
		ok    bool
	}{
		{"Biolgy", "Biology", true},
		{"math", "Math", true},
		{"  Maht ", "Math", true},
		{"Physics", "", false},
	}
	for _, tt := range tests {
		got, ok := f.Suggest(tt.value)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Suggest(%q) = %q, %v; want %q, %v", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}
