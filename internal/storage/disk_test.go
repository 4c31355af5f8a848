package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsage(t *testing.T) {
	dir := t.TempDir()

	f1 := filepath.Join(dir, "profiles.db")
	if err := os.WriteFile(f1, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(dir, "bleve")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{f1}, 5},
		{"directory", []string{sub}, 3},
		{"file and directory", []string{f1, sub}, 8},
		{"missing path", []string{f1, filepath.Join(dir, "nonexistent"), sub}, 8},
		{"empty path", []string{"", f1}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := DiskUsage(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if u.Total != tt.want {
				t.Errorf("total = %d, want %d", u.Total, tt.want)
			}
		})
	}

	u, _ := DiskUsage(f1, sub)
	if u.Paths[f1] != 5 || u.Paths[sub] != 3 {
		t.Errorf("per-path usage = %v", u.Paths)
	}
}
