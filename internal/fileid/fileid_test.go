package fileid

import (
	"strings"
	"testing"
)

func TestRowID_Deterministic(t *testing.T) {
	id1 := RowID("/data/students.json", 3)
	id2 := RowID("/data/students.json", 3)
	if id1 != id2 {
		t.Errorf("same path and row should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) || !strings.HasSuffix(id1, "#3") {
		t.Errorf("unexpected ID format: %q", id1)
	}
}

func TestRowID_Distinct(t *testing.T) {
	if RowID("/data/a.json", 0) == RowID("/data/b.json", 0) {
		t.Error("different paths should give different IDs")
	}
	if RowID("/data/a.json", 0) == RowID("/data/a.json", 1) {
		t.Error("different rows should give different IDs")
	}
}

func TestRowID_Normalized(t *testing.T) {
	id1 := RowID("/data/a.json", 0)
	id2 := RowID("/data/./a.json", 0)
	id3 := RowID("/data/x/../a.json", 0)
	if id1 != id2 || id1 != id3 {
		t.Errorf("equivalent paths should match: %q %q %q", id1, id2, id3)
	}
	if Source("/data/./a.json") != "/data/a.json" {
		t.Errorf("Source = %q", Source("/data/./a.json"))
	}
}
