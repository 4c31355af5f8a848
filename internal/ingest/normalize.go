package ingest

import (
	"strconv"
	"strings"

	"github.com/hyperjump/cohort/internal/schema"
)

// Normalize converts textual values in fields to the type their schema field
// expects: comma-separated text to a list for multi-choice fields, integer
// text for ordinals, yes/no style text for flags. Blank text is an empty list
// for multi-choice fields, false for flags and a missing value otherwise.
// Values it cannot convert are left for the encoder to reject. Fields outside
// the schema are untouched.
func Normalize(s *schema.Schema, fields map[string]any) {
	for _, f := range s.Fields {
		raw, ok := fields[f.Name]
		if !ok {
			continue
		}
		str, isString := raw.(string)
		if !isString {
			continue
		}
		str = strings.TrimSpace(str)
		if str == "" && (f.Kind == schema.KindSingle || f.Kind == schema.KindOrdinal) {
			delete(fields, f.Name)
			continue
		}
		switch f.Kind {
		case schema.KindSingle:
			fields[f.Name] = str
		case schema.KindMulti:
			fields[f.Name] = splitList(str)
		case schema.KindOrdinal:
			if n, err := strconv.Atoi(str); err == nil {
				fields[f.Name] = n
			}
		case schema.KindFlag:
			if b, ok := parseFlag(str); ok {
				fields[f.Name] = b
			}
		}
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFlag(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1":
		return true, true
	case "false", "no", "n", "0", "":
		return false, true
	}
	return false, false
}
