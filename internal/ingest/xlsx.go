package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readWorkbook reads records from the first sheet: row 1 holds field names,
// each following non-blank row is one record with a string per named column.
func readWorkbook(content []byte) ([]map[string]any, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	var records []map[string]any
	for _, row := range rows[1:] {
		rec := make(map[string]any, len(header))
		blank := true
		for i, name := range header {
			if name == "" {
				continue
			}
			cell := ""
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if cell != "" {
				blank = false
			}
			rec[name] = cell
		}
		if !blank {
			records = append(records, rec)
		}
	}
	return records, nil
}
