package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperjump/cohort/internal/schema"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// SupportedFileExtensions is the list of import formats used in E2E file-based tests.
var SupportedFileExtensions = []string{".json", ".yaml", ".xlsx"}

// EncodeRecords returns the file content holding records in the format of ext.
// Workbook cells hold text the way a spreadsheet user would type it: lists
// comma-separated, flags as yes/no.
func EncodeRecords(ext string, records []Record) ([]byte, error) {
	switch ext {
	case ".json":
		return json.Marshal(records)
	case ".yaml", ".yml":
		return yaml.Marshal(records)
	case ".xlsx":
		return workbook(records)
	default:
		return nil, fmt.Errorf("unsupported extension %q", ext)
	}
}

func workbook(records []Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	header := FieldNames(schema.StudentV1())
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow("Sheet1", "A1", &row); err != nil {
		return nil, err
	}
	for r, rec := range records {
		row := make([]any, len(header))
		for i, h := range header {
			row[i] = cellText(rec[h])
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			return nil, err
		}
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(x, ", ")
	case bool:
		if x {
			return "yes"
		}
		return "no"
	default:
		return fmt.Sprint(x)
	}
}
