package cli

import (
	"fmt"
	"io"

	"github.com/hyperjump/cohort/internal/models"
	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetMembers    = "Members"
	SheetSimilarity = "Similarity"
	SheetDistance   = "Distance"
	SheetRejected   = "Rejected"
)

// WriteWorkbook writes the analysis as an xlsx workbook: one row per member
// with its group and coordinates, the similarity and distance matrices, and
// any rejected records.
func WriteWorkbook(w io.Writer, a *models.Analysis) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetMembers); err != nil {
		return err
	}
	if err := writeMembersSheet(f, a); err != nil {
		return fmt.Errorf("members sheet: %w", err)
	}
	if err := writeMatrixSheet(f, SheetSimilarity, a.Members, a.Similarity); err != nil {
		return fmt.Errorf("similarity sheet: %w", err)
	}
	if err := writeMatrixSheet(f, SheetDistance, a.Members, a.Distance); err != nil {
		return fmt.Errorf("distance sheet: %w", err)
	}
	if len(a.Rejected) > 0 {
		if err := writeRejectedSheet(f, a.Rejected); err != nil {
			return fmt.Errorf("rejected sheet: %w", err)
		}
	}
	return f.Write(w)
}

func writeMembersSheet(f *excelize.File, a *models.Analysis) error {
	dims := 0
	for _, m := range a.Members {
		dims = max(dims, len(m.Coordinates))
	}
	header := []any{"index", "id", "label", "group"}
	for d := 0; d < dims; d++ {
		header = append(header, fmt.Sprintf("x%d", d+1))
	}
	if err := f.SetSheetRow(SheetMembers, "A1", &header); err != nil {
		return err
	}
	for i, m := range a.Members {
		row := []any{m.Index, m.ID, m.Label, ""}
		if m.ClusterID != nil {
			row[3] = *m.ClusterID
		}
		for _, c := range m.Coordinates {
			row = append(row, c)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetMembers, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeMatrixSheet(f *excelize.File, sheet string, members []*models.Member, rows [][]float64) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	header := []any{""}
	for _, m := range members {
		header = append(header, m.Label)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, m := range members {
		row := []any{m.Label}
		for _, v := range rows[i] {
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeRejectedSheet(f *excelize.File, rejected []*models.RecordError) error {
	if _, err := f.NewSheet(SheetRejected); err != nil {
		return err
	}
	header := []any{"index", "id", "label", "field", "error"}
	if err := f.SetSheetRow(SheetRejected, "A1", &header); err != nil {
		return err
	}
	for i, r := range rejected {
		row := []any{r.Index, r.ProfileID, r.Label, r.Field, r.Error}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetRejected, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
