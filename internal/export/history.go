// Package export renders history rows as an XLSX workbook.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/boxwatch/boxwatch/internal/db/models"
)

// SheetName is the name of the single history sheet.
const SheetName = "History"

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	headers      = []string{"ID", "Time (UTC)", "Box", "Box name", "Location", "Type", "User", "User name", "Note"}
	columnWidths = []float64{8, 22, 10, 20, 20, 12, 12, 20, 40}
)

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

func row(h models.HistoryEntry) []any {
	return []any{
		h.ID,
		h.CreatedAt.UTC().Format(time.RFC3339),
		h.BoxID,
		deref(h.BoxName),
		deref(h.BoxLocation),
		h.Type,
		deref(h.UserID),
		deref(h.UserName),
		h.Note,
	}
}

// History writes rows to a single sheet workbook with a frozen, styled header row.
func History(rows []models.HistoryEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	if err = f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err = f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return nil, fmt.Errorf("failed to convert coordinates: %w", err)
	}

	if err = f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}

		if err = f.SetColWidth(SheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, h := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}

		values := row(h)
		if err = f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err = f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err = f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return buf.Bytes(), nil
}
