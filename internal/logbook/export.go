package logbook

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"autoflightlog/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Logbook"

// ExportFilename returns AutoFlightLog-export-YYYY-MM-DD.<ext>.
func ExportFilename(now time.Time, ext string) string {
	return fmt.Sprintf("AutoFlightLog-export-%s.%s", now.Format("2006-01-02"), ext)
}

// FormatValue renders an entry value for text output.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// WriteCSV writes a header row of field names followed by one row per entry.
// Quoting of commas, quotes and newlines is left to encoding/csv.
func WriteCSV(w io.Writer, entries []*models.LogbookEntry, fields []Field) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(fields))
	for _, e := range entries {
		for i, f := range fields {
			row[i] = FormatValue(e.Values[f.Key])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the entries as a single-sheet workbook.
func WriteXLSX(w io.Writer, entries []*models.LogbookEntry, fields []Field) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, field := range fields {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, field.Name)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)

		col, _ := excelize.ColumnNumberToName(i + 1)
		width := 14.0
		if field.Type == TypeText {
			width = 20
		}
		_ = f.SetColWidth(sheetName, col, col, width)
	}

	for r, e := range entries {
		for c, field := range fields {
			v, ok := e.Values[field.Key]
			if !ok || v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if field.Type == TypeNumber {
				if n, ok := v.(float64); ok {
					_ = f.SetCellFloat(sheetName, cell, n, -1, 64)
					continue
				}
			}
			_ = f.SetCellValue(sheetName, cell, FormatValue(v))
		}
	}

	if len(fields) > 0 {
		_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
