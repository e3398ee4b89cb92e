// Package export renders usage reports as XLSX workbooks.
package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/boothboard/internal/usage"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the usage workbook.
const (
	UsageSheet   = "Usage"
	SummarySheet = "Summary"
)

// maxSheetName is the Excel limit on sheet name length.
const maxSheetName = 31

// sheetWriter appends rows to the sheets of an excelize file.
type sheetWriter struct {
	file  *excelize.File
	sheet string
	row   int
	bold  int
}

func newSheetWriter() (*sheetWriter, error) {
	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("create header style: %w", err)
	}
	return &sheetWriter{file: f, bold: bold}, nil
}

// addSheet starts a new sheet. The first call renames the default sheet.
func (w *sheetWriter) addSheet(name string) error {
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	if w.sheet == "" {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("rename sheet %s: %w", name, err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	w.sheet = name
	w.row = 1
	return nil
}

func (w *sheetWriter) writeHeader(columns []string) error {
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = c
	}
	start, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(columns), w.row)
	if err != nil {
		return err
	}
	if err := w.writeRow(values); err != nil {
		return err
	}
	return w.file.SetCellStyle(w.sheet, start, end, w.bold)
}

func (w *sheetWriter) writeRow(values []any) error {
	if w.sheet == "" {
		return errors.New("no active sheet")
	}
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.file.SetSheetRow(w.sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d of %s: %w", w.row, w.sheet, err)
	}
	w.row++
	return nil
}

// WriteUsageWorkbook writes a workbook with a Usage sheet (one row per day,
// one column per booth plus a Total column) and a Summary sheet (one row per
// summary row). Booths missing from names are labelled by id.
func WriteUsageWorkbook(out io.Writer, result usage.Result, names map[uuid.UUID]string, rows []usage.SummaryRow) error {
	w, err := newSheetWriter()
	if err != nil {
		return err
	}
	defer w.file.Close()

	if err := writeUsageSheet(w, result, names); err != nil {
		return err
	}
	if err := writeSummarySheet(w, rows); err != nil {
		return err
	}
	if err := w.file.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeUsageSheet(w *sheetWriter, result usage.Result, names map[uuid.UUID]string) error {
	if err := w.addSheet(UsageSheet); err != nil {
		return err
	}

	header := make([]string, 0, len(result.BoothIDs)+2)
	header = append(header, "Day")
	for _, id := range result.BoothIDs {
		name, ok := names[id]
		if !ok || name == "" {
			name = id.String()
		}
		header = append(header, name)
	}
	header = append(header, "Total")
	if err := w.writeHeader(header); err != nil {
		return err
	}

	for _, entry := range result.Series {
		values := make([]any, 0, len(header))
		values = append(values, entry.Day)
		for _, id := range result.BoothIDs {
			values = append(values, entry.Hours[id])
		}
		values = append(values, entry.TotalHours)
		if err := w.writeRow(values); err != nil {
			return err
		}
	}
	return nil
}

func writeSummarySheet(w *sheetWriter, rows []usage.SummaryRow) error {
	if err := w.addSheet(SummarySheet); err != nil {
		return err
	}
	if err := w.writeHeader([]string{
		"Booth", "Working hours per day", "Usage hours", "Available hours", "Utilization %",
	}); err != nil {
		return err
	}

	for _, r := range rows {
		// Utilization stays blank when no hours were available.
		var pct any = ""
		if r.Percentage != nil {
			pct = *r.Percentage
		}
		if err := w.writeRow([]any{
			r.Name, r.WorkingHoursPerDay, r.TotalUsageHours, r.TotalAvailableHours, pct,
		}); err != nil {
			return err
		}
	}
	return nil
}
