package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

var exportColumns = []string{
	"id", "reservation_id", "actor_id", "from_status", "to_status", "reason", "recorded_at",
}

// Exporter writes one month of audit records to an .xlsx workbook.
type Exporter struct {
	store Store
	dir   string
}

// NewExporter creates an exporter writing workbooks into dir.
func NewExporter(store Store, dir string) *Exporter {
	return &Exporter{store: store, dir: dir}
}

// ExportMonth writes all transitions recorded during the month that
// contains t, and returns the resulting file path. A month with no
// records still produces a workbook with only the header row.
func (e *Exporter) ExportMonth(ctx context.Context, t time.Time) (string, error) {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	to := from.AddDate(0, 1, 0)

	records, err := e.store.AuditRecordsBetween(ctx, from, to)
	if err != nil {
		return "", fmt.Errorf("load audit records: %w", err)
	}

	sheet := from.Format("2006-01")
	file := excelize.NewFile()
	defer file.Close()
	file.SetSheetName("Sheet1", sheet)

	for i, col := range exportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return "", err
		}
		if err := file.SetCellValue(sheet, cell, col); err != nil {
			return "", err
		}
	}
	if style, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(exportColumns), 1)
		_ = file.SetCellStyle(sheet, start, end, style)
	}

	for row, rec := range records {
		values := []interface{}{
			rec.ID,
			rec.ReservationID,
			rec.ActorID,
			string(rec.FromStatus),
			string(rec.ToStatus),
			rec.Reason,
			rec.CreatedAt.Format(time.RFC3339),
		}
		for i, val := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row+2)
			if err != nil {
				return "", err
			}
			if err := file.SetCellValue(sheet, cell, val); err != nil {
				return "", err
			}
		}
	}

	path := filepath.Join(e.dir, fmt.Sprintf("audit_%s.xlsx", sheet))
	if err := file.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return path, nil
}
