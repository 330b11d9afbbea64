package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/example/expense-report/internal/aggregate"
)

const defaultSheet = "Sheet1"

// XLSXWriter writes one worksheet per period to an xlsx workbook.
type XLSXWriter struct {
	path   string
	logger *slog.Logger
}

// NewXLSXWriter creates a writer for path.
func NewXLSXWriter(path string, logger *slog.Logger) *XLSXWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXWriter{path: path, logger: logger}
}

func (w *XLSXWriter) Write(_ context.Context, r *aggregate.Report) error {
	f, err := Workbook(r)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", w.path, err)
	}

	w.logger.Info("workbook written", "path", w.path, "sheets", len(f.GetSheetList()))
	return nil
}

// Workbook builds the workbook for r without saving it.
func Workbook(r *aggregate.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	buckets := r.Periods()
	if len(buckets) == 0 {
		if err := f.SetCellValue(defaultSheet, "A1", "Keine Ausgaben gefunden."); err != nil {
			f.Close()
			return nil, err
		}
		return f, nil
	}

	for i, name := range SheetNames(buckets) {
		if err := writeSheet(f, name, Rows(buckets[i])); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %q: %w", name, err)
		}
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}
	f.SetActiveSheet(0)
	return f, nil
}

func writeSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(name, "A", "A", 14); err != nil {
		return err
	}
	return f.SetColWidth(name, "B", "C", 32)
}
