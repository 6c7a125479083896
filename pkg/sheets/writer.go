// Package sheets exports query results to spreadsheet workbooks.
package sheets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/growthbox/databot/pkg/warehouse"
)

const defaultSheetName = "Data"

// Exporter writes query results to workbook files.
// Use this interface for dependency injection to enable mocking in tests.
type Exporter interface {
	ExportResult(filename, sheetName string, result *warehouse.QueryResult) (string, error)
}

// Writer creates workbooks under a fixed output directory.
type Writer struct {
	outputDir string
	logger    *zap.Logger
}

// NewWriter creates a writer rooted at outputDir. The directory is
// created on first use.
func NewWriter(outputDir string, logger *zap.Logger) *Writer {
	return &Writer{
		outputDir: outputDir,
		logger:    logger.Named("sheets"),
	}
}

// ExportResult writes the result as a new workbook and returns its
// path. The file name gets a timestamp suffix so repeated exports of
// the same query never overwrite each other.
func (w *Writer) ExportResult(filename, sheetName string, result *warehouse.QueryResult) (string, error) {
	if result == nil || result.RowCount == 0 {
		return "", fmt.Errorf("nothing to export: empty result")
	}
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	filename = sanitizeFilename(filename)
	if filename == "" {
		filename = "export"
	}

	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}

	// Header row.
	for j, col := range result.Columns {
		cell, err := excelize.CoordinatesToCellName(j+1, 1)
		if err != nil {
			return "", fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, col.Name); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
	}

	for i, row := range result.Rows {
		for j, col := range result.Columns {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return "", fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, row[col.Name]); err != nil {
				return "", fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	path := filepath.Join(w.outputDir,
		fmt.Sprintf("%s_%s.xlsx", filename, time.Now().Format("20060102_150405")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	w.logger.Info("Exported result to workbook",
		zap.String("path", path),
		zap.Int("rows", result.RowCount))

	return path, nil
}

// WriteAt writes rows into a workbook starting at a specific cell,
// opening the workbook if it exists and creating it otherwise. Existing
// content outside the written block is preserved. This is the write
// path for recurring jobs that fill a fixed region of a shared sheet.
func (w *Writer) WriteAt(workbook, sheetName, startCell string, rows [][]any) error {
	if sheetName == "" {
		sheetName = defaultSheetName
	}

	startCol, startRow, err := excelize.CellNameToCoordinates(startCell)
	if err != nil {
		return fmt.Errorf("invalid start cell %q: %w", startCell, err)
	}

	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(w.outputDir, workbook)

	var f *excelize.File
	if _, statErr := os.Stat(path); statErr == nil {
		f, err = excelize.OpenFile(path)
		if err != nil {
			return fmt.Errorf("open workbook: %w", err)
		}
	} else {
		f = excelize.NewFile()
	}
	defer f.Close()

	if idx, idxErr := f.GetSheetIndex(sheetName); idxErr != nil || idx < 0 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return fmt.Errorf("create sheet: %w", err)
		}
	}

	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(startCol+j, startRow+i)
			if err != nil {
				return fmt.Errorf("target cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	w.logger.Info("Wrote block to workbook",
		zap.String("path", path),
		zap.String("sheet", sheetName),
		zap.String("start_cell", startCell),
		zap.Int("rows", len(rows)))

	return nil
}

// sanitizeFilename strips path separators and other characters that
// have no business in a file name.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", "..", "_", " ", "_",
		":", "_", "*", "_", "?", "_", "\"", "_",
		"<", "_", ">", "_", "|", "_",
	)
	return replacer.Replace(name)
}

// Ensure Writer implements Exporter at compile time.
var _ Exporter = (*Writer)(nil)
