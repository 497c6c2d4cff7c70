package stats

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Monthly Spending"

// Exporter writes monthly spending totals as an Excel workbook.
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new spending exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// Export produces an .xlsx workbook with one row per month: the month key and
// the summed amount, months ascending.
func (e *Exporter) Export(totals map[string]float64) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &[]any{"Month", "Total"}); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, month := range SortedMonths(totals) {
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheetName, cell, &[]any{month, totals[month]}); err != nil {
			return nil, fmt.Errorf("failed to write row for %s: %w", month, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	e.logger.Debug("Spending export generated",
		zap.Int("months", len(totals)),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}
