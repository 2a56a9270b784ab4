// Package export renders the persisted results table as an XLSX workbook.
package export

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Sheet is the name of the worksheet holding the results.
const Sheet = "Places"

// TableReader yields a header and rows of text cells.
type TableReader interface {
	Table(ctx context.Context) ([]string, [][]string, error)
}

// Service converts a results table into a workbook.
type Service struct {
	src    TableReader
	logger *zap.Logger
}

// NewService returns a Service reading from src.
func NewService(src TableReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{src: src, logger: logger}
}

// XLSX returns the workbook bytes: a bold, frozen header row followed by one
// row per record.
func (s *Service) XLSX(ctx context.Context) ([]byte, int, error) {
	start := time.Now()
	header, rows, err := s.src.Table(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read results: %w", err)
	}
	if header == nil {
		return nil, 0, fmt.Errorf("no results to export")
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		return nil, 0, fmt.Errorf("name sheet: %w", err)
	}
	if err := writeRow(f, 1, header); err != nil {
		return nil, 0, err
	}
	for i, row := range rows {
		if err := writeRow(f, i+2, row); err != nil {
			return nil, 0, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, 0, fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(Sheet, "A1", last, bold); err != nil {
		return nil, 0, fmt.Errorf("apply header style: %w", err)
	}
	if err := f.SetPanes(Sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, 0, fmt.Errorf("freeze header: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	_ = f.SetColWidth(Sheet, "A", lastCol, 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("xlsx export built",
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return buf.Bytes(), len(rows), nil
}

// WriteFile builds the workbook and writes it to path.
func (s *Service) WriteFile(ctx context.Context, path string) (int, error) {
	data, n, err := s.XLSX(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return n, nil
}

func writeRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	if err := f.SetSheetRow(Sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
