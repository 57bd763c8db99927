// Package pricebook loads product reference data from the merchandising
// team's price book spreadsheet. The spreadsheet is maintained by hand,
// so the loader is deliberately tolerant: rows it cannot parse are
// skipped and counted rather than failing the load.
package pricebook

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/store"
)

// Expected column order in the price book sheet
const (
	colCode = iota
	colName
	colPrice
	colUnit
	colCategory
	minColumns = 2
)

// ExcelSource reads product records from an xlsx price book
type ExcelSource struct {
	path   string
	sheet  string
	logger *zap.Logger
}

// NewExcelSource creates a source reading from the given file and sheet.
// An empty sheet name means the first sheet in the workbook.
func NewExcelSource(path, sheet string, logger *zap.Logger) *ExcelSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExcelSource{path: path, sheet: sheet, logger: logger}
}

// LoadAll reads every product row from the price book. The header row
// and rows without a product code are skipped; a malformed price leaves
// the record with a zero price rather than dropping it.
func (s *ExcelSource) LoadAll(ctx context.Context) ([]store.ProductRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("pricebook: unable to open %s: %w", s.path, err)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("pricebook: unable to read sheet %s: %w", sheet, err)
	}

	records := make([]store.ProductRecord, 0, len(rows))
	skipped := 0
	for i, row := range rows {
		if i == 0 {
			// Header row
			continue
		}
		if len(row) < minColumns {
			skipped++
			continue
		}

		code := strings.TrimSpace(cell(row, colCode))
		if code == "" {
			skipped++
			continue
		}

		record := store.ProductRecord{
			Code:     code,
			Name:     strings.TrimSpace(cell(row, colName)),
			Unit:     strings.TrimSpace(cell(row, colUnit)),
			Category: strings.TrimSpace(cell(row, colCategory)),
		}

		if raw := strings.TrimSpace(cell(row, colPrice)); raw != "" {
			price, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
			if err != nil {
				s.logger.Warn("Unparseable price in price book",
					zap.Int("row", i+1),
					zap.String("code", code),
					zap.String("price", raw),
				)
			} else {
				record.Price = price
			}
		}

		records = append(records, record)
	}

	s.logger.Info("Loaded price book",
		zap.String("path", s.path),
		zap.String("sheet", sheet),
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
	)
	return records, nil
}

// cell returns the column value or empty when the row is short
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

var _ store.ProductSource = (*ExcelSource)(nil)
