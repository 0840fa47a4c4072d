package infrastructure

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"creativelens/internal/domain"
)

// XLSXReportReader reads the first sheet of a workbook, keyed by the header row.
// Numeric cells are rendered with a decimal comma to match the report's
// European text format. Numeric cells in date columns are converted from
// spreadsheet serials to YYYY-MM-DD.
type XLSXReportReader struct {
	dateColumns map[string]struct{}
}

func NewXLSXReportReader(dateColumns []string) *XLSXReportReader {
	cols := make(map[string]struct{}, len(dateColumns))
	for _, c := range dateColumns {
		cols[c] = struct{}{}
	}
	return &XLSXReportReader{dateColumns: cols}
}

func (r *XLSXReportReader) ReadRows(in io.Reader) ([]domain.RawRow, error) {
	f, err := excelize.OpenReader(in)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Excel file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	out := make([]domain.RawRow, 0, len(rows)-1)
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := make(domain.RawRow, len(headers))
		empty := true
		for col, raw := range rows[rowIdx] {
			if col >= len(headers) || headers[col] == "" {
				continue
			}
			value := strings.TrimSpace(raw)
			if value == "" {
				continue
			}
			empty = false
			if r.isNumeric(f, sheet, col, rowIdx, value) {
				value = r.renderNumber(headers[col], value)
			}
			row[headers[col]] = value
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *XLSXReportReader) isNumeric(f *excelize.File, sheet string, col, rowIdx int, value string) bool {
	if _, err := strconv.ParseFloat(value, 64); err != nil {
		return false
	}
	cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+1)
	if err != nil {
		return false
	}
	typ, err := f.GetCellType(sheet, cell)
	if err != nil {
		return false
	}
	return typ == excelize.CellTypeUnset || typ == excelize.CellTypeNumber
}

func (r *XLSXReportReader) renderNumber(header, value string) string {
	if _, ok := r.dateColumns[header]; ok {
		serial, _ := strconv.ParseFloat(value, 64)
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format(domain.DateLayout)
		}
	}
	return strings.Replace(value, ".", ",", 1)
}
