// =============================================================================
// Constituent Import - XLSX Parser Module
// =============================================================================
//
// This module reads an input table that was exported as an Excel workbook.
// The first non-empty row of the selected sheet is the header row; every
// later non-empty row becomes a record keyed by header.
//
// Cell values are read as displayed (formatted) text, so dates and currency
// amounts arrive in the same textual form a CSV export would carry.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// SHEET STRUCTURE
// =============================================================================

// Sheet represents one parsed worksheet.
type Sheet struct {
	// SourceFile is the path to the workbook.
	SourceFile string

	// Name is the worksheet name.
	Name string

	// Headers contains the trimmed header cells in column order.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	// Missing trailing cells are stored as "".
	Rows []map[string]string
}

// Options selects the worksheet to read.
type Options struct {
	// SheetName selects a worksheet by name. Empty selects the first sheet.
	SheetName string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the first worksheet of the workbook at path.
func Parse(path string) (*Sheet, error) {
	return ParseWithOptions(path, Options{})
}

// ParseWithOptions reads the selected worksheet of the workbook at path.
//
// PARAMETERS:
//   - path: The path to the .xlsx file.
//   - opts: Worksheet selection.
//
// RETURNS:
//   - The parsed sheet.
//   - An error if the workbook cannot be opened or the sheet does not exist.
func ParseWithOptions(path string, opts Options) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheetName := opts.SheetName
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %q: %w", sheetName, err)
	}

	sheet := &Sheet{SourceFile: path, Name: sheetName}

	headerIdx := -1
	for i, row := range rows {
		if !isRowEmpty(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return sheet, nil
	}

	sheet.Headers = make([]string, len(rows[headerIdx]))
	for i, cell := range rows[headerIdx] {
		sheet.Headers[i] = strings.TrimSpace(cell)
	}

	for _, row := range rows[headerIdx+1:] {
		if isRowEmpty(row) {
			continue
		}
		sheet.Rows = append(sheet.Rows, rowToMap(sheet.Headers, row))
	}

	return sheet, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func rowToMap(headers, row []string) map[string]string {
	record := make(map[string]string, len(headers))
	for i, header := range headers {
		if header == "" {
			continue
		}
		if i < len(row) {
			record[header] = row[i]
		} else {
			record[header] = ""
		}
	}
	return record
}

// isRowEmpty checks if a row has only blank cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
