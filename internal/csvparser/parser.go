// =============================================================================
// Constituent Import - CSV Parser Module
// =============================================================================
//
// This module reads a delimited text table into an ordered sequence of rows
// keyed by header name. The first row is the header row. Rows shorter than
// the header are padded with empty strings so that a missing optional column
// reads as "".
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// Table represents a parsed CSV file.
type Table struct {
	// Headers contains the cleaned column headers in file order.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []map[string]string

	// SourceFile is the path to the source file, if any.
	SourceFile string
}

// HasColumn reports whether the table header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// Settings controls how the file is tokenised.
type Settings struct {
	// Delimiter is the field separator. Default: ","
	Delimiter string
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile reads the CSV file at filePath.
func ParseFile(filePath string, settings Settings) (*Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	table, err := Parse(file, settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	table.SourceFile = filePath
	return table, nil
}

// Parse reads a CSV document from r.
//
// PARSING PROCESS:
//   1. Strip a UTF-8 byte order mark
//   2. Read all records
//   3. Take the first record as headers
//   4. Convert each later record to a map of header -> value
//
// An empty document yields a table with no headers and no rows.
func Parse(r io.Reader, settings Settings) (*Table, error) {
	reader := bufio.NewReader(r)
	if err := skipBOM(reader); err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	table := &Table{}
	if len(allRows) == 0 {
		return table, nil
	}

	table.Headers = cleanHeaders(allRows[0])
	table.Rows = make([]map[string]string, 0, len(allRows)-1)

	for _, raw := range allRows[1:] {
		row := make(map[string]string, len(table.Headers))
		for i, header := range table.Headers {
			if header == "" {
				continue
			}
			if i < len(raw) {
				row[header] = raw[i]
			} else {
				row[header] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings Settings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Allow a variable number of fields per row.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// cleanHeaders trims whitespace around header names.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, h := range headers {
		cleaned[i] = strings.TrimSpace(h)
	}
	return cleaned
}

func skipBOM(r *bufio.Reader) error {
	peek, err := r.Peek(3)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return err
	}
	if len(peek) >= 3 && peek[0] == 0xEF && peek[1] == 0xBB && peek[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return nil
}
