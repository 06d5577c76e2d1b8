// =============================================================================
// Constituent Import - CSV Writer Module
// =============================================================================
//
// This module writes the output tables. Columns are written in the fixed
// order given by the caller, and missing fields are written as "".
//
// ATOMIC OUTPUT:
//   Every table of a run is first encoded to a temporary file in its
//   destination directory. Only when all tables are staged are they renamed
//   into place, so an aborted run leaves any previous output untouched.
//
// =============================================================================

package csvwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ginjaninja78/constituent-import/internal/types"
)

// =============================================================================
// TABLE STRUCTURE
// =============================================================================

// Table is one output table.
type Table struct {
	// Path is the final destination of the table.
	Path string

	// Columns is the header row and field order.
	Columns []string

	// Rows are keyed by column name.
	Rows []map[string]string
}

// ConstituentsTable builds the constituents output table.
func ConstituentsTable(path string, records []types.OutputConstituent) Table {
	rows := make([]map[string]string, len(records))
	for i, rec := range records {
		rows[i] = rec.Row()
	}
	return Table{Path: path, Columns: types.ConstituentOutputColumns, Rows: rows}
}

// TagsTable builds the tag-frequency output table.
func TagsTable(path string, entries []types.TagCountEntry) Table {
	rows := make([]map[string]string, len(entries))
	for i, e := range entries {
		rows[i] = map[string]string{
			types.ColCBTagName:  e.Name,
			types.ColCBTagCount: strconv.Itoa(e.Count),
		}
	}
	return Table{Path: path, Columns: types.TagOutputColumns, Rows: rows}
}

// =============================================================================
// ENCODING
// =============================================================================

// Encode writes columns as the header row followed by rows.
func Encode(w io.Writer, columns []string, rows []map[string]string) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(columns))
	for i, row := range rows {
		for j, col := range columns {
			record[j] = row[col]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// WriteFile writes a single table atomically.
func WriteFile(table Table) error {
	return WriteAll(table)
}

// WriteAll stages every table to a temporary file, then renames each into
// place. If staging any table fails, no destination file is touched.
func WriteAll(tables ...Table) (err error) {
	staged := make([]string, 0, len(tables))
	defer func() {
		if err != nil {
			for _, tmp := range staged {
				_ = os.Remove(tmp)
			}
		}
	}()

	for _, table := range tables {
		tmp, stageErr := stage(table)
		if stageErr != nil {
			return stageErr
		}
		staged = append(staged, tmp)
	}

	for i, table := range tables {
		if renameErr := os.Rename(staged[i], table.Path); renameErr != nil {
			return fmt.Errorf("failed to finalise %s: %w", table.Path, renameErr)
		}
	}
	return nil
}

func stage(table Table) (string, error) {
	dir := filepath.Dir(table.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(table.Path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", table.Path, err)
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, table.Columns, table.Rows); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to encode %s: %w", table.Path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to sync %s: %w", table.Path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close %s: %w", table.Path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to set permissions on %s: %w", table.Path, err)
	}
	return tmpPath, nil
}
