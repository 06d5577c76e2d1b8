// =============================================================================
// Constituent Import - Table Reader
// =============================================================================
//
// This module loads the three input tables and applies the ingestion schema
// mapping exactly once. Downstream packages only see the normalised record
// types and never the upstream column names.
//
// SCHEMA MAPPING:
//   - Constituents "Title"  -> JobTitle
//   - Constituents "Gender" -> MaritalStatus
//   - Donation dates that parse are rewritten to YYYY-MM-DD
//
// FILE FORMATS:
//   - .xlsx    read with the xlsxparser (first worksheet)
//   - anything else read as CSV
//
// =============================================================================

package tablereader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/constituent-import/internal/csvparser"
	"github.com/ginjaninja78/constituent-import/internal/logging"
	"github.com/ginjaninja78/constituent-import/internal/transform"
	"github.com/ginjaninja78/constituent-import/internal/types"
	"github.com/ginjaninja78/constituent-import/internal/xlsxparser"
)

// Table names used in errors and logs.
const (
	TableConstituents = "constituents"
	TableEmails       = "emails"
	TableDonations    = "donations"
)

// =============================================================================
// RAW TABLES
// =============================================================================

// Table is a format-independent input table.
type Table struct {
	Path    string
	Headers []string
	Rows    []map[string]string
}

// Reader loads input tables.
type Reader struct {
	Logger *zerolog.Logger

	// CSV controls CSV tokenisation.
	CSV csvparser.Settings
}

// New creates a Reader logging to logger.
func New(logger *zerolog.Logger) *Reader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reader{Logger: logger}
}

// ReadTable loads the file at path, choosing the parser by extension. A
// missing file yields a *types.InputMissingError for name.
func (r *Reader) ReadTable(name, path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &types.InputMissingError{Table: name, Path: path}
		}
		return nil, fmt.Errorf("failed to stat %s table: %w", name, err)
	}

	r.Logger.Info().Str("table", name).Str("path", path).Msg("reading input table")

	var table *Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		sheet, err := xlsxparser.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s table: %w", name, err)
		}
		table = &Table{Path: path, Headers: sheet.Headers, Rows: sheet.Rows}
	default:
		parsed, err := csvparser.ParseFile(path, r.CSV)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s table: %w", name, err)
		}
		table = &Table{Path: path, Headers: parsed.Headers, Rows: parsed.Rows}
	}

	r.Logger.Info().Str("table", name).Int("rows", len(table.Rows)).Msg("read input table")
	return table, nil
}

// checkColumns warns about schema columns absent from the header row. Missing
// columns read as "".
func (r *Reader) checkColumns(name string, table *Table, expected []string) {
	present := make(map[string]struct{}, len(table.Headers))
	for _, h := range table.Headers {
		present[h] = struct{}{}
	}

	var missing []string
	for _, col := range expected {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		r.Logger.Warn().Str("table", name).Strs("columns", missing).
			Msg("input table is missing columns, treating them as empty")
	}
}

// =============================================================================
// SCHEMA MAPPING
// =============================================================================

// ReadConstituents loads the primary constituents table.
func (r *Reader) ReadConstituents(path string) ([]types.ConstituentRecord, error) {
	table, err := r.ReadTable(TableConstituents, path)
	if err != nil {
		return nil, err
	}
	r.checkColumns(TableConstituents, table, types.ConstituentInputColumns)

	records := make([]types.ConstituentRecord, len(table.Rows))
	for i, row := range table.Rows {
		records[i] = types.ConstituentRecord{
			PatronID:      strings.TrimSpace(row[types.ColPatronID]),
			FirstName:     row[types.ColFirstName],
			LastName:      row[types.ColLastName],
			DateEntered:   row[types.ColDateEntered],
			PrimaryEmail:  row[types.ColPrimaryEmail],
			Company:       row[types.ColCompany],
			Salutation:    row[types.ColSalutation],
			JobTitle:      row[types.ColUpstreamTitle],
			Tags:          row[types.ColTags],
			MaritalStatus: row[types.ColUpstreamGender],
			RowNumber:     i + 1,
		}
	}
	return records, nil
}

// ReadEmails loads the secondary email table.
func (r *Reader) ReadEmails(path string) ([]types.EmailRecord, error) {
	table, err := r.ReadTable(TableEmails, path)
	if err != nil {
		return nil, err
	}
	r.checkColumns(TableEmails, table, types.EmailInputColumns)

	records := make([]types.EmailRecord, len(table.Rows))
	for i, row := range table.Rows {
		records[i] = types.EmailRecord{
			PatronID: strings.TrimSpace(row[types.ColPatronID]),
			Email:    row[types.ColEmail],
		}
	}
	return records, nil
}

// Donations is the donation table together with its ingestion diagnostics.
type Donations struct {
	Records []types.DonationRecord

	// UnparsedDates counts non-blank dates kept in their raw form.
	UnparsedDates int
}

// ReadDonations loads the donation history table and normalises dates.
func (r *Reader) ReadDonations(path string) (*Donations, error) {
	table, err := r.ReadTable(TableDonations, path)
	if err != nil {
		return nil, err
	}
	r.checkColumns(TableDonations, table, types.DonationInputColumns)

	out := &Donations{Records: make([]types.DonationRecord, len(table.Rows))}
	for i, row := range table.Rows {
		date, ok := NormalizeDate(row[types.ColDonationDate])
		if !ok {
			out.UnparsedDates++
		}
		out.Records[i] = types.DonationRecord{
			PatronID: strings.TrimSpace(row[types.ColPatronID]),
			Amount:   row[types.ColDonationAmount],
			Date:     date,
			Status:   row[types.ColStatus],
		}
	}

	if out.UnparsedDates > 0 {
		r.Logger.Warn().Int("count", out.UnparsedDates).
			Msg("donation dates kept in raw form, most-recent ordering may be wrong for them")
	}
	return out, nil
}

// NormalizeDate rewrites a parseable date to YYYY-MM-DD. Blank input returns
// "" and true. Unparseable input returns the trimmed raw value and false.
func NormalizeDate(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", true
	}
	parsed, ok := transform.ParseDate(trimmed)
	if !ok {
		return trimmed, false
	}
	return parsed.Format(transform.ISODateLayout), true
}
