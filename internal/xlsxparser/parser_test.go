package xlsxparser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}

	path := filepath.Join(t.TempDir(), "input.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestParse(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{" Patron ID ", "Email", "Status"},
		{"1", "a@example.com", "Paid"},
		{"2", "b@example.com"},
		{},
		{"3", "", "Refunded"},
	})

	sheet, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "Sheet1", sheet.Name)
	assert.Equal(t, []string{"Patron ID", "Email", "Status"}, sheet.Headers)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, map[string]string{"Patron ID": "1", "Email": "a@example.com", "Status": "Paid"}, sheet.Rows[0])
	assert.Equal(t, "", sheet.Rows[1]["Status"])
	assert.Equal(t, "Refunded", sheet.Rows[2]["Status"])
}

func TestParseNamedSheet(t *testing.T) {
	path := writeWorkbook(t, "Donations", [][]interface{}{
		{"Patron ID", "Donation Amount"},
		{"9", "$10.00"},
	})

	sheet, err := ParseWithOptions(path, Options{SheetName: "Donations"})
	require.NoError(t, err)
	require.Len(t, sheet.Rows, 1)
	assert.Equal(t, "$10.00", sheet.Rows[0]["Donation Amount"])

	_, err = ParseWithOptions(path, Options{SheetName: "Missing"})
	assert.Error(t, err)
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}
