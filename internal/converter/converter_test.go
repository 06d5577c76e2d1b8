package converter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/constituent-import/internal/config"
	"github.com/ginjaninja78/constituent-import/internal/csvparser"
	"github.com/ginjaninja78/constituent-import/internal/metrics"
	"github.com/ginjaninja78/constituent-import/internal/tags"
	"github.com/ginjaninja78/constituent-import/internal/types"
)

const (
	constituentsCSV = "Patron ID,First Name,Last Name,Date Entered,Primary Email,Company,Salutation,Title,Tags,Gender\n" +
		"1,jane,doe,\"Jan 19, 2020\",jane@hotmal.com,None,Ms,Nurse,\"Gala, Board\",Single\n" +
		"2,,,,,Acme Corp,,,Gala,\n"
	emailsCSV    = "Patron ID,Email\n1,jane.doe@example.com\n7,orphan@example.com\n"
	donationsCSV = "Patron ID,Donation Amount,Donation Date,Status\n" +
		"1,$10.00,04/19/2022,Paid\n" +
		"1,$2.50,\"Jan 2, 2021\",Paid\n" +
		"2,$100.00,2023-01-01,Refunded\n" +
		"2,$40.00,3/5/2020,Paid\n"
)

func writeInputs(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	cfg := &config.Config{
		ConstituentsFile: write("constituents.csv", constituentsCSV),
		EmailsFile:       write("emails.csv", emailsCSV),
		DonationsFile:    write("donations.csv", donationsCSV),
		OutputDir:        filepath.Join(dir, "output"),
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func newTestConverter(cfg *config.Config, mapping tags.Mapping) *Converter {
	log := zerolog.Nop()
	c := New(cfg, &log)
	c.Resolver = tags.NewStaticResolver(mapping)
	c.Now = func() time.Time { return fixedNow }
	return c
}

func readOutput(t *testing.T, path string) *csvparser.Table {
	t.Helper()
	table, err := csvparser.ParseFile(path, csvparser.Settings{})
	require.NoError(t, err)
	return table
}

func TestRunWritesOutputTables(t *testing.T) {
	cfg := writeInputs(t)
	c := newTestConverter(cfg, tags.Mapping{"Gala": "Event Attendee"})

	result := c.Run(context.Background())
	require.NoError(t, result.Error)
	require.True(t, result.Success)
	assert.NotEmpty(t, result.RunID)

	constituents := readOutput(t, result.ConstituentsFile)
	assert.Equal(t, types.ConstituentOutputColumns, constituents.Headers)
	require.Len(t, constituents.Rows, 2)

	jane := constituents.Rows[0]
	assert.Equal(t, "1", jane[types.ColCBConstituentID])
	assert.Equal(t, "Person", jane[types.ColCBConstituentType])
	assert.Equal(t, "Jane", jane[types.ColCBFirstName])
	assert.Equal(t, "2020-01-19T00:00:00", jane[types.ColCBCreatedAt])
	assert.Equal(t, "jane@hotmail.com", jane[types.ColCBEmail1])
	assert.Equal(t, "jane.doe@example.com", jane[types.ColCBEmail2])
	assert.Equal(t, "Ms.", jane[types.ColCBTitle])
	assert.Equal(t, "Event Attendee, Board", jane[types.ColCBTags])
	assert.Equal(t, "$12.50", jane[types.ColCBLifetimeDonation])
	assert.Equal(t, "2022-04-19", jane[types.ColCBMostRecentDate])
	assert.Equal(t, "$10.00", jane[types.ColCBMostRecentAmount])

	acme := constituents.Rows[1]
	assert.Equal(t, "Company", acme[types.ColCBConstituentType])
	assert.Equal(t, "Acme Corp", acme[types.ColCBCompanyName])
	assert.Equal(t, "2020-03-05T00:00:00", acme[types.ColCBCreatedAt])
	assert.Equal(t, "$40.00", acme[types.ColCBLifetimeDonation])

	tagTable := readOutput(t, result.TagsFile)
	assert.Equal(t, []map[string]string{
		{types.ColCBTagName: "Board", types.ColCBTagCount: "1"},
		{types.ColCBTagName: "Event Attendee", types.ColCBTagCount: "2"},
	}, tagTable.Rows)

	assert.Equal(t, 1, result.Stats.OrphanedEmails)
	assert.Equal(t, 2, result.Stats.Tags)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	cfg := writeInputs(t)
	c := newTestConverter(cfg, nil)
	c.DryRun = true

	result := c.Run(context.Background())
	require.True(t, result.Success)
	assert.Empty(t, result.ConstituentsFile)
	require.NotNil(t, result.Merged)
	assert.Len(t, result.Merged.Constituents, 2)
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestRunMissingInput(t *testing.T) {
	cfg := writeInputs(t)
	cfg.EmailsFile = filepath.Join(t.TempDir(), "absent.csv")

	result := newTestConverter(cfg, nil).Run(context.Background())
	assert.False(t, result.Success)
	assert.True(t, errors.Is(result.Error, types.ErrInputMissing))

	var missing *types.InputMissingError
	require.True(t, errors.As(result.Error, &missing))
	assert.Equal(t, "emails", missing.Table)
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestRunSummaryAndMetrics(t *testing.T) {
	cfg := writeInputs(t)
	cfg.SummaryLog = true
	cfg.MetricsFile = filepath.Join(t.TempDir(), "import.prom")

	c := newTestConverter(cfg, nil)
	c.RunID = "run-1"
	result := c.Run(context.Background())
	require.True(t, result.Success)

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, cfg.SummaryLogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id=run-1 status=success constituents=2")

	prom, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(prom), "constituents_processed_total"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Metrics.ConstituentsProcessed))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.Metrics.ParseFailures.WithLabelValues(metrics.FieldDonationDate)))
}

func TestRunSummaryOnFailure(t *testing.T) {
	cfg := writeInputs(t)
	cfg.SummaryLog = true
	cfg.DonationsFile = filepath.Join(t.TempDir(), "absent.csv")

	result := newTestConverter(cfg, nil).Run(context.Background())
	require.False(t, result.Success)

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, cfg.SummaryLogFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "status=failed")
}

func TestRunWithHTTPResolver(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Board","mapped_name":"Board Member"}]`))
	}))
	defer srv.Close()

	cfg := writeInputs(t)
	cfg.TagAPIURL = srv.URL
	log := zerolog.Nop()
	c := New(cfg, &log)
	c.DryRun = true

	result := c.Run(context.Background())
	require.True(t, result.Success)
	assert.Equal(t, "Gala, Board Member", result.Merged.Constituents[0].Tags)
	assert.False(t, result.Stats.TagLookupDegraded)
}

func TestRunTagLookupDegraded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := writeInputs(t)
	cfg.TagAPIURL = srv.URL
	log := zerolog.Nop()
	c := New(cfg, &log)

	result := c.Run(context.Background())
	require.True(t, result.Success)
	assert.True(t, result.Stats.TagLookupDegraded)
	assert.Equal(t, "Gala, Board", result.Merged.Constituents[0].Tags)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Metrics.TagLookupFailures))
}
