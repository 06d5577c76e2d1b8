package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/constituent-import/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "version", "--short")
	require.NoError(t, err)
	assert.Equal(t, "dev", strings.TrimSpace(out))
}

func TestProcessThenValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Gala","mapped_name":"Event Attendee"}]`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	tables := []string{
		"--config", filepath.Join(dir, "absent.yaml"),
		"--constituents", writeFixture(t, dir, "c.csv",
			"Patron ID,First Name,Last Name,Date Entered,Primary Email,Company,Salutation,Title,Tags,Gender\n"+
				"1,ann,lee,\"Jan 19, 2020\",ann@example.com,,Dr,,Gala,\n"+
				"2,,,,,Acme Corp,,,\"Gala, Board\",\n"),
		"--emails", writeFixture(t, dir, "e.csv", "Patron ID,Email\n1,ann.lee@example.com\n"),
		"--donations", writeFixture(t, dir, "d.csv",
			"Patron ID,Donation Amount,Donation Date,Status\n1,$20.00,2022-02-02,Paid\n2,$5.00,2021-01-01,Refunded\n"),
		"--output-dir", outDir,
	}

	out, err := execute(t, append([]string{"process", "--tag-api-url", srv.URL}, tables...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "IMPORT SUMMARY")
	assert.FileExists(t, filepath.Join(outDir, config.DefaultConstituentsOutputFile))
	assert.FileExists(t, filepath.Join(outDir, config.DefaultTagsOutputFile))

	out, err = execute(t, append([]string{"validate"}, tables...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "ALL VALIDATIONS PASSED")

	tagsPath := filepath.Join(outDir, config.DefaultTagsOutputFile)
	require.NoError(t, os.WriteFile(tagsPath, []byte("CB Tag Name,CB Tag Count\nEvent Attendee,9\n"), 0o644))

	out, err = execute(t, append([]string{"validate"}, tables...)...)
	require.ErrorIs(t, err, errValidationFailed)
	assert.Contains(t, out, "[FAIL] tag_counts")
}
