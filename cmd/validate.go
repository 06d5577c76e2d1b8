// =============================================================================
// Constituent Import - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which re-checks written output
// tables against the input tables they were produced from.
//
// COMMAND USAGE:
//   constituent-import validate [flags]
//
// EXIT STATUS:
//   0 when every check passes, 1 otherwise.
//
// =============================================================================

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/constituent-import/internal/csvparser"
	"github.com/ginjaninja78/constituent-import/internal/tablereader"
	"github.com/ginjaninja78/constituent-import/internal/validation"
	"github.com/ginjaninja78/constituent-import/pkg/utils"
)

// errValidationFailed is returned when at least one check fails.
var errValidationFailed = errors.New("output validation failed")

var validateTables tableFlags

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate written output tables against the inputs",
	Long: `The validate command reads the input tables and the two output tables and
checks that:
  - every input constituent has exactly one output row
  - constituent ids are non-empty and unique
  - lifetime donation amounts equal the sum of non-refunded donations
  - most recent donation date and amount match the latest donation
  - email addresses are well formed
  - constituent types follow the company field
  - tag counts match tag usage in the constituents table`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateTables.register(validateCmd)
}

func runValidate(cmd *cobra.Command) error {
	cfg, err := loadConfig(validateTables.apply)
	if err != nil {
		return err
	}
	log := setupLogging(cfg, "")

	reader := tablereader.New(log)
	constituents, err := reader.ReadConstituents(cfg.ConstituentsFile)
	if err != nil {
		return err
	}
	donationTable, err := reader.ReadDonations(cfg.DonationsFile)
	if err != nil {
		return err
	}

	files := utils.NewFileManager(cfg.OutputDir, cfg.SummaryLogFile)
	outConstituents, err := readOutputTable(files.OutputPath(cfg.ConstituentsOutputFile))
	if err != nil {
		return err
	}
	outTags, err := readOutputTable(files.OutputPath(cfg.TagsOutputFile))
	if err != nil {
		return err
	}

	result := validation.Validate(
		validation.Inputs{Constituents: constituents, Donations: donationTable.Records},
		validation.Outputs{Constituents: outConstituents, Tags: outTags},
	)
	if err := validation.WriteReport(cmd.OutOrStdout(), result); err != nil {
		return fmt.Errorf("failed to write validation report: %w", err)
	}

	if !result.IsValid() {
		log.Error().Strs("checks", result.Failed()).Msg("validation failed")
		return errValidationFailed
	}
	return nil
}

func readOutputTable(path string) ([]map[string]string, error) {
	if !utils.FileExists(path) {
		return nil, fmt.Errorf("output table %s not found, run process first", path)
	}
	table, err := csvparser.ParseFile(path, csvparser.Settings{})
	if err != nil {
		return nil, fmt.Errorf("failed to read output table: %w", err)
	}
	return table.Rows, nil
}
