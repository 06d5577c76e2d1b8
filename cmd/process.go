// =============================================================================
// Constituent Import - Process Command
// =============================================================================
//
// This file defines the 'process' command, which runs one import.
//
// COMMAND USAGE:
//   constituent-import process [flags]
//
// FLAGS:
//   --dry-run          : Transform and report without writing output files
//   --constituents     : Constituents table path
//   --emails           : Secondary email table path
//   --donations        : Donation history table path
//   --output-dir       : Output directory
//   --tag-api-url      : Tag mapping endpoint
//   --tag-api-timeout  : Timeout for the tag mapping request
//   --metrics-file     : Write run metrics in textfile format
//
// PROCESSING PIPELINE:
//   1. Load configuration (defaults, config file, env, flags)
//   2. Read the three input tables
//   3. Merge into output constituents and the tag report
//   4. Write both output tables
//   5. Print the run summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/constituent-import/internal/config"
	"github.com/ginjaninja78/constituent-import/internal/converter"
	"github.com/ginjaninja78/constituent-import/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun transforms and reports without writing output files.
var dryRun bool

var processTables tableFlags

var (
	tagAPIURL     string
	tagAPITimeout time.Duration
	metricsFile   string
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Merge the input tables and write the CRM import tables",
	Long: `The process command reads the constituents, emails and donation history
tables, reconciles them on Patron ID, and writes the constituents output table
and the tag-frequency table to the output directory.

Donations and emails for patrons missing from the constituents table are
skipped and reported. If the tag mapping endpoint is unavailable, tags pass
through unmapped.

If any single constituent fails to transform, the run aborts and existing
output files are left untouched.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd)
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Transform and report without writing output files",
	)

	processTables.register(processCmd)

	processCmd.Flags().StringVar(&tagAPIURL, "tag-api-url", "", "Tag mapping endpoint URL")
	processCmd.Flags().DurationVar(&tagAPITimeout, "tag-api-timeout", 0, "Timeout for the tag mapping request (e.g. 10s)")
	processCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write run metrics to this file in textfile format")
}

// =============================================================================
// PROCESS LOGIC
// =============================================================================

// runProcess is the main processing function.
func runProcess(cmd *cobra.Command) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		processTables.apply(cfg)
		if tagAPIURL != "" {
			cfg.TagAPIURL = tagAPIURL
		}
		if tagAPITimeout > 0 {
			cfg.TagAPITimeout = tagAPITimeout
		}
		if metricsFile != "" {
			cfg.MetricsFile = metricsFile
		}
	})
	if err != nil {
		return err
	}

	runID := utils.NewRunID()
	log := setupLogging(cfg, runID)

	log.Info().
		Str("constituents", cfg.ConstituentsFile).
		Str("emails", cfg.EmailsFile).
		Str("donations", cfg.DonationsFile).
		Str("output_dir", cfg.OutputDir).
		Bool("dry_run", dryRun).
		Msg("starting import")

	conv := converter.New(cfg, log)
	conv.RunID = runID
	conv.DryRun = dryRun

	result := conv.Run(cmd.Context())
	if result.Error != nil {
		return result.Error
	}

	printSummary(cmd, result)
	return nil
}

// printSummary prints the run summary to stdout.
func printSummary(cmd *cobra.Command, result converter.Result) {
	out := cmd.OutOrStdout()
	stats := result.Stats

	fmt.Fprintln(out, "\n================================================================================")
	fmt.Fprintln(out, "IMPORT SUMMARY")
	fmt.Fprintln(out, "================================================================================")
	fmt.Fprintf(out, "Run ID:                 %s\n", result.RunID)
	fmt.Fprintf(out, "Constituents:           %d\n", stats.Constituents)
	fmt.Fprintf(out, "Tags reported:          %d\n", stats.Tags)
	fmt.Fprintf(out, "Duplicate patron ids:   %d\n", len(stats.DuplicateIDs))
	fmt.Fprintf(out, "Orphaned donations:     %d (%d patrons)\n", stats.OrphanedDonations, len(stats.OrphanedDonationPatrons))
	fmt.Fprintf(out, "Orphaned emails:        %d (%d patrons)\n", stats.OrphanedEmails, len(stats.OrphanedEmailPatrons))
	fmt.Fprintf(out, "Fallback created dates: %d\n", stats.FallbackCreatedDates)
	fmt.Fprintf(out, "Unparsed dates:         %d\n", stats.UnparsedDonationDates)
	if stats.TagLookupDegraded {
		fmt.Fprintln(out, "Tag lookup:             unavailable, tags passed through unmapped")
	}
	fmt.Fprintf(out, "Processing time:        %s\n", stats.ProcessingTime.Round(time.Millisecond))

	if result.ConstituentsFile != "" {
		fmt.Fprintf(out, "\nConstituents table: %s\n", result.ConstituentsFile)
		fmt.Fprintf(out, "Tags table:         %s\n", result.TagsFile)
	} else {
		fmt.Fprintln(out, "\nDry run: no files written")
	}
	fmt.Fprintln(out, "================================================================================")
}
