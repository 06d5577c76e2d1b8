// =============================================================================
// Constituent Import - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (constituent-import)
//   ├── processCmd  (constituent-import process)
//   ├── validateCmd (constituent-import validate)
//   └── versionCmd  (constituent-import version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose, --log-format)
//   2. Loading the layered configuration
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/constituent-import/internal/config"
	"github.com/ginjaninja78/constituent-import/internal/logging"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// logFormat overrides the configured log format.
var logFormat string

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "constituent-import",
	Short: "Constituent Import - Reconcile constituent exports into CRM import tables",
	Long: `Constituent Import merges a constituents export with its secondary email
and donation history tables and writes two CRM import tables: one row per
constituent, and a tag-frequency report.

Key Features:
  - CSV or XLSX input tables
  - Name, title, email and company normalisation
  - Tag canonicalisation through a remote mapping endpoint
  - Lifetime and most recent donation aggregation
  - Atomic output and optional run summary log
  - Output validation against the inputs

Example Usage:
  constituent-import process                     # Run with config.yaml and defaults
  constituent-import process --dry-run           # Transform and report, write nothing
  constituent-import validate --output-dir ./out # Re-check written output`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). Interrupts cancel the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable debug logging",
	)

	rootCmd.PersistentFlags().StringVar(
		&logFormat,
		"log-format",
		"",
		"Log format: console or json (overrides config)",
	)
}

// =============================================================================
// SHARED FLAGS
// =============================================================================

// tableFlags are the input and output locations shared by process and validate.
type tableFlags struct {
	constituents string
	emails       string
	donations    string
	outputDir    string
}

func (f *tableFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.constituents, "constituents", "", "Constituents table (.csv or .xlsx)")
	cmd.Flags().StringVar(&f.emails, "emails", "", "Secondary email table (.csv or .xlsx)")
	cmd.Flags().StringVar(&f.donations, "donations", "", "Donation history table (.csv or .xlsx)")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Directory for the output tables")
}

func (f *tableFlags) apply(cfg *config.Config) {
	if f.constituents != "" {
		cfg.ConstituentsFile = f.constituents
	}
	if f.emails != "" {
		cfg.EmailsFile = f.emails
	}
	if f.donations != "" {
		cfg.DonationsFile = f.donations
	}
	if f.outputDir != "" {
		cfg.OutputDir = f.outputDir
	}
}

// =============================================================================
// CONFIGURATION AND LOGGING
// =============================================================================

// loadConfig loads the layered configuration and applies the global flags.
// Command flags are applied by the caller through apply.
func loadConfig(apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if verbose {
		cfg.LogLevel = "debug"
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if apply != nil {
		apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging builds the process logger from cfg and installs it as the
// default. runID, when set, is attached to every entry.
func setupLogging(cfg *config.Config, runID string) *zerolog.Logger {
	logger := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cfg.LogFile,
	})
	if runID != "" {
		logger = logger.With().Str("run_id", runID).Logger()
	}
	logging.SetDefault(logger)
	return logging.Default()
}
