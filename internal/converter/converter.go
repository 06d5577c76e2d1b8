// =============================================================================
// Constituent Import - Converter Module
// =============================================================================
//
// This module orchestrates one import run, from reading the input tables to
// writing the output tables.
//
// CONVERSION PIPELINE:
//   1. Read the constituents, emails and donations tables
//   2. Merge them into output constituents and the tag report
//   3. Write both output tables atomically (skipped on dry run)
//   4. Append the run summary and write the metrics textfile
//
// FAILURE BEHAVIOR:
//   Any failure before step 3 leaves existing output files untouched. A
//   summary line is still written for failed runs when enabled.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/constituent-import/internal/config"
	"github.com/ginjaninja78/constituent-import/internal/csvwriter"
	"github.com/ginjaninja78/constituent-import/internal/logging"
	"github.com/ginjaninja78/constituent-import/internal/metrics"
	"github.com/ginjaninja78/constituent-import/internal/tablereader"
	"github.com/ginjaninja78/constituent-import/internal/tags"
	"github.com/ginjaninja78/constituent-import/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one import run.
type Result struct {
	// RunID identifies the run in logs and the summary log.
	RunID string

	// ConstituentsFile and TagsFile are the written output tables.
	// Both are empty on a dry run or a failed run.
	ConstituentsFile string
	TagsFile         string

	// Success indicates whether the run completed.
	Success bool

	// Error contains the error if the run failed.
	Error error

	// Merged is the reconciled output. It is nil if the merge did not finish.
	Merged *Merged

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the run.
type ProcessingStats struct {
	MergeStats

	// Tags is the number of rows in the tag report.
	Tags int

	// UnparsedDonationDates counts donation dates kept in raw form.
	UnparsedDonationDates int

	// ProcessingTime is the time taken by the run.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the import described by a Config.
type Converter struct {
	cfg *config.Config

	// DryRun transforms and reports without writing output tables.
	DryRun bool

	// RunID identifies the run in the summary log. When empty, one is
	// generated and attached to Logger; a caller setting RunID is expected
	// to have attached it already.
	RunID string

	// Resolver supplies tag mappings. Defaults to an HTTP resolver for
	// Config.TagAPIURL.
	Resolver *tags.Resolver

	// Now supplies the fallback created-at time. Defaults to time.Now.
	Now func() time.Time

	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter.
//
// PARAMETERS:
//   - cfg: The run configuration, with defaults applied.
//   - logger: The run logger. nil uses the process default.
//
// RETURNS:
//   - A new Converter instance.
func New(cfg *config.Config, logger *zerolog.Logger) *Converter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Converter{
		cfg:     cfg,
		Now:     time.Now,
		Logger:  logger,
		Metrics: metrics.New(),
	}
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the import pipeline.
//
// RETURNS:
//   - A Result struct containing the outcome of the run.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()
	log := c.Logger
	if c.RunID == "" {
		c.RunID = utils.NewRunID()
		logger := c.Logger.With().Str("run_id", c.RunID).Logger()
		log = &logger
	}
	files := utils.NewFileManager(c.cfg.OutputDir, c.cfg.SummaryLogFile)

	result := c.run(ctx, log, files)
	result.RunID = c.RunID
	result.Stats.ProcessingTime = time.Since(startTime)
	c.Metrics.ObserveRun(startTime)

	if result.Success {
		log.Info().
			Int("constituents", result.Stats.Constituents).
			Int("tags", result.Stats.Tags).
			Bool("dry_run", c.DryRun).
			Dur("duration", result.Stats.ProcessingTime).
			Msg("import complete")
	} else {
		log.Error().Err(result.Error).Msg("import failed")
	}

	// =========================================================================
	// STEP 4: SUMMARY AND METRICS
	// =========================================================================

	if c.cfg.SummaryLog {
		summaryPath, err := files.WriteSummaryLog(c.summary(result, startTime))
		if err != nil {
			log.Warn().Err(err).Msg("failed to write summary log")
		} else {
			log.Debug().Str("path", summaryPath).Msg("wrote summary log")
		}
	}

	if err := c.Metrics.WriteTextfile(c.cfg.MetricsFile); err != nil {
		log.Warn().Err(err).Msg("failed to write metrics textfile")
	}

	return result
}

func (c *Converter) run(ctx context.Context, log *zerolog.Logger, files *utils.FileManager) Result {
	result := Result{}
	fail := func(err error) Result {
		result.Error = err
		return result
	}

	// =========================================================================
	// STEP 1: READ INPUT TABLES
	// =========================================================================

	reader := tablereader.New(log)

	constituents, err := reader.ReadConstituents(c.cfg.ConstituentsFile)
	if err != nil {
		return fail(err)
	}
	emailRecords, err := reader.ReadEmails(c.cfg.EmailsFile)
	if err != nil {
		return fail(err)
	}
	donationTable, err := reader.ReadDonations(c.cfg.DonationsFile)
	if err != nil {
		return fail(err)
	}

	result.Stats.UnparsedDonationDates = donationTable.UnparsedDates
	c.Metrics.AddParseFailures(metrics.FieldDonationDate, donationTable.UnparsedDates)

	// =========================================================================
	// STEP 2: MERGE
	// =========================================================================

	resolver := c.Resolver
	if resolver == nil {
		resolver = tags.NewResolver(c.cfg.TagAPIURL, c.cfg.TagAPITimeout, log)
	}

	merger := NewMerger(resolver, log, c.Metrics)
	if c.Now != nil {
		merger.Now = c.Now
	}

	merged, err := merger.Merge(ctx, Tables{
		Constituents: constituents,
		Emails:       emailRecords,
		Donations:    donationTable.Records,
	})
	if err != nil {
		return fail(err)
	}

	result.Merged = merged
	result.Stats.MergeStats = merged.Stats
	result.Stats.Tags = len(merged.Tags)

	// =========================================================================
	// STEP 3: WRITE OUTPUT TABLES
	// =========================================================================

	if c.DryRun {
		log.Info().Msg("dry run, output tables not written")
		result.Success = true
		return result
	}

	if err := files.EnsureDirectories(); err != nil {
		return fail(err)
	}

	constituentsPath := files.OutputPath(c.cfg.ConstituentsOutputFile)
	tagsPath := files.OutputPath(c.cfg.TagsOutputFile)

	err = csvwriter.WriteAll(
		csvwriter.ConstituentsTable(constituentsPath, merged.Constituents),
		csvwriter.TagsTable(tagsPath, merged.Tags),
	)
	if err != nil {
		return fail(fmt.Errorf("failed to write output tables: %w", err))
	}

	log.Info().
		Str("constituents_file", constituentsPath).
		Str("tags_file", tagsPath).
		Msg("wrote output tables")

	result.ConstituentsFile = constituentsPath
	result.TagsFile = tagsPath
	result.Success = true
	return result
}

func (c *Converter) summary(result Result, start time.Time) utils.RunSummary {
	stats := result.Stats
	return utils.RunSummary{
		RunID:                c.RunID,
		StartTime:            start,
		EndTime:              start.Add(stats.ProcessingTime),
		DryRun:               c.DryRun,
		Err:                  result.Error,
		Constituents:         stats.Constituents,
		Tags:                 stats.Tags,
		DuplicateIDs:         len(stats.DuplicateIDs),
		OrphanedDonations:    stats.OrphanedDonations,
		OrphanedEmails:       stats.OrphanedEmails,
		FallbackCreatedDates: stats.FallbackCreatedDates,
		TagLookupDegraded:    stats.TagLookupDegraded,
	}
}
