// =============================================================================
// Constituent Import - Constituent Merger
// =============================================================================
//
// The merger joins the three input tables on patron id and emits exactly one
// output record per constituent row, in input order, followed by the
// tag-frequency report.
//
// MERGE PIPELINE:
//   1. Collect known patron ids, warn on duplicates
//   2. Group donations and emails, drop orphans and report them
//   3. Resolve the run-cached tag mapping
//   4. Transform each constituent (fail-fast)
//   5. Count canonical tags once per constituent
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/constituent-import/internal/donations"
	"github.com/ginjaninja78/constituent-import/internal/emails"
	"github.com/ginjaninja78/constituent-import/internal/logging"
	"github.com/ginjaninja78/constituent-import/internal/metrics"
	"github.com/ginjaninja78/constituent-import/internal/tags"
	"github.com/ginjaninja78/constituent-import/internal/types"
)

// =============================================================================
// INPUT / OUTPUT
// =============================================================================

// Tables holds the three input tables after the ingestion schema mapping.
type Tables struct {
	Constituents []types.ConstituentRecord
	Emails       []types.EmailRecord
	Donations    []types.DonationRecord
}

// Merged is the reconciled output of one run.
type Merged struct {
	Constituents []types.OutputConstituent
	Tags         []types.TagCountEntry
	Stats        MergeStats
}

// MergeStats contains the data-quality diagnostics of a merge.
type MergeStats struct {
	// Constituents is the number of output records.
	Constituents int

	// DuplicateIDs lists patron ids that appear on more than one row.
	DuplicateIDs []types.PatronID

	// OrphanedDonations is the number of donation records for unknown patrons.
	OrphanedDonations int

	// OrphanedDonationPatrons lists the unknown patron ids, sorted.
	OrphanedDonationPatrons []types.PatronID

	// OrphanedEmails is the number of email records for unknown patrons.
	OrphanedEmails int

	// OrphanedEmailPatrons lists the unknown patron ids, sorted.
	OrphanedEmailPatrons []types.PatronID

	// FallbackCreatedDates counts records whose created-at used the fallback.
	FallbackCreatedDates int

	// DateEnteredFailures counts non-blank Date Entered values that did not parse.
	DateEnteredFailures int

	// TagLookupDegraded reports that tags passed through unmapped.
	TagLookupDegraded bool
}

// =============================================================================
// MERGER
// =============================================================================

// Merger reconciles constituents with their donations and emails.
type Merger struct {
	// Resolver supplies the run-cached tag mapping.
	Resolver *tags.Resolver

	// Now supplies the fallback created-at time. Defaults to time.Now.
	Now func() time.Time

	Logger  *zerolog.Logger
	Metrics *metrics.Metrics

	before func(types.ConstituentRecord)
}

// NewMerger creates a Merger using resolver for tag lookups.
func NewMerger(resolver *tags.Resolver, logger *zerolog.Logger, m *metrics.Metrics) *Merger {
	if logger == nil {
		logger = logging.Default()
	}
	return &Merger{
		Resolver: resolver,
		Now:      time.Now,
		Logger:   logger,
		Metrics:  m,
	}
}

// Merge transforms every constituent and builds the tag report.
//
// RETURNS:
//   - The merged output with one record per input constituent row.
//   - A *types.TransformError if any single record fails; no partial
//     output is returned in that case.
func (m *Merger) Merge(ctx context.Context, in Tables) (*Merged, error) {
	log := m.logger()
	stats := MergeStats{}

	// =========================================================================
	// STEP 1: KNOWN PATRON IDS
	// =========================================================================

	known := make(map[types.PatronID]struct{}, len(in.Constituents))
	for _, rec := range in.Constituents {
		id := strings.TrimSpace(rec.PatronID)
		if id == "" {
			continue
		}
		if _, dup := known[id]; dup {
			stats.DuplicateIDs = append(stats.DuplicateIDs, id)
			continue
		}
		known[id] = struct{}{}
	}

	if len(stats.DuplicateIDs) > 0 {
		log.Warn().
			Int("count", len(stats.DuplicateIDs)).
			Strs("patron_ids", stats.DuplicateIDs).
			Msg("duplicate patron ids in constituents")
		m.Metrics.AddDuplicateIDs(len(stats.DuplicateIDs))
	}

	// =========================================================================
	// STEP 2: GROUP AND FILTER ORPHANS
	// =========================================================================

	donationsByPatron := donations.GroupByPatron(in.Donations)
	for id, history := range donationsByPatron {
		if _, ok := known[id]; ok {
			continue
		}
		stats.OrphanedDonations += len(history)
		stats.OrphanedDonationPatrons = append(stats.OrphanedDonationPatrons, id)
		delete(donationsByPatron, id)
	}
	sort.Strings(stats.OrphanedDonationPatrons)

	emailsByPatron := emails.GroupByPatron(in.Emails)
	for id, addrs := range emailsByPatron {
		if _, ok := known[id]; ok {
			continue
		}
		stats.OrphanedEmails += len(addrs)
		stats.OrphanedEmailPatrons = append(stats.OrphanedEmailPatrons, id)
		delete(emailsByPatron, id)
	}
	sort.Strings(stats.OrphanedEmailPatrons)

	if stats.OrphanedDonations > 0 {
		log.Warn().
			Int("donations", stats.OrphanedDonations).
			Int("patrons", len(stats.OrphanedDonationPatrons)).
			Strs("patron_ids", stats.OrphanedDonationPatrons).
			Msg("skipped donations for patrons not in constituents")
	}
	if stats.OrphanedEmails > 0 {
		log.Warn().
			Int("emails", stats.OrphanedEmails).
			Int("patrons", len(stats.OrphanedEmailPatrons)).
			Strs("patron_ids", stats.OrphanedEmailPatrons).
			Msg("skipped emails for patrons not in constituents")
	}
	m.Metrics.AddOrphans(stats.OrphanedDonations, stats.OrphanedEmails)

	// =========================================================================
	// STEP 3: TAG MAPPING
	// =========================================================================

	mapping := tags.Mapping{}
	if m.Resolver != nil {
		mapping = m.Resolver.Mapping(ctx)
		if m.Resolver.Degraded() {
			stats.TagLookupDegraded = true
			m.Metrics.IncrementTagLookupFailure()
		}
	}

	// =========================================================================
	// STEP 4: TRANSFORM
	// =========================================================================

	now := m.Now
	if now == nil {
		now = time.Now
	}
	transformer := NewTransformer(donationsByPatron, emailsByPatron, mapping, now)
	transformer.before = m.before

	counter := tags.NewCounter()
	out := make([]types.OutputConstituent, 0, len(in.Constituents))

	for _, rec := range in.Constituents {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("merge cancelled: %w", err)
		}

		record, resolved, err := transformer.safeTransform(rec)
		if err != nil {
			log.Error().Err(err).
				Str("patron_id", strings.TrimSpace(rec.PatronID)).
				Int("row", rec.RowNumber).
				Msg("transform failed, aborting run")
			return nil, err
		}

		out = append(out, record)
		counter.Add(resolved)
	}

	stats.Constituents = len(out)
	stats.FallbackCreatedDates = transformer.Fallbacks()
	stats.DateEnteredFailures = transformer.DateFailures()

	// =========================================================================
	// STEP 5: TAG REPORT
	// =========================================================================

	report := counter.Entries()

	m.Metrics.AddProcessed(stats.Constituents)
	m.Metrics.AddParseFailures(metrics.FieldDateEntered, stats.DateEnteredFailures)
	m.Metrics.AddFallbackCreatedDates(stats.FallbackCreatedDates)
	m.Metrics.SetTagsReported(len(report))

	log.Info().
		Int("constituents", stats.Constituents).
		Int("tags", len(report)).
		Int("fallback_created_dates", stats.FallbackCreatedDates).
		Msg("transformed constituents")

	return &Merged{
		Constituents: out,
		Tags:         report,
		Stats:        stats,
	}, nil
}

func (m *Merger) logger() *zerolog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return logging.Default()
}
