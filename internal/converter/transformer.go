// =============================================================================
// Constituent Import - Record Transformer
// =============================================================================
//
// This module turns one ConstituentRecord into one OutputConstituent by
// applying the field normalizers, the email selector, the tag resolver and
// the donation aggregator in a fixed order.
//
// TRANSFORMATION STEPS:
//   1. Classify Person / Company
//   2. Standardize names (Person only)
//   3. Created-at from Date Entered, else the donation fallback
//   4. Select two emails
//   5. Map salutation to title
//   6. Resolve tags
//   7. Format background information
//   8. Lifetime total and most recent donation
//
// The transformer only sees donations and emails that belong to known
// constituents. Orphan filtering happens in the merger before it is built.
//
// =============================================================================

package converter

import (
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/constituent-import/internal/donations"
	"github.com/ginjaninja78/constituent-import/internal/emails"
	"github.com/ginjaninja78/constituent-import/internal/tags"
	"github.com/ginjaninja78/constituent-import/internal/transform"
	"github.com/ginjaninja78/constituent-import/internal/types"
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer holds the per-run lookups used to build output records.
type Transformer struct {
	donations donations.Grouped
	emails    emails.Grouped
	mapping   tags.Mapping
	now       func() time.Time

	// fallbacks counts records whose created-at came from the fallback.
	fallbacks int

	// dateFailures counts non-blank Date Entered values that did not parse.
	dateFailures int

	// before runs ahead of each record when set.
	before func(types.ConstituentRecord)
}

// NewTransformer creates a Transformer over already filtered lookups.
func NewTransformer(d donations.Grouped, e emails.Grouped, mapping tags.Mapping, now func() time.Time) *Transformer {
	if now == nil {
		now = time.Now
	}
	if mapping == nil {
		mapping = tags.Mapping{}
	}
	return &Transformer{
		donations: d,
		emails:    e,
		mapping:   mapping,
		now:       now,
	}
}

// Transform builds the output record for rec.
//
// PARAMETERS:
//   - rec: The constituent row, already mapped to the ingestion schema.
//
// RETURNS:
//   - The fourteen-field output record.
//   - The canonical tags carried by the record, for the tag report.
func (t *Transformer) Transform(rec types.ConstituentRecord) (types.OutputConstituent, []string) {
	id := strings.TrimSpace(rec.PatronID)
	out := types.OutputConstituent{ID: id}

	// Type and names.
	out.Type, out.CompanyName = transform.Classify(rec.Company)
	if out.Type == types.TypePerson {
		out.FirstName = transform.StandardizeName(rec.FirstName)
		out.LastName = transform.StandardizeName(rec.LastName)
	}

	out.CreatedAt = t.createdAt(id, rec.DateEntered)

	out.Email1, out.Email2 = emails.Select(rec.PrimaryEmail, t.emails[id])

	out.Title = transform.MapTitle(rec.Salutation)

	resolved := tags.ResolveList(rec.Tags, t.mapping)
	out.Tags = strings.Join(resolved, ", ")

	out.BackgroundInformation = transform.FormatBackground(rec.JobTitle, rec.MaritalStatus)

	history := t.donations[id]
	out.LifetimeDonationAmount = donations.LifetimeTotal(history)
	out.MostRecentDonationDate, out.MostRecentDonationAmount = donations.MostRecent(history)

	return out, resolved
}

// Fallbacks returns how many records used the created-at fallback.
func (t *Transformer) Fallbacks() int {
	return t.fallbacks
}

// DateFailures returns how many non-blank Date Entered values did not parse.
func (t *Transformer) DateFailures() int {
	return t.dateFailures
}

func (t *Transformer) createdAt(id types.PatronID, dateEntered string) string {
	if parsed, ok := transform.ParseDate(dateEntered); ok {
		return transform.FormatTimestamp(parsed)
	}
	if strings.TrimSpace(dateEntered) != "" {
		t.dateFailures++
	}

	t.fallbacks++
	return transform.FormatTimestamp(donations.FallbackCreatedDate(id, t.donations, t.now))
}

// safeTransform runs Transform and converts a panic into a TransformError.
func (t *Transformer) safeTransform(rec types.ConstituentRecord) (out types.OutputConstituent, resolved []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &types.TransformError{
				PatronID: strings.TrimSpace(rec.PatronID),
				Row:      rec.RowNumber,
				Err:      fmt.Errorf("panic: %v", r),
			}
		}
	}()

	if t.before != nil {
		t.before(rec)
	}
	out, resolved = t.Transform(rec)
	return out, resolved, nil
}
