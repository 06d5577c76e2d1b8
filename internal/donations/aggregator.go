// =============================================================================
// Constituent Import - Donation Aggregator
// =============================================================================
//
// Donations are grouped by patron and reduced to the financial facts carried
// on each output record. Refunded donations are excluded from every aggregate.
//
// Date ordering is lexicographic over the stored date strings. The table
// reader normalises parseable dates to YYYY-MM-DD at ingestion so that string
// order is chronological order.
//
// =============================================================================

package donations

import (
	"strings"
	"time"

	"github.com/ginjaninja78/constituent-import/internal/transform"
	"github.com/ginjaninja78/constituent-import/internal/types"
)

// Grouped holds donations keyed by trimmed patron id.
type Grouped map[types.PatronID][]types.DonationRecord

// GroupByPatron groups donations by trimmed patron id. Records with a blank
// id are dropped.
func GroupByPatron(records []types.DonationRecord) Grouped {
	grouped := make(Grouped)
	for _, rec := range records {
		id := strings.TrimSpace(rec.PatronID)
		if id == "" {
			continue
		}
		grouped[id] = append(grouped[id], rec)
	}
	return grouped
}

// IsRefunded reports whether the trimmed status is exactly "Refunded".
func IsRefunded(rec types.DonationRecord) bool {
	return strings.TrimSpace(rec.Status) == types.StatusRefunded
}

// ExcludeRefunded keeps the records that are not refunded. A missing status
// counts as kept.
func ExcludeRefunded(records []types.DonationRecord) []types.DonationRecord {
	kept := make([]types.DonationRecord, 0, len(records))
	for _, rec := range records {
		if !IsRefunded(rec) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// LifetimeTotal sums the non-refunded amounts. It returns "" when no
// non-refunded donation exists.
func LifetimeTotal(records []types.DonationRecord) string {
	kept := ExcludeRefunded(records)
	if len(kept) == 0 {
		return ""
	}

	var total float64
	for _, rec := range kept {
		total += transform.ParseAmount(rec.Amount)
	}
	return transform.FormatAmount(total)
}

// MostRecent returns the trimmed date and formatted amount of the
// non-refunded donation with the greatest date string. Ties keep the first
// record. Both values are "" when no non-refunded donation exists.
func MostRecent(records []types.DonationRecord) (date, amount string) {
	kept := ExcludeRefunded(records)
	if len(kept) == 0 {
		return "", ""
	}

	latest := kept[0]
	for _, rec := range kept[1:] {
		if rec.Date > latest.Date {
			latest = rec
		}
	}
	return strings.TrimSpace(latest.Date), transform.FormatAmount(transform.ParseAmount(latest.Amount))
}

// Earliest returns the smallest non-refunded date string for a patron.
func Earliest(records []types.DonationRecord) (string, bool) {
	kept := ExcludeRefunded(records)
	if len(kept) == 0 {
		return "", false
	}

	earliest := kept[0].Date
	for _, rec := range kept[1:] {
		if rec.Date < earliest {
			earliest = rec.Date
		}
	}
	return strings.TrimSpace(earliest), true
}

// FallbackCreatedDate supplies a created-at timestamp for a patron without a
// usable Date Entered. It uses the start of day of the earliest non-refunded
// donation date. When the patron has no such donation, or the date does not
// parse, it returns now().
func FallbackCreatedDate(id types.PatronID, grouped Grouped, now func() time.Time) time.Time {
	if now == nil {
		now = time.Now
	}

	earliest, ok := Earliest(grouped[strings.TrimSpace(id)])
	if !ok || earliest == "" {
		return now()
	}

	parsed, ok := transform.ParseDate(earliest)
	if !ok {
		return now()
	}
	return transform.StartOfDay(parsed)
}
