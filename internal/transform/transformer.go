// =============================================================================
// Constituent Import - Field Normalizers
// =============================================================================
//
// This package provides the pure field-level rules applied to every
// constituent:
//   - Date parsing over an ordered list of layouts
//   - Person / Company classification
//   - Name casing
//   - Salutation to title lookup
//   - Background information formatting
//   - Currency parsing and formatting
//
// None of these functions hold state. Recoverable parse failures are reported
// as warnings on the process logger and a defined default is returned.
//
// =============================================================================

package transform

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/constituent-import/internal/logging"
	"github.com/ginjaninja78/constituent-import/internal/types"
)

// =============================================================================
// LOOKUP TABLES
// =============================================================================

// DateLayouts are tried in order; the first layout that parses wins.
var DateLayouts = []string{
	"Jan 2, 2006",    // Jan 19, 2020
	"1/2/2006",       // 04/19/2022
	"1/2/2006 15:04", // 12/07/2017 12:34
	"2006-01-02",     // ISO
}

// invalidCompanyValues are company field values that do not name a company.
// Matching is case-sensitive.
var invalidCompanyValues = map[string]struct{}{
	"":                   {},
	"None":               {},
	"N/A":                {},
	"n/a":                {},
	"Retired":            {},
	"Used to work here.": {},
}

// titleMapping maps a lower-cased, period-stripped salutation to an allowed title.
var titleMapping = map[string]string{
	"mr":           "Mr.",
	"mrs":          "Mrs.",
	"ms":           "Ms.",
	"dr":           "Dr.",
	"rev":          "",
	"mr. and mrs.": "",
}

var lower = cases.Lower(language.Und)

// =============================================================================
// DATES
// =============================================================================

// ParseDate parses text with the first matching layout in DateLayouts.
// Surrounding whitespace and quote characters are stripped first. The boolean
// is false for blank or unparseable input.
func ParseDate(text string) (time.Time, bool) {
	cleaned := strings.Trim(strings.TrimSpace(text), `"'`)
	if cleaned == "" {
		return time.Time{}, false
	}

	for _, layout := range DateLayouts {
		if parsed, err := time.ParseInLocation(layout, cleaned, time.Local); err == nil {
			return parsed, true
		}
	}

	logging.Default().Warn().Str("value", cleaned).Msg("failed to parse date")
	return time.Time{}, false
}

// TimestampLayout is the output form of created-at timestamps.
const TimestampLayout = "2006-01-02T15:04:05"

// ISODateLayout is the sortable form donation dates are normalised to.
const ISODateLayout = "2006-01-02"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// =============================================================================
// CLASSIFICATION AND NAMES
// =============================================================================

// Classify decides whether the company field names a company. Invalid
// sentinel values classify the record as a Person with no company name.
func Classify(company string) (types.ConstituentType, string) {
	trimmed := strings.TrimSpace(company)
	if _, invalid := invalidCompanyValues[trimmed]; invalid {
		return types.TypePerson, ""
	}
	return types.TypeCompany, trimmed
}

// StandardizeName lower-cases the name and upper-cases only its first
// character. Multi-word names are not title-cased.
func StandardizeName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(trimmed)
	return string(unicode.ToUpper(first)) + lower.String(trimmed[size:])
}

// MapTitle maps a salutation onto one of the allowed titles. Matching is
// case-insensitive and ignores periods; unknown values map to "".
func MapTitle(salutation string) string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(salutation)), ".", "")
	if key == "" {
		return ""
	}
	return titleMapping[key]
}

// FormatBackground joins the non-blank job title and marital status parts.
func FormatBackground(jobTitle, maritalStatus string) string {
	var parts []string

	if v := strings.TrimSpace(jobTitle); v != "" {
		parts = append(parts, "Job Title: "+v)
	}
	if v := strings.TrimSpace(maritalStatus); v != "" {
		parts = append(parts, "Marital Status: "+v)
	}

	return strings.Join(parts, "; ")
}

// =============================================================================
// AMOUNTS
// =============================================================================

// ParseAmountStrict parses a currency string, stripping "$", "," and
// surrounding quotes or whitespace.
func ParseAmountStrict(text string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(text)
	cleaned = strings.Trim(strings.TrimSpace(cleaned), `"'`)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("empty amount")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", text, err)
	}
	return value, nil
}

// ParseAmount parses a currency string, returning 0 on blank or invalid input.
func ParseAmount(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	value, err := ParseAmountStrict(text)
	if err != nil {
		logging.Default().Warn().Str("value", text).Msg("failed to parse amount, using 0")
		return 0
	}
	return value
}

// FormatAmount renders a positive amount as "$X.XX"; zero or negative yields "".
func FormatAmount(amount float64) string {
	if amount <= 0 {
		return ""
	}
	return fmt.Sprintf("$%.2f", amount)
}
