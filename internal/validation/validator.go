// =============================================================================
// Constituent Import - Output Validation Engine
// =============================================================================
//
// This module re-checks written output tables against the input tables they
// were derived from. It is run by the validate command after an import.
//
// CHECKS:
//   1. row_count            one output row per input constituent
//   2. constituent_ids      ids are non-empty and unique
//   3. lifetime_donations   lifetime amount equals sum of non-refunded gifts
//   4. most_recent          most recent date/amount match the latest gift
//   5. email_formats        Email 1 and Email 2 are valid when present
//   6. constituent_types    type follows the company field; companies have no names
//   7. tag_counts           tag report matches per-constituent tag usage
//
// ERROR HANDLING:
//   - Errors are collected per check, not returned immediately
//   - Each check reports a summary message and its first errors
//
// =============================================================================

package validation

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ginjaninja78/constituent-import/internal/donations"
	"github.com/ginjaninja78/constituent-import/internal/emails"
	"github.com/ginjaninja78/constituent-import/internal/transform"
	"github.com/ginjaninja78/constituent-import/internal/types"
)

// amountTolerance is the allowed difference when comparing currency amounts.
const amountTolerance = 0.01

// MaxErrorsShown limits the errors listed per check in a report.
const MaxErrorsShown = 10

// Check names.
const (
	CheckRowCount          = "row_count"
	CheckConstituentIDs    = "constituent_ids"
	CheckLifetimeDonations = "lifetime_donations"
	CheckMostRecent        = "most_recent_donations"
	CheckEmailFormats      = "email_formats"
	CheckConstituentTypes  = "constituent_types"
	CheckTagCounts         = "tag_counts"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError represents a single failed expectation.
type ValidationError struct {
	// Check is the name of the check that failed.
	Check string

	// PatronID identifies the output row, when the error concerns one.
	PatronID types.PatronID

	// Message is a human-readable error message.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.PatronID == "" {
		return e.Message
	}
	return fmt.Sprintf("Patron %s: %s", e.PatronID, e.Message)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name    string
	Passed  bool
	Message string
	Errors  []*ValidationError
}

// ValidationResult contains the results of all checks.
type ValidationResult struct {
	Checks []CheckResult
}

// IsValid is true when every check passed.
func (r *ValidationResult) IsValid() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failed returns the names of the failed checks.
func (r *ValidationResult) Failed() []string {
	var names []string
	for _, c := range r.Checks {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Inputs are the input tables after the ingestion schema mapping.
type Inputs struct {
	Constituents []types.ConstituentRecord
	Donations    []types.DonationRecord
}

// Outputs are the written output tables, keyed by output column name.
type Outputs struct {
	Constituents []map[string]string
	Tags         []map[string]string
}

// Validator checks written output against its inputs.
type Validator struct {
	in  Inputs
	out Outputs

	donations donations.Grouped
}

// NewValidator creates a Validator.
func NewValidator(in Inputs, out Outputs) *Validator {
	return &Validator{
		in:        in,
		out:       out,
		donations: donations.GroupByPatron(in.Donations),
	}
}

// Validate runs every check.
func Validate(in Inputs, out Outputs) *ValidationResult {
	return NewValidator(in, out).ValidateAll()
}

// ValidateAll runs every check in order.
func (v *Validator) ValidateAll() *ValidationResult {
	return &ValidationResult{Checks: []CheckResult{
		v.ValidateRowCount(),
		v.ValidateConstituentIDs(),
		v.ValidateLifetimeDonations(),
		v.ValidateMostRecentDonations(),
		v.ValidateEmailFormats(),
		v.ValidateConstituentTypes(),
		v.ValidateTagCounts(),
	}}
}

// ValidateRowCount checks that output and input constituent counts match.
func (v *Validator) ValidateRowCount() CheckResult {
	in, out := len(v.in.Constituents), len(v.out.Constituents)
	if in == out {
		return pass(CheckRowCount, fmt.Sprintf("Row count matches: %d constituents", in))
	}
	return CheckResult{
		Name:    CheckRowCount,
		Message: fmt.Sprintf("Row count mismatch: %d input vs %d output", in, out),
	}
}

// ValidateConstituentIDs checks that ids are non-empty and unique.
func (v *Validator) ValidateConstituentIDs() CheckResult {
	var errs []*ValidationError
	seen := make(map[string]struct{}, len(v.out.Constituents))
	empty := 0

	for i, row := range v.out.Constituents {
		id := field(row, types.ColCBConstituentID)
		if id == "" {
			empty++
			errs = append(errs, &ValidationError{
				Check:   CheckConstituentIDs,
				Message: fmt.Sprintf("row %d has an empty constituent id", i+1),
			})
			continue
		}
		if _, dup := seen[id]; dup {
			errs = append(errs, &ValidationError{Check: CheckConstituentIDs, PatronID: id, Message: "duplicate constituent id"})
			continue
		}
		seen[id] = struct{}{}
	}

	if len(errs) == 0 {
		return pass(CheckConstituentIDs, fmt.Sprintf("All %d constituent IDs are unique and non-null", len(v.out.Constituents)))
	}
	return fail(CheckConstituentIDs,
		fmt.Sprintf("Found %d empty and %d duplicate constituent IDs", empty, len(errs)-empty), errs)
}

// ValidateLifetimeDonations checks lifetime amounts against the donations table.
func (v *Validator) ValidateLifetimeDonations() CheckResult {
	var errs []*ValidationError

	for _, row := range v.out.Constituents {
		id := field(row, types.ColCBConstituentID)
		got := parseAmount(field(row, types.ColCBLifetimeDonation))

		var want float64
		for _, d := range donations.ExcludeRefunded(v.donations[id]) {
			want += parseAmount(d.Amount)
		}

		if math.Abs(want-got) > amountTolerance {
			errs = append(errs, &ValidationError{
				Check:    CheckLifetimeDonations,
				PatronID: id,
				Message:  fmt.Sprintf("Expected $%.2f, found $%.2f", want, got),
			})
		}
	}

	if len(errs) == 0 {
		return pass(CheckLifetimeDonations, "All lifetime donation amounts match calculated sums")
	}
	return fail(CheckLifetimeDonations, fmt.Sprintf("Found %d mismatches in lifetime donation amounts", len(errs)), errs)
}

// ValidateMostRecentDonations checks most recent date and amount.
func (v *Validator) ValidateMostRecentDonations() CheckResult {
	var errs []*ValidationError
	add := func(id, msg string) {
		errs = append(errs, &ValidationError{Check: CheckMostRecent, PatronID: id, Message: msg})
	}

	for _, row := range v.out.Constituents {
		id := field(row, types.ColCBConstituentID)
		gotDate := field(row, types.ColCBMostRecentDate)
		gotAmountText := field(row, types.ColCBMostRecentAmount)

		history := donations.ExcludeRefunded(v.donations[id])
		if len(history) == 0 {
			if gotDate != "" || gotAmountText != "" {
				add(id, fmt.Sprintf("Expected empty most recent donation, found date=%s amount=%s", gotDate, gotAmountText))
			}
			continue
		}

		wantDate, wantAmountText := donations.MostRecent(history)
		if normalizeDate(wantDate) != normalizeDate(gotDate) {
			add(id, fmt.Sprintf("Expected date=%s, found date=%s", wantDate, gotDate))
		}
		if math.Abs(parseAmount(wantAmountText)-parseAmount(gotAmountText)) > amountTolerance {
			add(id, fmt.Sprintf("Expected amount=%s, found amount=%s", wantAmountText, gotAmountText))
		}
	}

	if len(errs) == 0 {
		return pass(CheckMostRecent, "All most recent donation fields match correctly")
	}
	return fail(CheckMostRecent, fmt.Sprintf("Found %d mismatches in most recent donations", len(errs)), errs)
}

// ValidateEmailFormats checks both email columns.
func (v *Validator) ValidateEmailFormats() CheckResult {
	var errs []*ValidationError

	for _, row := range v.out.Constituents {
		id := field(row, types.ColCBConstituentID)
		for _, col := range []string{types.ColCBEmail1, types.ColCBEmail2} {
			if email := field(row, col); email != "" && !emails.IsValid(email) {
				errs = append(errs, &ValidationError{
					Check:    CheckEmailFormats,
					PatronID: id,
					Message:  fmt.Sprintf("Invalid %s format: %q", col, email),
				})
			}
		}
	}

	if len(errs) == 0 {
		return pass(CheckEmailFormats, "All email formats are valid")
	}
	return fail(CheckEmailFormats, fmt.Sprintf("Found %d invalid email formats", len(errs)), errs)
}

// ValidateConstituentTypes checks the Person / Company classification.
func (v *Validator) ValidateConstituentTypes() CheckResult {
	companies := make(map[types.PatronID]string, len(v.in.Constituents))
	for _, rec := range v.in.Constituents {
		if id := strings.TrimSpace(rec.PatronID); id != "" {
			companies[id] = rec.Company
		}
	}

	var errs []*ValidationError
	add := func(id, msg string) {
		errs = append(errs, &ValidationError{Check: CheckConstituentTypes, PatronID: id, Message: msg})
	}

	for _, row := range v.out.Constituents {
		id := field(row, types.ColCBConstituentID)
		gotType := field(row, types.ColCBConstituentType)

		company, ok := companies[id]
		if !ok {
			add(id, "Not found in input file")
			continue
		}

		wantType, _ := transform.Classify(company)
		if gotType != string(wantType) {
			add(id, fmt.Sprintf("Should be %s (company=%q), but type is %q", wantType, strings.TrimSpace(company), gotType))
		}

		first, last := field(row, types.ColCBFirstName), field(row, types.ColCBLastName)
		if gotType == string(types.TypeCompany) && (first != "" || last != "") {
			add(id, fmt.Sprintf("Company type but has names: %q %q", first, last))
		}
	}

	if len(errs) == 0 {
		return pass(CheckConstituentTypes, "All constituent types are correct")
	}
	return fail(CheckConstituentTypes, fmt.Sprintf("Found %d constituent type mismatches", len(errs)), errs)
}

// ValidateTagCounts checks the tag report against per-constituent usage.
func (v *Validator) ValidateTagCounts() CheckResult {
	usage := make(map[string]int)
	for _, row := range v.out.Constituents {
		seen := make(map[string]struct{})
		for _, tag := range strings.Split(field(row, types.ColCBTags), ",") {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}
			usage[tag]++
		}
	}

	reported := make(map[string]int, len(v.out.Tags))
	for _, row := range v.out.Tags {
		count, err := strconv.Atoi(field(row, types.ColCBTagCount))
		if err != nil {
			continue
		}
		reported[field(row, types.ColCBTagName)] = count
	}

	var errs []*ValidationError
	for _, tag := range sortedKeys(usage) {
		if got := reported[tag]; got != usage[tag] {
			errs = append(errs, &ValidationError{
				Check:   CheckTagCounts,
				Message: fmt.Sprintf("Tag %q: Expected %d, found %d", tag, usage[tag], got),
			})
		}
	}
	for _, tag := range sortedKeys(reported) {
		if _, ok := usage[tag]; !ok && reported[tag] > 0 {
			errs = append(errs, &ValidationError{
				Check:   CheckTagCounts,
				Message: fmt.Sprintf("Tag %q: In output but not in any constituent", tag),
			})
		}
	}

	if len(errs) == 0 {
		return pass(CheckTagCounts, "All tag counts match usage in constituents")
	}
	return fail(CheckTagCounts, fmt.Sprintf("Found %d tag count mismatches", len(errs)), errs)
}

// =============================================================================
// REPORTING
// =============================================================================

// WriteReport prints a human-readable report of result to w.
func WriteReport(w io.Writer, result *ValidationResult) error {
	rule := strings.Repeat("=", 70)
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\nVALIDATION REPORT\n%s\n", rule, rule)
	for _, c := range result.Checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(&b, "\n[%s] %s\n  %s\n", status, c.Name, c.Message)
		b.WriteString(FormatErrors(c.Errors))
	}

	fmt.Fprintf(&b, "\n%s\n", rule)
	if result.IsValid() {
		b.WriteString("ALL VALIDATIONS PASSED\n")
	} else {
		b.WriteString("SOME VALIDATIONS FAILED\n")
	}
	fmt.Fprintf(&b, "%s\n", rule)

	_, err := io.WriteString(w, b.String())
	return err
}

// FormatErrors formats up to MaxErrorsShown errors as an indented list.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("  Errors:\n")
	for i, e := range errs {
		if i == MaxErrorsShown {
			fmt.Fprintf(&b, "    ... and %d more errors\n", len(errs)-MaxErrorsShown)
			break
		}
		fmt.Fprintf(&b, "    - %s\n", e.Error())
	}
	return b.String()
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func pass(name, msg string) CheckResult {
	return CheckResult{Name: name, Passed: true, Message: msg}
}

func fail(name, msg string, errs []*ValidationError) CheckResult {
	return CheckResult{Name: name, Message: msg, Errors: errs}
}

func field(row map[string]string, col string) string {
	return strings.TrimSpace(row[col])
}

// parseAmount parses silently; invalid amounts compare as 0.
func parseAmount(text string) float64 {
	v, err := transform.ParseAmountStrict(text)
	if err != nil {
		return 0
	}
	return v
}

// normalizeDate reduces a date or timestamp to its digits before any "T".
func normalizeDate(s string) string {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "T")
	return strings.ReplaceAll(s, "-", "")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
