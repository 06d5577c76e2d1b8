// =============================================================================
// Constituent Import - Shared Types
// =============================================================================
//
// This package contains the record types and column schemas shared by the
// readers, the reconciliation components and the writers. Keeping them here
// avoids import cycles between:
//   - tablereader
//   - donations / emails / tags
//   - converter
//   - validation
//
// =============================================================================

package types

// =============================================================================
// INPUT RECORDS
// =============================================================================

// PatronID is the opaque join key shared by all three input tables.
type PatronID = string

// ConstituentRecord is one row of the primary constituents table after the
// ingestion schema mapping has been applied. Downstream code never sees the
// upstream column names.
type ConstituentRecord struct {
	PatronID      PatronID
	FirstName     string
	LastName      string
	DateEntered   string
	PrimaryEmail  string
	Company       string
	Salutation    string
	JobTitle      string
	Tags          string
	MaritalStatus string

	// RowNumber is the 1-indexed data row in the source table.
	RowNumber int
}

// EmailRecord is a secondary email address for a patron.
type EmailRecord struct {
	PatronID PatronID
	Email    string
}

// DonationRecord is one donation history entry.
type DonationRecord struct {
	PatronID PatronID
	Amount   string

	// Date is normalised to YYYY-MM-DD at ingestion when it parses, so that
	// lexicographic ordering matches chronological ordering.
	Date string

	// Status is empty when the source row has no status column.
	Status string
}

// StatusRefunded marks a donation excluded from every financial aggregate.
const StatusRefunded = "Refunded"

// =============================================================================
// OUTPUT RECORDS
// =============================================================================

// ConstituentType classifies a constituent.
type ConstituentType string

const (
	TypePerson  ConstituentType = "Person"
	TypeCompany ConstituentType = "Company"
)

// OutputConstituent is the fourteen-field normalised record emitted per patron.
type OutputConstituent struct {
	ID                       PatronID
	Type                     ConstituentType
	FirstName                string
	LastName                 string
	CompanyName              string
	CreatedAt                string
	Email1                   string
	Email2                   string
	Title                    string
	Tags                     string
	BackgroundInformation    string
	LifetimeDonationAmount   string
	MostRecentDonationDate   string
	MostRecentDonationAmount string
}

// Row returns the record keyed by output column name.
func (o OutputConstituent) Row() map[string]string {
	return map[string]string{
		ColCBConstituentID:    o.ID,
		ColCBConstituentType:  string(o.Type),
		ColCBFirstName:        o.FirstName,
		ColCBLastName:         o.LastName,
		ColCBCompanyName:      o.CompanyName,
		ColCBCreatedAt:        o.CreatedAt,
		ColCBEmail1:           o.Email1,
		ColCBEmail2:           o.Email2,
		ColCBTitle:            o.Title,
		ColCBTags:             o.Tags,
		ColCBBackgroundInfo:   o.BackgroundInformation,
		ColCBLifetimeDonation: o.LifetimeDonationAmount,
		ColCBMostRecentDate:   o.MostRecentDonationDate,
		ColCBMostRecentAmount: o.MostRecentDonationAmount,
	}
}

// TagCountEntry is one row of the tag-frequency report.
type TagCountEntry struct {
	Name  string
	Count int
}
