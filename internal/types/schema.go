package types

// =============================================================================
// UPSTREAM COLUMN NAMES
// =============================================================================
// These names only appear in the ingestion schema mapping. The constituents
// table labels the job title column "Title" and the marital status column
// "Gender".

const (
	ColPatronID       = "Patron ID"
	ColFirstName      = "First Name"
	ColLastName       = "Last Name"
	ColDateEntered    = "Date Entered"
	ColPrimaryEmail   = "Primary Email"
	ColCompany        = "Company"
	ColSalutation     = "Salutation"
	ColUpstreamTitle  = "Title"
	ColTags           = "Tags"
	ColUpstreamGender = "Gender"

	ColEmail = "Email"

	ColDonationAmount = "Donation Amount"
	ColDonationDate   = "Donation Date"
	ColStatus         = "Status"
)

// =============================================================================
// OUTPUT COLUMN NAMES
// =============================================================================

const (
	ColCBConstituentID    = "CB Constituent ID"
	ColCBConstituentType  = "CB Constituent Type"
	ColCBFirstName        = "CB First Name"
	ColCBLastName         = "CB Last Name"
	ColCBCompanyName      = "CB Company Name"
	ColCBCreatedAt        = "CB Created At"
	ColCBEmail1           = "CB Email 1 (Standardized)"
	ColCBEmail2           = "CB Email 2 (Standardized)"
	ColCBTitle            = "CB Title"
	ColCBTags             = "CB Tags"
	ColCBBackgroundInfo   = "CB Background Information"
	ColCBLifetimeDonation = "CB Lifetime Donation Amount"
	ColCBMostRecentDate   = "CB Most Recent Donation Date"
	ColCBMostRecentAmount = "CB Most Recent Donation Amount"

	ColCBTagName  = "CB Tag Name"
	ColCBTagCount = "CB Tag Count"
)

// ConstituentInputColumns is the schema read from the constituents table.
var ConstituentInputColumns = []string{
	ColPatronID,
	ColFirstName,
	ColLastName,
	ColDateEntered,
	ColPrimaryEmail,
	ColCompany,
	ColSalutation,
	ColUpstreamTitle,
	ColTags,
	ColUpstreamGender,
}

// EmailInputColumns is the schema read from the emails table.
var EmailInputColumns = []string{ColPatronID, ColEmail}

// DonationInputColumns is the schema read from the donation history table.
var DonationInputColumns = []string{ColPatronID, ColDonationAmount, ColDonationDate, ColStatus}

// ConstituentOutputColumns is the fixed column order of the constituents output.
var ConstituentOutputColumns = []string{
	ColCBConstituentID,
	ColCBConstituentType,
	ColCBFirstName,
	ColCBLastName,
	ColCBCompanyName,
	ColCBCreatedAt,
	ColCBEmail1,
	ColCBEmail2,
	ColCBTitle,
	ColCBTags,
	ColCBBackgroundInfo,
	ColCBLifetimeDonation,
	ColCBMostRecentDate,
	ColCBMostRecentAmount,
}

// TagOutputColumns is the fixed column order of the tags output.
var TagOutputColumns = []string{ColCBTagName, ColCBTagCount}
