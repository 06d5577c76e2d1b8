// =============================================================================
// Constituent Import - Email Selector
// =============================================================================
//
// A patron's primary email and secondary email records are reduced to at most
// two standardized, validated, de-duplicated addresses. The standardized
// primary is preferred for the first slot when it is valid.
//
// =============================================================================

package emails

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/constituent-import/internal/logging"
	"github.com/ginjaninja78/constituent-import/internal/types"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// DomainCorrections maps common domain typos to the intended domain.
var DomainCorrections = map[string]string{
	"gmaill.com": "gmail.com",
	"hotmal.com": "hotmail.com",
	"yaho.com":   "yahoo.com",
	"gmal.com":   "gmail.com",
	"outlok.com": "outlook.com",
}

// Grouped holds secondary email addresses keyed by trimmed patron id.
type Grouped map[types.PatronID][]string

// GroupByPatron groups email records by trimmed patron id, dropping blank ids.
func GroupByPatron(records []types.EmailRecord) Grouped {
	grouped := make(Grouped)
	for _, rec := range records {
		id := strings.TrimSpace(rec.PatronID)
		if id == "" {
			continue
		}
		grouped[id] = append(grouped[id], rec.Email)
	}
	return grouped
}

// Standardize lower-cases and trims email and corrects known domain typos.
func Standardize(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	local, domain, found := strings.Cut(email, "@")
	if !found {
		return email
	}

	if corrected, ok := DomainCorrections[domain]; ok {
		logging.Default().Debug().Str("from", domain).Str("to", corrected).Msg("corrected email domain")
		return local + "@" + corrected
	}
	return email
}

// IsValid reports whether email has the shape local@domain.tld.
func IsValid(email string) bool {
	return email != "" && emailPattern.MatchString(email)
}

// ValidList standardizes candidates and keeps the valid ones, de-duplicated
// in first-seen order.
func ValidList(candidates []string) []string {
	var valid []string
	seen := make(map[string]struct{})

	for _, candidate := range candidates {
		std := Standardize(candidate)
		if std == "" {
			continue
		}
		if _, dup := seen[std]; dup {
			continue
		}
		if !IsValid(std) {
			logging.Default().Debug().Str("email", candidate).Msg("dropping invalid email")
			continue
		}
		seen[std] = struct{}{}
		valid = append(valid, std)
	}
	return valid
}

// Select picks the first and second email for a constituent. The primary
// address is tried first; secondaries follow in their given order.
func Select(primary string, secondaries []string) (email1, email2 string) {
	candidates := make([]string, 0, len(secondaries)+1)
	candidates = append(candidates, primary)
	candidates = append(candidates, secondaries...)

	valid := ValidList(candidates)
	if len(valid) == 0 {
		return "", ""
	}

	email1 = valid[0]
	if std := Standardize(primary); std != "" {
		for _, v := range valid {
			if v == std {
				email1 = std
				break
			}
		}
	}

	for _, v := range valid {
		if v != email1 {
			email2 = v
			break
		}
	}
	return email1, email2
}
