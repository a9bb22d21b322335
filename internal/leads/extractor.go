// Package leads recovers contact details from free-text email bodies.
//
// Portal inquiry emails arrive as semi-structured contact-form dumps
// ("Name: ... Email: ... Message: ..."). Extraction runs an ordered pattern
// cascade per field and takes the first match; ordering is a contract, not
// an accident, so labeled fields always win over bare tokens.
package leads

import (
	"regexp"
	"strings"

	"leasedesk/internal/sanitize"
)

// Info is the best-effort extraction result. Every field is optional; nil
// means the field could not be recovered.
type Info struct {
	Email   *string
	Name    *string
	Phone   *string
	Message *string
}

type pattern struct {
	label    string
	re       *regexp.Regexp
	validate func(string) bool
}

var emailPatterns = []pattern{
	{"email-label", regexp.MustCompile(`(?i)Email:\s*([^\s@]+@[^\s@]+\.[^\s@]+)`), sanitize.IsValidEmail},
	{"email-address-label", regexp.MustCompile(`(?i)Email Address:\s*([^\s@]+@[^\s@]+\.[^\s@]+)`), sanitize.IsValidEmail},
	{"from-label", regexp.MustCompile(`(?i)From:\s*([^\s@]+@[^\s@]+\.[^\s@]+)`), sanitize.IsValidEmail},
	{"contact-email-label", regexp.MustCompile(`(?i)Contact Email:\s*([^\s@]+@[^\s@]+\.[^\s@]+)`), sanitize.IsValidEmail},
	{"bare-token", regexp.MustCompile(`([^\s@]+@[^\s@]+\.[^\s@]+)`), sanitize.IsValidEmail},
}

var namePatterns = []pattern{
	{"name-label", regexp.MustCompile(`(?i)Name:\s*(.+)`), nil},
	{"full-name-label", regexp.MustCompile(`(?i)Full Name:\s*(.+)`), nil},
	{"from-display", regexp.MustCompile(`(?i)From:\s*(.+?)\s*<`), nil},
	{"contact-name-label", regexp.MustCompile(`(?i)Contact Name:\s*(.+)`), nil},
}

var phonePatterns = []pattern{
	{"phone-label", regexp.MustCompile(`(?i)Phone:\s*(.+)`), nil},
	{"phone-number-label", regexp.MustCompile(`(?i)Phone Number:\s*(.+)`), nil},
	{"telephone-label", regexp.MustCompile(`(?i)Telephone:\s*(.+)`), nil},
	{"contact-phone-label", regexp.MustCompile(`(?i)Contact Phone:\s*(.+)`), nil},
	{"bare-digits", regexp.MustCompile(`(\+?\d[\d\s\-()]{7,}\d)`), nil},
}

// messageBlock captures a "Message:" block up to the next labeled line or
// end of text.
var messageBlock = regexp.MustCompile(`(?is)Message:\s*(.*?)(?:\n\w+:|$)`)

// Extract pulls a lead record out of a message body. It is deterministic,
// side-effect free, and returns the zero Info for an empty body.
func Extract(body string) Info {
	var info Info
	if body == "" {
		return info
	}

	info.Email = firstMatch(body, emailPatterns)
	info.Name = firstMatch(body, namePatterns)
	info.Phone = firstMatch(body, phonePatterns)

	if m := messageBlock.FindStringSubmatch(body); m != nil {
		if msg := strings.TrimSpace(m[1]); msg != "" {
			info.Message = &msg
		}
	}
	if info.Message == nil {
		if trimmed := strings.TrimSpace(body); trimmed != "" {
			info.Message = &trimmed
		}
	}

	return info
}

func firstMatch(body string, patterns []pattern) *string {
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[1])
		if value == "" {
			continue
		}
		if p.validate != nil && !p.validate(value) {
			continue
		}
		return &value
	}
	return nil
}
