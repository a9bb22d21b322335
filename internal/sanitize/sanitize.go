// Package sanitize normalizes inbound email text before persistence.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	angleBrackets  = regexp.MustCompile(`<([^>]+)>`)
	quoted         = regexp.MustCompile(`"([^"]+)"`)
	emailShape     = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	sentenceBreak  = regexp.MustCompile(`([.!?])\n`)
	runsOfSpace    = regexp.MustCompile(`[ \t]+`)
	signOff        = regexp.MustCompile(`(?i)\n(Best regards|Sincerely|Regards|Thank you)`)

	htmlPolicy = bluemonday.StrictPolicy()
)

// Body normalizes plain-text email bodies: unifies line endings, collapses
// whitespace runs and blank-line stacks, and keeps paragraph breaks around
// sentence ends and sign-offs. The result always ends with a single newline.
func Body(body string) string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = excessNewlines.ReplaceAllString(normalized, "\n\n")
	normalized = sentenceBreak.ReplaceAllString(normalized, "$1\n\n")
	normalized = strings.TrimSpace(runsOfSpace.ReplaceAllString(normalized, " "))
	normalized = signOff.ReplaceAllString(normalized, "\n\n$1")

	lines := strings.Split(normalized, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

// HTMLToText strips all markup from an HTML body, leaving the text content.
// Used when a provider delivers HtmlBody without a TextBody.
func HTMLToText(html string) string {
	return strings.TrimSpace(htmlPolicy.Sanitize(html))
}

// ExtractAddress pulls the bare address out of a formatted recipient such as
// `"Lettings Desk" <desk@agency.example.com>`.
func ExtractAddress(formatted string) string {
	if m := angleBrackets.FindStringSubmatch(formatted); m != nil {
		return m[1]
	}
	if m := quoted.FindStringSubmatch(formatted); m != nil {
		return m[1]
	}
	return strings.TrimSpace(formatted)
}

// IsValidEmail reports whether s looks like local@domain.tld with no
// whitespace. Intentionally loose; it guards heuristic extraction, not RFC
// compliance.
func IsValidEmail(s string) bool {
	if s == "" {
		return false
	}
	return emailShape.MatchString(s)
}
