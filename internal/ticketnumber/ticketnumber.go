// Package ticketnumber owns the human facing ticket number format.
// Generation and subject-line correlation share one definition so they cannot drift.
package ticketnumber

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Prefix starts every ticket number.
const Prefix = "TCK-"

const suffixLen = 8

var pattern = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(Prefix) + `([0-9A-F]{8})\b`)

// Generate returns a new ticket number such as TCK-1A2B3C4D.
func Generate() string {
	return Prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:suffixLen])
}

// Find returns the first ticket number embedded in text, normalized to upper case.
func Find(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	matches := pattern.FindStringSubmatch(text)
	if len(matches) < 2 {
		return "", false
	}
	return Prefix + strings.ToUpper(matches[1]), true
}

// Valid reports whether value is exactly one ticket number.
func Valid(value string) bool {
	found, ok := Find(value)
	return ok && strings.EqualFold(found, strings.TrimSpace(value))
}
