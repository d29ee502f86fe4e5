package recall

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// A natural product identifier is a 12 or 13 digit UPC/EAN token embedded
// somewhere in the source's free text.
var productIDPattern = regexp.MustCompile(`\b(\d{12,13})\b`)

// ExtractProductID pulls the first 12-13 digit token out of free text.
// Returns "" when no token is present.
func ExtractProductID(text string) string {
	if text == "" {
		return ""
	}
	match := productIDPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1]
}

// SyntheticProductID builds a dedup key from a source tag and its case
// number when no natural identifier exists. The tag prefix keeps case
// numbers from colliding across sources. Returns "" when the case number
// is empty, meaning there is nothing to key on.
func SyntheticProductID(source, caseNumber string) string {
	caseNumber = strings.TrimSpace(caseNumber)
	if caseNumber == "" {
		return ""
	}
	return fmt.Sprintf("%s-%s", source, caseNumber)
}

// Truncate caps s at max characters. Cutting on a rune boundary keeps the
// result valid UTF-8 and matches how VARCHAR(n) counts length.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
