package recall

import "strings"

// HazardLabel derives the display classification from the source-reported
// severity text. The contract is a substring match, not a parsed enum:
// "iii" anywhere in the text means Class III, "ii" means Class II, and
// everything else (including empty) is treated as Class I.
func HazardLabel(severity string) string {
	s := strings.ToLower(severity)
	switch {
	case strings.Contains(s, "iii"):
		return "Class III"
	case strings.Contains(s, "ii"):
		return "Class II"
	default:
		return "Class I"
	}
}
