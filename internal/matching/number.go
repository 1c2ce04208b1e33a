package matching

import "strings"

// NumberMatches reports whether a marketplace card number denotes baseID.
// Accepted forms: exact (case-insensitive), equal once hyphens are removed, or
// equal to the trailing digits of baseID ignoring leading zeros.
func NumberMatches(number, baseID string) bool {
	number = strings.TrimSpace(number)
	baseID = strings.TrimSpace(baseID)
	if number == "" || baseID == "" {
		return false
	}
	if strings.EqualFold(number, baseID) {
		return true
	}
	if strings.EqualFold(stripHyphens(number), stripHyphens(baseID)) {
		return true
	}
	digits := trailingDigits(baseID)
	if digits == "" || !allDigits(number) {
		return false
	}
	return trimZeros(number) == trimZeros(digits)
}

func stripHyphens(s string) string {
	return strings.ReplaceAll(s, "-", "")
}

func trailingDigits(s string) string {
	end := len(s)
	start := end
	for start > 0 && s[start-1] >= '0' && s[start-1] <= '9' {
		start--
	}
	return s[start:end]
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func trimZeros(s string) string {
	trimmed := strings.TrimLeft(s, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
