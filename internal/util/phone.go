package util

import (
	"strings"
	"unicode"
)

// NormalizePhone canonicalizes a US phone number to E.164 (+1XXXXXXXXXX).
// Numbers that already carry a leading + are kept as-is with whitespace
// stripped; bare 10-digit and 1-prefixed 11-digit numbers are promoted.
// Anything else returns the empty string.
func NormalizePhone(phone string) string {
	raw := strings.TrimSpace(phone)
	if strings.HasPrefix(raw, "+") {
		return stripSpaces(raw)
	}

	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	switch {
	case len(d) == 10:
		return "+1" + d
	case len(d) == 11 && strings.HasPrefix(d, "1"):
		return "+" + d
	default:
		return ""
	}
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
