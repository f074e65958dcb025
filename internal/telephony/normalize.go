package telephony

import "strings"

// NormalizeE164 converts the number formats found in lead records into
// E.164. A bare 10-digit number is assumed North American and prefixed
// with country code 1; an 11-digit number already starting with 1 gets a
// "+"; a number that already carries "+" passes through with separators
// stripped. Anything else is returned as given. Idempotent.
func NormalizeE164(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	hasPlus := strings.HasPrefix(s, "+")
	digits := digitsOnly(s)

	switch {
	case hasPlus:
		return "+" + digits
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && strings.HasPrefix(digits, "1"):
		return "+" + digits
	default:
		return s
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
