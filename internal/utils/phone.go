package utils

import "strings"

const (
	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// IsValidPhone accepts an optional leading '+' followed by 7 to 15 digits.
// Spaces, dashes, dots and parentheses are allowed as separators.
func IsValidPhone(phone string) bool {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
		default:
			return false
		}
	}
	return digits >= minPhoneDigits && digits <= maxPhoneDigits
}

// ToE164 strips separators and prefixes countryPrefix when the number has
// no leading '+'. Twilio rejects anything else.
func ToE164(phone, countryPrefix string) string {
	phone = strings.TrimSpace(phone)
	hasPlus := strings.HasPrefix(phone, "+")
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if hasPlus {
		return "+" + b.String()
	}
	if countryPrefix != "" && !strings.HasPrefix(countryPrefix, "+") {
		countryPrefix = "+" + countryPrefix
	}
	return countryPrefix + b.String()
}
