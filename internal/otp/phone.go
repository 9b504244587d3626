package otp

import (
	"regexp"
	"strings"
)

// DefaultCountryCode is prepended to bare national numbers.
const DefaultCountryCode = "+91"

var nationalNumber = regexp.MustCompile(`^[6-9]\d{9}$`)

// NormalizePhone converts user input such as "98765 43210", "919876543210"
// or "+91-98765-43210" into the canonical "+919876543210" form.
func NormalizePhone(raw, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	cc := strings.TrimPrefix(countryCode, "+")

	var b strings.Builder
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", ErrInvalidPhone
		}
	}
	digits := b.String()

	switch {
	case nationalNumber.MatchString(digits):
	case strings.HasPrefix(digits, cc) && nationalNumber.MatchString(digits[len(cc):]):
		digits = digits[len(cc):]
	case strings.HasPrefix(digits, "0") && nationalNumber.MatchString(digits[1:]):
		digits = digits[1:]
	default:
		return "", ErrInvalidPhone
	}
	return "+" + cc + digits, nil
}

// MaskPhone keeps the last four digits for logs.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
