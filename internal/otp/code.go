package otp

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"unicode"
)

// DefaultCodeLength is the number of digits in an issued code.
const DefaultCodeLength = 6

// Purpose scopes a challenge so a phone can hold independent codes per use.
type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeLogin  Purpose = "login"
	PurposeReset  Purpose = "reset"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeSignup, PurposeLogin, PurposeReset:
		return true
	}
	return false
}

// GenerateCode returns a uniformly random numeric code of the given length,
// leading zeros preserved.
func GenerateCode(length int) (string, error) {
	if length <= 0 || length > 18 {
		return "", errors.New("otp: code length must be between 1 and 18")
	}
	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", err
	}
	s := n.String()
	return strings.Repeat("0", length-len(s)) + s, nil
}

// normalizeCode strips whitespace. ok is false for anything that is not a
// run of digits of the expected length.
func normalizeCode(code string, length int) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, code)
	if len(cleaned) != length {
		return cleaned, false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return cleaned, false
		}
	}
	return cleaned, true
}
