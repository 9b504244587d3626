package credential

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
)

// Set groups the three hashing profiles. Each profile shares the pepper but
// carries its own cost parameters.
type Set struct {
	Password *Hasher
	PIN      *Hasher
	Secret   *Hasher
}

// NewSet builds the production profiles for the given pepper.
func NewSet(pepper string) (*Set, error) {
	return NewSetWithParams(pepper, PasswordParams, PINParams, SecretParams)
}

// NewSetWithParams builds a set with explicit profiles, mostly useful for
// tests that need cheap parameters.
func NewSetWithParams(pepper string, password, pin, secret Params) (*Set, error) {
	pw, err := New("password", password, pepper)
	if err != nil {
		return nil, err
	}
	pn, err := New("pin", pin, pepper)
	if err != nil {
		return nil, err
	}
	sc, err := New("issued_secret", secret, pepper)
	if err != nil {
		return nil, err
	}
	return &Set{Password: pw, PIN: pn, Secret: sc}, nil
}

var recoveryEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// IssueSecrets generates n random recovery codes (XXXX-XXXX-XXXX-XXXX) and
// their hashes under the issued-secret profile. Plain codes must be shown to
// the user once and then dropped.
func (s *Set) IssueSecrets(n int) (plain []string, hashed []string, err error) {
	plain = make([]string, 0, n)
	hashed = make([]string, 0, n)
	for i := 0; i < n; i++ {
		raw := make([]byte, 10)
		if _, err := rand.Read(raw); err != nil {
			return nil, nil, fmt.Errorf("%w: generate secret: %v", ErrHashing, err)
		}
		enc := recoveryEncoding.EncodeToString(raw)
		code := strings.Join([]string{enc[0:4], enc[4:8], enc[8:12], enc[12:16]}, "-")
		h, err := s.Secret.Hash(code)
		if err != nil {
			return nil, nil, err
		}
		plain = append(plain, code)
		hashed = append(hashed, h)
	}
	return plain, hashed, nil
}
