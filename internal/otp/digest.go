package otp

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Digester computes keyed digests of codes bound to an identifier and a
// purpose. Only digests are stored; raw codes never leave the issuer.
type Digester struct {
	secret []byte
}

// NewDigester builds a digester around the server-held secret.
func NewDigester(secret string) (*Digester, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Digester{secret: []byte(secret)}, nil
}

// Digest returns hex(HMAC-SHA256(secret, identifier:purpose:code)).
func (d *Digester) Digest(identifier string, purpose Purpose, code string) string {
	mac := hmac.New(sha256.New, d.secret)
	mac.Write([]byte(identifier))
	mac.Write([]byte{':'})
	mac.Write([]byte(purpose))
	mac.Write([]byte{':'})
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches recomputes the digest for code and compares it with stored in
// constant time.
func (d *Digester) Matches(stored, identifier string, purpose Purpose, code string) bool {
	candidate := d.Digest(identifier, purpose, code)
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
