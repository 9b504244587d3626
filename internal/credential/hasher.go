// Package credential hashes user secrets (passwords, PINs, server issued
// secrets) with Argon2id and a server-wide pepper.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	// ErrHashing is the root of every hashing failure.
	ErrHashing = errors.New("credential hashing failed")

	// ErrMissingPepper is returned at construction when no pepper is configured.
	ErrMissingPepper = errors.New("credential: pepper is required")

	// ErrEmptySecret rejects empty secrets before any work is done.
	ErrEmptySecret = fmt.Errorf("%w: secret must not be empty", ErrHashing)

	errMalformedHash = errors.New("malformed argon2id hash")
)

const pepperSeparator = "::"

// Params holds Argon2id cost parameters.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

var (
	// PasswordParams is the profile for login passwords.
	PasswordParams = Params{Memory: 64 * 1024, Iterations: 3, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	// PINParams is the profile for short numeric transaction PINs.
	PINParams = Params{Memory: 64 * 1024, Iterations: 2, Parallelism: 2, SaltLength: 16, KeyLength: 32}
	// SecretParams is the profile for server issued opaque secrets (recovery codes, refresh tokens).
	SecretParams = Params{Memory: 64 * 1024, Iterations: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}
)

func (p Params) validate() error {
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 || p.SaltLength == 0 || p.KeyLength == 0 {
		return errors.New("credential: argon2id params must be fully configured")
	}
	return nil
}

// Hasher hashes and verifies secrets for one parameter profile.
type Hasher struct {
	name   string
	params Params
	pepper []byte
}

// New builds a hasher. It refuses to construct without a pepper.
func New(name string, params Params, pepper string) (*Hasher, error) {
	if strings.TrimSpace(pepper) == "" {
		return nil, ErrMissingPepper
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Hasher{name: name, params: params, pepper: []byte(pepper)}, nil
}

// Name identifies the profile, e.g. "password" or "pin".
func (h *Hasher) Name() string { return h.name }

// Hash returns an encoded hash in the form
// $argon2id$v=19$m=<memory>,t=<iterations>,p=<parallelism>$<salt>$<key>.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: generate salt: %v", ErrHashing, err)
	}

	key := argon2.IDKey(h.peppered(secret), salt, h.params.Iterations, h.params.Memory, h.params.Parallelism, h.params.KeyLength)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.params.Memory, h.params.Iterations, h.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether secret matches encoded. Corrupt or foreign hashes
// never match.
func (h *Hasher) Verify(secret, encoded string) bool {
	if secret == "" {
		return false
	}
	decoded, err := decode(encoded)
	if err != nil {
		return false
	}
	candidate := argon2.IDKey(h.peppered(secret), decoded.salt, decoded.params.Iterations, decoded.params.Memory, decoded.params.Parallelism, uint32(len(decoded.key)))
	return subtle.ConstantTimeCompare(decoded.key, candidate) == 1
}

// NeedsRehash reports whether encoded was produced with parameters other
// than the hasher's current profile.
func (h *Hasher) NeedsRehash(encoded string) bool {
	decoded, err := decode(encoded)
	if err != nil {
		return true
	}
	return decoded.params != h.params
}

func (h *Hasher) peppered(secret string) []byte {
	buf := make([]byte, 0, len(secret)+len(pepperSeparator)+len(h.pepper))
	buf = append(buf, secret...)
	buf = append(buf, pepperSeparator...)
	return append(buf, h.pepper...)
}

type decodedHash struct {
	params Params
	salt   []byte
	key    []byte
}

func decode(encoded string) (decodedHash, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return decodedHash{}, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return decodedHash{}, errMalformedHash
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return decodedHash{}, errMalformedHash
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return decodedHash{}, errMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return decodedHash{}, errMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return decodedHash{}, errMalformedHash
	}
	p.SaltLength = uint32(len(salt))
	p.KeyLength = uint32(len(key))

	return decodedHash{params: p, salt: salt, key: key}, nil
}
