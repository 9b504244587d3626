package credential

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cheap = Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := New("password", cheap, "test-pepper")
	require.NoError(t, err)
	return h
}

func TestNewRequiresPepper(t *testing.T) {
	for _, pepper := range []string{"", "   "} {
		h, err := New("password", cheap, pepper)
		assert.Nil(t, h)
		assert.ErrorIs(t, err, ErrMissingPepper)
	}
}

func TestNewRejectsIncompleteParams(t *testing.T) {
	_, err := New("password", Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16}, "pepper")
	assert.Error(t, err)
}

func TestHashUsesDistinctSalts(t *testing.T) {
	h := newTestHasher(t)

	first, err := h.Hash("secret1")
	require.NoError(t, err)
	second, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("secret1", first))
	assert.True(t, h.Verify("secret1", second))
	assert.False(t, h.Verify("secret2", first))
	assert.True(t, strings.HasPrefix(first, "$argon2id$v=19$m=1024,t=1,p=1$"))
}

func TestHashRejectsEmptySecret(t *testing.T) {
	h := newTestHasher(t)
	_, err := h.Hash("")
	if !errors.Is(err, ErrEmptySecret) || !errors.Is(err, ErrHashing) {
		t.Fatalf("expected empty secret hashing error, got %v", err)
	}
	assert.False(t, h.Verify("", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$a2V5"))
}

func TestVerifyCorruptHashReturnsFalse(t *testing.T) {
	h := newTestHasher(t)
	cases := []string{
		"",
		"plain-text",
		"$bcrypt$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA",
	}
	for _, encoded := range cases {
		assert.False(t, h.Verify("secret", encoded), "encoded=%q", encoded)
	}
}

func TestPepperIsBoundIntoHash(t *testing.T) {
	a, err := New("password", cheap, "pepper-a")
	require.NoError(t, err)
	b, err := New("password", cheap, "pepper-b")
	require.NoError(t, err)

	encoded, err := a.Hash("StrongPass1!")
	require.NoError(t, err)
	assert.True(t, a.Verify("StrongPass1!", encoded))
	assert.False(t, b.Verify("StrongPass1!", encoded))
}

func TestNeedsRehash(t *testing.T) {
	h := newTestHasher(t)
	encoded, err := h.Hash("secret")
	require.NoError(t, err)
	assert.False(t, h.NeedsRehash(encoded))

	stronger, err := New("password", Params{Memory: 2048, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}, "test-pepper")
	require.NoError(t, err)
	assert.True(t, stronger.NeedsRehash(encoded))
	assert.True(t, h.NeedsRehash("garbage"))

	// parameters from the stored hash are used on verify
	assert.True(t, stronger.Verify("secret", encoded))
}

func TestSetProfilesAreDistinguishable(t *testing.T) {
	set, err := NewSetWithParams("pepper", cheap,
		Params{Memory: 1024, Iterations: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		Params{Memory: 1024, Iterations: 1, Parallelism: 2, SaltLength: 16, KeyLength: 32},
	)
	require.NoError(t, err)

	pw, err := set.Password.Hash("1234")
	require.NoError(t, err)
	pin, err := set.PIN.Hash("1234")
	require.NoError(t, err)

	assert.True(t, set.PIN.NeedsRehash(pw))
	assert.True(t, set.Password.NeedsRehash(pin))
	assert.Equal(t, "pin", set.PIN.Name())
}

func TestIssueSecrets(t *testing.T) {
	set, err := NewSetWithParams("pepper", cheap, cheap, cheap)
	require.NoError(t, err)

	plain, hashed, err := set.IssueSecrets(3)
	require.NoError(t, err)
	require.Len(t, plain, 3)
	require.Len(t, hashed, 3)
	for i := range plain {
		assert.Len(t, plain[i], 19)
		assert.True(t, set.Secret.Verify(plain[i], hashed[i]))
	}
	assert.NotEqual(t, plain[0], plain[1])
}
