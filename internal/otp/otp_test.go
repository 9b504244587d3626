package otp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/onboarding/internal/logging"
)

const testPhone = "9876543210"

type fixture struct {
	mr      *miniredis.Miniredis
	store   *RedisStore
	issuer  *Issuer
	guard   *Guard
	limiter *RateLimiter
}

func newFixture(t *testing.T, atomic bool) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	store := NewRedisStore(client, time.Second)
	digester, err := NewDigester("otp-test-secret")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.AtomicRateLimit = atomic
	limiter := NewRateLimiter(store, cfg.Limits, atomic)
	logger := logging.Discard()

	return &fixture{
		mr:      mr,
		store:   store,
		limiter: limiter,
		issuer:  NewIssuer(store, limiter, digester, cfg, logger),
		guard:   NewGuard(store, digester, cfg, logger),
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"9876543210", "+919876543210", true},
		{"+919876543210", "+919876543210", true},
		{"919876543210", "+919876543210", true},
		{" 98765-43210 ", "+919876543210", true},
		{"+91 (98765) 43210", "+919876543210", true},
		{"09876543210", "+919876543210", true},
		{"5876543210", "", false},
		{"98765", "", false},
		{"98765x3210", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizePhone(tc.in, "+91")
		if tc.ok {
			if err != nil || got != tc.want {
				t.Errorf("NormalizePhone(%q) = %q, %v, want %q", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("NormalizePhone(%q) err = %v, want ErrInvalidPhone", tc.in, err)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "*********3210", MaskPhone("+919876543210"))
	assert.Equal(t, "****", MaskPhone("12"))
}

func TestGenerateCodeIsFixedLengthNumeric(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := GenerateCode(6)
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "code %q", code)
		}
	}
	_, err := GenerateCode(0)
	assert.Error(t, err)
}

func TestNormalizeCode(t *testing.T) {
	got, ok := normalizeCode(" 12 34\t56 ", 6)
	assert.True(t, ok)
	assert.Equal(t, "123456", got)

	_, ok = normalizeCode("12a456", 6)
	assert.False(t, ok)
	_, ok = normalizeCode("12345", 6)
	assert.False(t, ok)
}

func TestDigestIsBoundToPhoneAndPurpose(t *testing.T) {
	d, err := NewDigester("secret")
	require.NoError(t, err)

	base := d.Digest("+919876543210", PurposeSignup, "123456")
	assert.Equal(t, base, d.Digest("+919876543210", PurposeSignup, "123456"))
	assert.NotEqual(t, base, d.Digest("+919876543211", PurposeSignup, "123456"))
	assert.NotEqual(t, base, d.Digest("+919876543210", PurposeLogin, "123456"))
	assert.True(t, d.Matches(base, "+919876543210", PurposeSignup, "123456"))
	assert.False(t, d.Matches(base, "+919876543210", PurposeSignup, "123457"))

	_, err = NewDigester("")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssueStoresDigestNotCode(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	ch, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", ch.Phone)
	assert.Len(t, ch.Code, 6)

	stored, err := f.mr.Get("otp:verify:signup:+919876543210")
	require.NoError(t, err)
	assert.NotContains(t, stored, ch.Code)
	assert.Len(t, stored, 64)
	assert.Equal(t, 300*time.Second, f.mr.TTL("otp:verify:signup:+919876543210"))
	assert.True(t, f.mr.Exists("otp:cooldown:+919876543210"))
}

func TestIssueRejectsUnknownPurposeAndPhone(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.issuer.Issue(context.Background(), testPhone, Purpose("transfer"))
	assert.ErrorIs(t, err, ErrInvalidPurpose)
	_, err = f.issuer.Issue(context.Background(), "12345", PurposeSignup)
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestCooldownRejectsImmediateResend(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		f := newFixture(t, atomic)
		ctx := context.Background()

		_, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
		require.NoError(t, err)

		_, err = f.issuer.Issue(ctx, testPhone, PurposeSignup)
		var rl *RateLimitError
		require.ErrorAs(t, err, &rl, "atomic=%v", atomic)
		assert.ErrorIs(t, err, ErrRateLimited)
		assert.Equal(t, ReasonCooldown, rl.Reason)
		assert.Greater(t, rl.RetryAfter, time.Duration(0))
		assert.Contains(t, rl.Error(), "please wait")
	}
}

func TestWindowAllowsMaxThenRejects(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		f := newFixture(t, atomic)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
			require.NoError(t, err, "issue %d atomic=%v", i+1, atomic)
			f.mr.FastForward(31 * time.Second)
		}

		_, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
		var rl *RateLimitError
		require.ErrorAs(t, err, &rl)
		assert.Equal(t, ReasonWindow, rl.Reason)

		// the rejected call must not set a cooldown
		assert.False(t, f.mr.Exists("otp:cooldown:+919876543210"))
	}
}

func TestDailyQuota(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
		require.NoError(t, err, "issue %d", i+1)
		// step past the cooldown; every third issue also step past the window
		f.mr.FastForward(31 * time.Second)
		if (i+1)%3 == 0 {
			f.mr.FastForward(5 * time.Minute)
		}
	}
	f.mr.FastForward(5 * time.Minute)

	_, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, ReasonDaily, rl.Reason)
}

func TestCounterWithoutTTLGetsOneBack(t *testing.T) {
	for _, atomic := range []bool{false, true} {
		f := newFixture(t, atomic)
		ctx := context.Background()
		window := "otp:window:+919876543210"
		daily := "otp:daily:+919876543210"

		// a counter at the threshold whose EXPIRE never landed
		require.NoError(t, f.mr.Set(window, "3"))
		_, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
		var rl *RateLimitError
		require.ErrorAs(t, err, &rl, "atomic=%v", atomic)
		assert.Equal(t, ReasonWindow, rl.Reason)
		assert.Equal(t, 5*time.Minute, rl.RetryAfter)
		assert.Greater(t, f.mr.TTL(window), time.Duration(0))

		f.mr.FastForward(5*time.Minute + time.Second)
		_, err = f.issuer.Issue(ctx, testPhone, PurposeSignup)
		require.NoError(t, err, "atomic=%v", atomic)

		f.mr.FastForward(time.Minute)
		require.NoError(t, f.mr.Set(daily, "10"))
		_, err = f.issuer.Issue(ctx, testPhone, PurposeSignup)
		require.ErrorAs(t, err, &rl)
		assert.Equal(t, ReasonDaily, rl.Reason)
		assert.Equal(t, 24*time.Hour, rl.RetryAfter)
		assert.Greater(t, f.mr.TTL(daily), time.Duration(0))
	}
}

func TestMemoryCounterWithoutTTLGetsOneBack(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()
	limits := DefaultLimits()
	limiter := NewRateLimiter(store, limits, false)

	for i := 0; i < 3; i++ {
		_, err := store.Incr(ctx, windowKey("+919876543210"))
		require.NoError(t, err)
	}
	err := limiter.CheckAndReserve(ctx, "+919876543210")
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, ReasonWindow, rl.Reason)

	ttl, err := store.TTL(ctx, windowKey("+919876543210"))
	require.NoError(t, err)
	assert.Equal(t, limits.Window, ttl)

	now = now.Add(limits.Window + time.Second)
	require.NoError(t, limiter.CheckAndReserve(ctx, "+919876543210"))
}

func TestCooldownIsPerPhone(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	_, err := f.issuer.Issue(ctx, "9876543210", PurposeSignup)
	require.NoError(t, err)
	_, err = f.issuer.Issue(ctx, "9876543211", PurposeSignup)
	require.NoError(t, err)
}

func TestVerifyRoundTripSucceedsOnce(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	ch, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
	require.NoError(t, err)

	phone, err := f.guard.Verify(ctx, testPhone, PurposeSignup, ch.Code)
	require.NoError(t, err)
	assert.Equal(t, "+919876543210", phone)

	_, err = f.guard.Verify(ctx, testPhone, PurposeSignup, ch.Code)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyNeverIssuedIsExpired(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.guard.Verify(context.Background(), testPhone, PurposeSignup, "123456")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyAfterTTLIsExpired(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ch, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
	require.NoError(t, err)

	f.mr.FastForward(301 * time.Second)
	_, err = f.guard.Verify(ctx, testPhone, PurposeSignup, ch.Code)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyPurposeIsolation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ch, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
	require.NoError(t, err)

	_, err = f.guard.Verify(ctx, testPhone, PurposeLogin, ch.Code)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyMismatchCountsAttempts(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ch, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
	require.NoError(t, err)

	wrong := wrongCode(ch.Code)
	for i := 1; i <= 4; i++ {
		_, err := f.guard.Verify(ctx, testPhone, PurposeSignup, wrong)
		var mm *MismatchError
		require.ErrorAs(t, err, &mm)
		assert.Equal(t, i, mm.Attempt)
		assert.Equal(t, 5, mm.Max)
	}
	assert.Equal(t, 15*time.Minute, f.mr.TTL("otp:verify:fail:signup:+919876543210"))

	// still usable before the threshold
	_, err = f.guard.Verify(ctx, testPhone, PurposeSignup, ch.Code)
	require.NoError(t, err)
	assert.False(t, f.mr.Exists("otp:verify:fail:signup:+919876543210"))
}

func TestVerifyLocksAfterMaxAttempts(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ch, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
	require.NoError(t, err)

	wrong := wrongCode(ch.Code)
	for i := 1; i < 5; i++ {
		_, err := f.guard.Verify(ctx, testPhone, PurposeSignup, wrong)
		require.ErrorIs(t, err, ErrMismatch)
	}
	_, err = f.guard.Verify(ctx, testPhone, PurposeSignup, wrong)
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, time.Hour, locked.RetryAfter)
	assert.False(t, f.mr.Exists("otp:verify:fail:signup:+919876543210"))

	// the correct code is refused while locked
	_, err = f.guard.Verify(ctx, testPhone, PurposeSignup, ch.Code)
	assert.ErrorIs(t, err, ErrLocked)

	f.mr.FastForward(time.Hour + time.Second)
	_, err = f.guard.Verify(ctx, testPhone, PurposeSignup, ch.Code)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyMalformedCodeIsMismatch(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	ch, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
	require.NoError(t, err)

	for _, bad := range []string{"abcdef", "12345", "", "1234567"} {
		_, err := f.guard.Verify(ctx, testPhone, PurposeSignup, bad)
		assert.ErrorIs(t, err, ErrMismatch, "code %q", bad)
	}

	spaced := ch.Code[:3] + " " + ch.Code[3:]
	_, err = f.guard.Verify(ctx, testPhone, PurposeSignup, spaced)
	assert.NoError(t, err)
}

func TestReissueOverwritesChallenge(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	first, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
	require.NoError(t, err)
	f.mr.FastForward(31 * time.Second)
	second, err := f.issuer.Issue(ctx, testPhone, PurposeSignup)
	require.NoError(t, err)

	if first.Code != second.Code {
		_, err = f.guard.Verify(ctx, testPhone, PurposeSignup, first.Code)
		assert.ErrorIs(t, err, ErrMismatch)
	}
	_, err = f.guard.Verify(ctx, testPhone, PurposeSignup, second.Code)
	assert.NoError(t, err)
}

func TestMemoryStoreBacksIssuerAndGuard(t *testing.T) {
	store := NewMemoryStore()
	digester, err := NewDigester("secret")
	require.NoError(t, err)
	cfg := DefaultConfig()
	logger := logging.Discard()
	issuer := NewIssuer(store, NewRateLimiter(store, cfg.Limits, false), digester, cfg, logger)
	guard := NewGuard(store, digester, cfg, logger)
	ctx := context.Background()

	ch, err := issuer.Issue(ctx, testPhone, PurposeLogin)
	require.NoError(t, err)
	_, err = issuer.Issue(ctx, testPhone, PurposeLogin)
	assert.ErrorIs(t, err, ErrRateLimited)

	_, err = guard.Verify(ctx, testPhone, PurposeLogin, ch.Code)
	require.NoError(t, err)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	n, err := store.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, store.Expire(ctx, "counter", time.Second))

	now = now.Add(2 * time.Second)
	ok, err := store.Exists(ctx, "counter")
	require.NoError(t, err)
	assert.False(t, ok)
	ttl, err := store.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 58*time.Second, ttl)
}

type timeoutStore struct{ Store }

func (timeoutStore) TTL(context.Context, string) (time.Duration, error) {
	return 0, context.DeadlineExceeded
}

func (timeoutStore) Exists(context.Context, string) (bool, error) {
	return false, context.DeadlineExceeded
}

type brokenStore struct{ Store }

func (brokenStore) Exists(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

type lockTTLStore struct{ Store }

func (lockTTLStore) TTL(context.Context, string) (time.Duration, error) {
	return 0, errors.New("connection reset")
}

func TestLockedWithoutTTLFallsBackToLockout(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, lockKey(PurposeSignup, "+919876543210"), "1", time.Minute))

	digester, err := NewDigester("secret")
	require.NoError(t, err)
	cfg := DefaultConfig()

	_, err = NewGuard(lockTTLStore{mem}, digester, cfg, logging.Discard()).Verify(ctx, testPhone, PurposeSignup, "123456")
	var locked *LockedError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, cfg.LockoutTTL, locked.RetryAfter)
}

func TestTimeoutsFailClosed(t *testing.T) {
	store := timeoutStore{NewMemoryStore()}
	digester, err := NewDigester("secret")
	require.NoError(t, err)
	cfg := DefaultConfig()
	logger := logging.Discard()

	_, err = NewIssuer(store, NewRateLimiter(store, cfg.Limits, false), digester, cfg, logger).Issue(context.Background(), testPhone, PurposeSignup)
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, ReasonTimeout, rl.Reason)

	_, err = NewGuard(store, digester, cfg, logger).Verify(context.Background(), testPhone, PurposeSignup, "123456")
	assert.ErrorIs(t, err, ErrExpired)

	_, err = NewGuard(brokenStore{NewMemoryStore()}, digester, cfg, logger).Verify(context.Background(), testPhone, PurposeSignup, "123456")
	assert.ErrorIs(t, err, ErrInfrastructure)
}

func wrongCode(code string) string {
	if strings.HasPrefix(code, "0") {
		return "1" + code[1:]
	}
	return "0" + code[1:]
}
