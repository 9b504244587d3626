package otp

import (
	"context"
	"log/slog"

	"github.com/congo-pay/onboarding/internal/metrics"
)

// Guard verifies submitted codes and enforces brute-force lockout per
// (phone, purpose).
type Guard struct {
	store    Store
	digester *Digester
	cfg      Config
	logger   *slog.Logger
}

// NewGuard wires a verification guard.
func NewGuard(store Store, digester *Digester, cfg Config, logger *slog.Logger) *Guard {
	return &Guard{
		store:    store,
		digester: digester,
		cfg:      cfg.withDefaults(),
		logger:   logger.With("component", "otp.guard"),
	}
}

// Verify checks code against the live challenge. It returns the normalized
// phone on success, otherwise one of *LockedError, ErrExpired or
// *MismatchError. A successful verification consumes the challenge.
func (g *Guard) Verify(ctx context.Context, phone string, purpose Purpose, code string) (string, error) {
	if !purpose.Valid() {
		return "", ErrInvalidPurpose
	}
	normalized, err := NormalizePhone(phone, g.cfg.CountryCode)
	if err != nil {
		return "", err
	}

	outcome := "error"
	defer func() { metrics.OTPVerifications.WithLabelValues(string(purpose), outcome).Inc() }()

	lk := lockKey(purpose, normalized)
	locked, err := g.store.Exists(ctx, lk)
	if err != nil {
		return "", g.fail("lock exists", err)
	}
	if locked {
		outcome = "locked"
		ttl, err := g.store.TTL(ctx, lk)
		if err != nil {
			// The lock itself was confirmed; only the hint falls back.
			g.logger.Debug("lock ttl unavailable", "phone", MaskPhone(normalized), "purpose", purpose, "error", err)
			ttl = g.cfg.LockoutTTL
		}
		return "", &LockedError{RetryAfter: positive(ttl)}
	}

	ck := challengeKey(purpose, normalized)
	stored, ok, err := g.store.Get(ctx, ck)
	if err != nil {
		return "", g.fail("get challenge", err)
	}
	if !ok {
		outcome = "expired"
		return "", ErrExpired
	}

	// Malformed input still goes through the digest so it costs the same
	// and counts as a failed attempt.
	cleaned, wellFormed := normalizeCode(code, g.cfg.CodeLength)
	match := g.digester.Matches(stored, normalized, purpose, cleaned) && wellFormed

	fk := failKey(purpose, normalized)
	if !match {
		attempt, err := g.store.Incr(ctx, fk)
		if err != nil {
			return "", g.fail("incr failures", err)
		}
		if attempt == 1 {
			if err := g.store.Expire(ctx, fk, g.cfg.VerifyWindow); err != nil {
				return "", g.fail("expire failures", err)
			}
		}
		if attempt >= int64(g.cfg.MaxVerifyAttempts) {
			if err := g.store.Set(ctx, lk, "1", g.cfg.LockoutTTL); err != nil {
				return "", g.fail("set lock", err)
			}
			if err := g.store.Delete(ctx, fk); err != nil {
				g.logger.Warn("clear failure counter", "phone", MaskPhone(normalized), "error", err)
			}
			outcome = "locked"
			metrics.OTPLockouts.WithLabelValues(string(purpose)).Inc()
			g.logger.Warn("otp verification locked", "phone", MaskPhone(normalized), "purpose", purpose)
			return "", &LockedError{RetryAfter: g.cfg.LockoutTTL}
		}
		outcome = "mismatch"
		return "", &MismatchError{Attempt: int(attempt), Max: g.cfg.MaxVerifyAttempts}
	}

	if err := g.store.Delete(ctx, ck, fk, lk); err != nil {
		return "", g.fail("clear challenge", err)
	}
	outcome = "success"
	g.logger.Info("otp verified", "phone", MaskPhone(normalized), "purpose", purpose)
	return normalized, nil
}

func (g *Guard) fail(op string, err error) error {
	if isTimeout(err) {
		return ErrExpired
	}
	return infraError(op, err)
}
