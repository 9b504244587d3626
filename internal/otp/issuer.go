package otp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/congo-pay/onboarding/internal/metrics"
)

// Challenge is the result of a successful issuance. Code is the raw code for
// delivery and must not be logged or persisted.
type Challenge struct {
	Phone     string
	Purpose   Purpose
	Code      string
	ExpiresIn time.Duration
}

// Issuer generates, stores and returns OTP codes.
type Issuer struct {
	store    Store
	limiter  *RateLimiter
	digester *Digester
	cfg      Config
	logger   *slog.Logger
}

// NewIssuer wires an issuer. limiter may be shared with other issuers.
func NewIssuer(store Store, limiter *RateLimiter, digester *Digester, cfg Config, logger *slog.Logger) *Issuer {
	return &Issuer{
		store:    store,
		limiter:  limiter,
		digester: digester,
		cfg:      cfg.withDefaults(),
		logger:   logger.With("component", "otp.issuer"),
	}
}

// Issue normalizes phone, reserves rate limit budget and stores a fresh
// challenge for (phone, purpose), replacing any live one.
func (i *Issuer) Issue(ctx context.Context, phone string, purpose Purpose) (Challenge, error) {
	if !purpose.Valid() {
		return Challenge{}, ErrInvalidPurpose
	}
	normalized, err := NormalizePhone(phone, i.cfg.CountryCode)
	if err != nil {
		return Challenge{}, err
	}

	if err := i.limiter.CheckAndReserve(ctx, normalized); err != nil {
		if rl, ok := err.(*RateLimitError); ok {
			metrics.OTPRateLimited.WithLabelValues(rl.Reason).Inc()
			i.logger.Info("otp rate limited", "phone", MaskPhone(normalized), "reason", rl.Reason, "retry_after", rl.RetryAfter)
		}
		return Challenge{}, err
	}

	code, err := GenerateCode(i.cfg.CodeLength)
	if err != nil {
		return Challenge{}, fmt.Errorf("generate otp: %w", err)
	}

	digest := i.digester.Digest(normalized, purpose, code)
	if err := i.store.Set(ctx, challengeKey(purpose, normalized), digest, i.cfg.Expiry); err != nil {
		// The cooldown reserved above stays in place, so a failed store
		// still blocks an immediate retry.
		i.logger.Error("store otp challenge", "phone", MaskPhone(normalized), "error", err)
		if isTimeout(err) {
			return Challenge{}, &RateLimitError{Reason: ReasonTimeout}
		}
		return Challenge{}, infraError("store challenge", err)
	}

	metrics.OTPIssued.WithLabelValues(string(purpose)).Inc()
	i.logger.Info("otp issued", "phone", MaskPhone(normalized), "purpose", purpose, "expires_in", i.cfg.Expiry)

	return Challenge{Phone: normalized, Purpose: purpose, Code: code, ExpiresIn: i.cfg.Expiry}, nil
}
