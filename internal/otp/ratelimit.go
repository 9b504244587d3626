package otp

import (
	"context"
	"time"
)

// Limits configures issuance throttling for a single phone.
type Limits struct {
	ResendCooldown time.Duration
	Window         time.Duration
	MaxInWindow    int64
	DailyLimit     int64
	DailyTTL       time.Duration
}

// DefaultLimits mirrors the production defaults.
func DefaultLimits() Limits {
	return Limits{
		ResendCooldown: 30 * time.Second,
		Window:         5 * time.Minute,
		MaxInWindow:    3,
		DailyLimit:     10,
		DailyTTL:       24 * time.Hour,
	}
}

// RateLimiter enforces cooldown, burst window and daily quota on issuance.
//
// The default sequence (cooldown TTL read, window INCR, daily INCR, cooldown
// SET) is four independent store calls, so two concurrent requests for the
// same phone can both pass before either sets the cooldown. Setting Atomic
// on a store that implements AtomicReserver closes that gap with a single
// scripted call.
type RateLimiter struct {
	store  Store
	limits Limits
	atomic bool
}

// NewRateLimiter builds a limiter over store.
func NewRateLimiter(store Store, limits Limits, atomic bool) *RateLimiter {
	if limits.DailyTTL <= 0 {
		limits.DailyTTL = 24 * time.Hour
	}
	return &RateLimiter{store: store, limits: limits, atomic: atomic}
}

// CheckAndReserve returns nil when an OTP may be issued for phone and records
// the reservation. Rejections are *RateLimitError. Timeouts fail closed.
func (l *RateLimiter) CheckAndReserve(ctx context.Context, phone string) error {
	keys := ReserveKeys{Cooldown: cooldownKey(phone), Window: windowKey(phone), Daily: dailyKey(phone)}

	if l.atomic {
		if r, ok := l.store.(AtomicReserver); ok {
			reason, retry, err := r.Reserve(ctx, keys, l.limits)
			if err != nil {
				return l.fail("reserve", err)
			}
			if reason != "" {
				return &RateLimitError{Reason: reason, RetryAfter: positive(retry)}
			}
			return nil
		}
	}

	ttl, err := l.store.TTL(ctx, keys.Cooldown)
	if err != nil {
		return l.fail("cooldown ttl", err)
	}
	if ttl > 0 {
		return &RateLimitError{Reason: ReasonCooldown, RetryAfter: ttl}
	}

	if err := l.count(ctx, keys.Window, l.limits.Window, l.limits.MaxInWindow, ReasonWindow); err != nil {
		return err
	}
	if err := l.count(ctx, keys.Daily, l.limits.DailyTTL, l.limits.DailyLimit, ReasonDaily); err != nil {
		return err
	}

	if err := l.store.Set(ctx, keys.Cooldown, "1", l.limits.ResendCooldown); err != nil {
		return l.fail("set cooldown", err)
	}
	return nil
}

// count increments key and rejects once it passes max. A counter found
// without a TTL (an earlier EXPIRE failed after its INCR) gets one again so
// it cannot block the phone forever.
func (l *RateLimiter) count(ctx context.Context, key string, ttl time.Duration, max int64, reason string) error {
	n, err := l.store.Incr(ctx, key)
	if err != nil {
		return l.fail("incr "+reason, err)
	}

	remaining := ttl
	if n > 1 {
		if remaining, err = l.store.TTL(ctx, key); err != nil {
			return l.fail("ttl "+reason, err)
		}
	}
	if n == 1 || remaining <= 0 {
		if err := l.store.Expire(ctx, key, ttl); err != nil {
			return l.fail("expire "+reason, err)
		}
		remaining = ttl
	}

	if n > max {
		return &RateLimitError{Reason: reason, RetryAfter: positive(remaining)}
	}
	return nil
}

func (l *RateLimiter) fail(op string, err error) error {
	if isTimeout(err) {
		return &RateLimitError{Reason: ReasonTimeout}
	}
	return infraError(op, err)
}

func positive(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
