package otp

import (
	"context"
	"time"
)

// Store is the ephemeral key-value contract the OTP core depends on. Every
// call may block on I/O and must honour ctx.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr creates the key at zero when missing and increments it atomically.
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	// TTL returns the remaining lifetime, or a non-positive duration when the
	// key is missing or has no expiry.
	TTL(ctx context.Context, key string) (time.Duration, error)
	Delete(ctx context.Context, keys ...string) error
}

// ReserveKeys names the three per-phone rate limit counters.
type ReserveKeys struct {
	Cooldown string
	Window   string
	Daily    string
}

// AtomicReserver is implemented by stores able to run the whole
// cooldown/window/daily sequence as one atomic operation.
type AtomicReserver interface {
	Reserve(ctx context.Context, keys ReserveKeys, limits Limits) (reason string, retryAfter time.Duration, err error)
}
