package otp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var (
	// ErrRateLimited is matched by every *RateLimitError.
	ErrRateLimited = errors.New("otp rate limit exceeded")

	// ErrExpired covers both a challenge that was never issued and one whose
	// TTL elapsed.
	ErrExpired = errors.New("otp expired or not issued")

	// ErrMismatch is matched by every *MismatchError.
	ErrMismatch = errors.New("otp mismatch")

	// ErrLocked is matched by every *LockedError.
	ErrLocked = errors.New("otp verification locked")

	// ErrInvalidPhone rejects numbers that cannot be normalized.
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrInvalidPurpose rejects unknown challenge purposes.
	ErrInvalidPurpose = errors.New("invalid otp purpose")

	// ErrMissingSecret is returned when the digest key is not configured.
	ErrMissingSecret = errors.New("otp: secret is required")

	// ErrInfrastructure tags ephemeral store transport failures.
	ErrInfrastructure = errors.New("otp store unavailable")
)

// Rate limit reasons.
const (
	ReasonCooldown = "cooldown"
	ReasonWindow   = "window"
	ReasonDaily    = "daily"
	ReasonTimeout  = "timeout"
)

// RateLimitError reports which limit rejected an issuance and how long the
// caller should wait. RetryAfter is zero when no hint is available.
type RateLimitError struct {
	Reason     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	switch e.Reason {
	case ReasonCooldown:
		return fmt.Sprintf("please wait %d seconds before requesting another OTP", seconds(e.RetryAfter))
	case ReasonWindow:
		return "too many OTP requests, please try again later"
	case ReasonDaily:
		return "daily OTP limit reached, please try again tomorrow"
	default:
		return "otp issuance unavailable, please try again later"
	}
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// MismatchError carries the failed attempt count for client messaging.
type MismatchError struct {
	Attempt int
	Max     int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("invalid otp, attempt %d of %d", e.Attempt, e.Max)
}

func (e *MismatchError) Is(target error) bool { return target == ErrMismatch }

// LockedError reports a verification lockout with the remaining lock time.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("too many failed attempts, try again in %d seconds", seconds(e.RetryAfter))
	}
	return "too many failed attempts, try again later"
}

func (e *LockedError) Is(target error) bool { return target == ErrLocked }

func seconds(d time.Duration) int64 {
	s := int64(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}

// isTimeout reports whether err came from an expired deadline rather than a
// broken connection.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func infraError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInfrastructure, op, err)
}
