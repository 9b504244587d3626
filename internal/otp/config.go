package otp

import "time"

// Config holds the OTP tuning knobs shared by the issuer and guard.
type Config struct {
	CodeLength        int
	Expiry            time.Duration
	CountryCode       string
	MaxVerifyAttempts int
	VerifyWindow      time.Duration
	LockoutTTL        time.Duration
	Limits            Limits
	AtomicRateLimit   bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		CodeLength:        DefaultCodeLength,
		Expiry:            5 * time.Minute,
		CountryCode:       DefaultCountryCode,
		MaxVerifyAttempts: 5,
		VerifyWindow:      15 * time.Minute,
		LockoutTTL:        time.Hour,
		Limits:            DefaultLimits(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CodeLength <= 0 {
		c.CodeLength = d.CodeLength
	}
	if c.Expiry <= 0 {
		c.Expiry = d.Expiry
	}
	if c.CountryCode == "" {
		c.CountryCode = d.CountryCode
	}
	if c.MaxVerifyAttempts <= 0 {
		c.MaxVerifyAttempts = d.MaxVerifyAttempts
	}
	if c.VerifyWindow <= 0 {
		c.VerifyWindow = d.VerifyWindow
	}
	if c.LockoutTTL <= 0 {
		c.LockoutTTL = d.LockoutTTL
	}
	return c
}
