// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OTPIssued counts challenges stored, by purpose.
	OTPIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_otp_issued_total",
		Help: "The total number of OTP challenges issued",
	}, []string{"purpose"})

	// OTPRateLimited counts issuance rejections, by limit reason.
	OTPRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_otp_rate_limited_total",
		Help: "The total number of OTP requests rejected by the rate limiter",
	}, []string{"reason"})

	// OTPVerifications counts verification outcomes (success, mismatch, expired, locked, error).
	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_otp_verifications_total",
		Help: "The total number of OTP verification attempts by outcome",
	}, []string{"purpose", "outcome"})

	// OTPLockouts counts locks set after repeated failures.
	OTPLockouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_otp_lockouts_total",
		Help: "The total number of verification lockouts",
	}, []string{"purpose"})

	// SMSDeliveries counts delivery attempts by status.
	SMSDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_sms_deliveries_total",
		Help: "The total number of SMS delivery attempts by status",
	}, []string{"status"})

	// Transitions counts onboarding state transitions by target state and result.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "onboarding_transitions_total",
		Help: "The total number of onboarding state transitions",
	}, []string{"step", "result"})

	// RequestDuration tracks HTTP request latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "onboarding_http_request_duration_seconds",
		Help:    "The request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)
