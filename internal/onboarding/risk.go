package onboarding

import (
	"context"
	"time"
)

// RiskInput carries the signals available at evaluation time.
type RiskInput struct {
	Record        Record
	OTPRetryCount int
}

// RiskEvaluator decides whether a profile may receive a limited account.
type RiskEvaluator interface {
	Evaluate(ctx context.Context, in RiskInput) (RiskDecision, error)
}

// RuleEvaluator is a fixed rule set: under-age applicants are denied and
// applicants who needed many OTP retries go to manual review.
type RuleEvaluator struct {
	MaxOTPRetries int
	MinAge        int
	Now           func() time.Time
}

// NewRuleEvaluator returns an evaluator with the given thresholds.
func NewRuleEvaluator(maxOTPRetries, minAge int) *RuleEvaluator {
	if maxOTPRetries <= 0 {
		maxOTPRetries = 3
	}
	if minAge <= 0 {
		minAge = 18
	}
	return &RuleEvaluator{MaxOTPRetries: maxOTPRetries, MinAge: minAge, Now: time.Now}
}

func (e *RuleEvaluator) Evaluate(_ context.Context, in RiskInput) (RiskDecision, error) {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	if p := in.Record.Profile; p != nil && age(p.DateOfBirth, now) < e.MinAge {
		return RiskDeny, nil
	}
	if in.OTPRetryCount > e.MaxOTPRetries {
		return RiskReview, nil
	}
	return RiskAllow, nil
}
