// Package events publishes onboarding lifecycle events for downstream
// consumers (KYC review, risk, account ledger).
package events

import (
	"context"
	"sync"
	"time"
)

// Event types.
const (
	TypeOTPIssued        = "onboarding.otp_issued"
	TypePreuserCreated   = "onboarding.preuser_created"
	TypeCredentialsSet   = "onboarding.credentials_set"
	TypePINSet           = "onboarding.pin_set"
	TypeProfileCompleted = "onboarding.profile_completed"
	TypeRiskEvaluated    = "onboarding.risk_evaluated"
	TypeLimitedAccount   = "onboarding.limited_account_created"
	TypeKYCSubmitted     = "onboarding.kyc_submitted"
	TypeKYCApproved      = "onboarding.kyc_approved"
	TypeKYCRejected      = "onboarding.kyc_rejected"
	TypeAccountUpgraded  = "onboarding.account_upgraded"
)

// Event is the wire payload. Phone is always masked.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	RecordID   string            `json:"record_id,omitempty"`
	Phone      string            `json:"phone,omitempty"`
	State      string            `json:"state,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
