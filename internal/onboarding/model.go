package onboarding

import "time"

// State is the onboarding lifecycle position of a record.
type State string

const (
	StateOTPSent               State = "OTP_SENT"
	StateOTPVerified           State = "OTP_VERIFIED"
	StatePreuserCreated        State = "PREUSER_CREATED"
	StateCredentialsSet        State = "CREDENTIALS_SET"
	StateProfileComplete       State = "PROFILE_COMPLETE"
	StateRiskEvaluated         State = "RISK_EVALUATED"
	StateLimitedAccountCreated State = "LIMITED_ACCOUNT_CREATED"
	StateKYCSubmitted          State = "KYC_SUBMITTED"
	StateKYCApproved           State = "KYC_APPROVED"
	StateKYCRejected           State = "KYC_REJECTED"
	StateFullAccount           State = "FULL_ACCOUNT"
)

var stateRank = map[State]int{
	StateOTPSent:               0,
	StateOTPVerified:           1,
	StatePreuserCreated:        2,
	StateCredentialsSet:        3,
	StateProfileComplete:       4,
	StateRiskEvaluated:         5,
	StateLimitedAccountCreated: 6,
	StateKYCSubmitted:          7,
	StateKYCRejected:           8,
	StateKYCApproved:           8,
	StateFullAccount:           9,
}

// lifecycle orders every state for stable iteration.
var lifecycle = []State{
	StateOTPSent,
	StateOTPVerified,
	StatePreuserCreated,
	StateCredentialsSet,
	StateProfileComplete,
	StateRiskEvaluated,
	StateLimitedAccountCreated,
	StateKYCSubmitted,
	StateKYCRejected,
	StateKYCApproved,
	StateFullAccount,
}

// transitions lists every legal move. Same-state entries allow field
// updates (PIN) that do not advance the lifecycle.
var transitions = map[State][]State{
	StateOTPSent:               {StateOTPVerified, StatePreuserCreated},
	StateOTPVerified:           {StatePreuserCreated, StateCredentialsSet},
	StatePreuserCreated:        {StateCredentialsSet},
	StateCredentialsSet:        {StateCredentialsSet, StateProfileComplete},
	StateProfileComplete:       {StateProfileComplete, StateRiskEvaluated},
	StateRiskEvaluated:         {StateRiskEvaluated, StateLimitedAccountCreated},
	StateLimitedAccountCreated: {StateLimitedAccountCreated, StateKYCSubmitted},
	StateKYCSubmitted:          {StateKYCSubmitted, StateKYCApproved, StateKYCRejected},
	StateKYCRejected:           {StateKYCRejected, StateKYCSubmitted},
	StateKYCApproved:           {StateKYCApproved, StateFullAccount},
	StateFullAccount:           {StateFullAccount},
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := stateRank[s]
	return ok
}

// AtLeast reports whether s is at or beyond o in the lifecycle.
func (s State) AtLeast(o State) bool {
	return s.Valid() && stateRank[s] >= stateRank[o]
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RiskDecision is the outcome of risk evaluation.
type RiskDecision string

const (
	RiskAllow  RiskDecision = "ALLOW"
	RiskReview RiskDecision = "REVIEW"
	RiskDeny   RiskDecision = "DENY"
)

// KYCStatus tracks document review.
type KYCStatus string

const (
	KYCPending  KYCStatus = "PENDING"
	KYCApproved KYCStatus = "APPROVED"
	KYCRejected KYCStatus = "REJECTED"
)

// Profile is the write-once personal details block.
type Profile struct {
	FirstName    string
	LastName     string
	DateOfBirth  time.Time
	Gender       string
	PAN          string
	AddressLine1 string
	AddressLine2 string
	City         string
	Region       string
	Pincode      string
	Country      string
	CompletedAt  time.Time
}

// KYC holds the current submission cycle.
type KYC struct {
	Status          KYCStatus
	DocumentType    string
	DocumentNumber  string
	DocumentPath    string
	Attempt         int
	SubmittedAt     *time.Time
	VerifiedAt      *time.Time
	VerifiedBy      string
	RejectionReason string
}

// Record is the durable onboarding aggregate keyed by phone.
type Record struct {
	ID                 string
	Phone              string
	State              State
	HashedPassword     string
	HashedPIN          string
	Profile            *Profile
	RiskDecision       RiskDecision
	RiskEvaluatedAt    *time.Time
	AccountID          string
	KYC                KYC
	RecoveryCodeHashes []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// KYCSubmission is the write-once document block of one submission cycle.
type KYCSubmission struct {
	DocumentType   string
	DocumentNumber string
	DocumentPath   string
	Attempt        int
	SubmittedAt    time.Time
}

// KYCReview records an admin decision on the current submission.
type KYCReview struct {
	Status     KYCStatus
	VerifiedAt time.Time
	VerifiedBy string
	Reason     string
}

// Patch lists the fields an UpdateState call writes together with the state
// change. Nil fields are left untouched. HashedPassword, HashedPIN, Profile,
// AccountID and KYCSubmission are write-once: the update only applies while
// the stored column is still empty (for KYCSubmission: no submission pending
// or the previous one was rejected). ExpectRiskDecision, when set, adds a
// compare on the stored decision; an empty value means none recorded yet.
type Patch struct {
	ExpectRiskDecision *RiskDecision
	HashedPassword     *string
	HashedPIN          *string
	Profile            *Profile
	RiskDecision       *RiskDecision
	RiskEvaluatedAt    *time.Time
	AccountID          *string
	KYCSubmission      *KYCSubmission
	KYCReview          *KYCReview
	RecoveryCodeHashes []string
}

func cloneRecord(r Record) Record {
	if r.Profile != nil {
		p := *r.Profile
		r.Profile = &p
	}
	if r.RiskEvaluatedAt != nil {
		t := *r.RiskEvaluatedAt
		r.RiskEvaluatedAt = &t
	}
	if r.KYC.SubmittedAt != nil {
		t := *r.KYC.SubmittedAt
		r.KYC.SubmittedAt = &t
	}
	if r.KYC.VerifiedAt != nil {
		t := *r.KYC.VerifiedAt
		r.KYC.VerifiedAt = &t
	}
	if r.RecoveryCodeHashes != nil {
		r.RecoveryCodeHashes = append([]string(nil), r.RecoveryCodeHashes...)
	}
	return r
}
