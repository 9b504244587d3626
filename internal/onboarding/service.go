package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/congo-pay/onboarding/internal/account"
	"github.com/congo-pay/onboarding/internal/credential"
	"github.com/congo-pay/onboarding/internal/events"
	"github.com/congo-pay/onboarding/internal/kyc"
	"github.com/congo-pay/onboarding/internal/metrics"
	"github.com/congo-pay/onboarding/internal/notification"
	"github.com/congo-pay/onboarding/internal/otp"
)

const (
	recoveryCodeCount    = 8
	maxDocumentNumberLen = 50
)

// Deps lists the collaborators of the state machine. Repo, Issuer, Guard,
// Hashers and Accounts are required.
type Deps struct {
	Repo        Repository
	Issuer      *otp.Issuer
	Guard       *otp.Guard
	Hashers     *credential.Set
	Accounts    *account.Service
	Documents   kyc.DocumentStore
	SMS         notification.Sender
	Events      events.Publisher
	Risk        RiskEvaluator
	Logger      *slog.Logger
	CountryCode string
}

// Service drives a phone number through the onboarding lifecycle. Each
// method is one guarded transition persisted with a compare-and-set on the
// state it observed.
type Service struct {
	repo        Repository
	issuer      *otp.Issuer
	guard       *otp.Guard
	hashers     *credential.Set
	accounts    *account.Service
	documents   kyc.DocumentStore
	sms         notification.Sender
	events      events.Publisher
	risk        RiskEvaluator
	logger      *slog.Logger
	tracer      trace.Tracer
	countryCode string
	now         func() time.Time
}

// NewService validates deps and builds the state machine.
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Repo == nil:
		return nil, fmt.Errorf("onboarding repository is required")
	case d.Issuer == nil || d.Guard == nil:
		return nil, fmt.Errorf("otp issuer and guard are required")
	case d.Hashers == nil:
		return nil, fmt.Errorf("credential hashers are required")
	case d.Accounts == nil:
		return nil, fmt.Errorf("account service is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Documents == nil {
		d.Documents = kyc.NewMemoryStore()
	}
	if d.SMS == nil {
		d.SMS = notification.NewLogSender(d.Logger)
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Risk == nil {
		d.Risk = NewRuleEvaluator(0, 0)
	}
	if d.CountryCode == "" {
		d.CountryCode = otp.DefaultCountryCode
	}
	return &Service{
		repo:        d.Repo,
		issuer:      d.Issuer,
		guard:       d.Guard,
		hashers:     d.Hashers,
		accounts:    d.Accounts,
		documents:   d.Documents,
		sms:         d.SMS,
		events:      d.Events,
		risk:        d.Risk,
		logger:      d.Logger.With("component", "onboarding"),
		tracer:      otel.Tracer("github.com/congo-pay/onboarding/internal/onboarding"),
		countryCode: d.CountryCode,
		now:         time.Now,
	}, nil
}

// SubmitResult describes an issued signup challenge.
type SubmitResult struct {
	Phone     string
	State     State
	ExpiresIn time.Duration
	// Delivered is false when the SMS provider failed. The challenge is
	// stored regardless and the client may ask for a resend after cooldown.
	Delivered bool
}

// SubmitPhone issues a signup OTP and records the phone at OTP_SENT.
func (s *Service) SubmitPhone(ctx context.Context, phone string) (res SubmitResult, err error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.SubmitPhone")
	defer func() { endSpan(span, err) }()

	challenge, err := s.issuer.Issue(ctx, phone, otp.PurposeSignup)
	if err != nil {
		return SubmitResult{}, err
	}

	rec, err := s.repo.UpsertByPhone(ctx, challenge.Phone, StateOTPSent)
	if err != nil {
		return SubmitResult{}, storeError("upsert record", err)
	}

	minutes := int(challenge.ExpiresIn / time.Minute)
	message := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", challenge.Code, minutes)
	delivered := true
	if err := s.sms.Send(ctx, challenge.Phone, message); err != nil {
		delivered = false
		metrics.SMSDeliveries.WithLabelValues("failed").Inc()
		s.logger.Warn("otp delivery failed", "phone", otp.MaskPhone(challenge.Phone), "error", err)
	} else {
		metrics.SMSDeliveries.WithLabelValues("sent").Inc()
	}

	s.publish(ctx, events.TypeOTPIssued, rec, map[string]string{"delivered": strconv.FormatBool(delivered)})
	return SubmitResult{Phone: challenge.Phone, State: rec.State, ExpiresIn: challenge.ExpiresIn, Delivered: delivered}, nil
}

// VerifyOtpAndCreatePreuser consumes the signup challenge and upserts the
// record at PREUSER_CREATED. Verifying again later with a fresh code returns
// the same record.
func (s *Service) VerifyOtpAndCreatePreuser(ctx context.Context, phone, code string) (rec Record, err error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.VerifyOtpAndCreatePreuser")
	defer func() { endSpan(span, err) }()

	normalized, err := s.guard.Verify(ctx, phone, otp.PurposeSignup, code)
	if err != nil {
		return Record{}, err
	}

	before, err := s.repo.GetByPhone(ctx, normalized)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Record{}, storeError("get record", err)
	}
	rec, err = s.repo.UpsertByPhone(ctx, normalized, StatePreuserCreated)
	if err != nil {
		metrics.Transitions.WithLabelValues(string(StatePreuserCreated), "error").Inc()
		return Record{}, storeError("upsert record", err)
	}
	if before.ID == "" || reconcile(before.State, StatePreuserCreated) {
		metrics.Transitions.WithLabelValues(string(StatePreuserCreated), "ok").Inc()
		s.publish(ctx, events.TypePreuserCreated, rec, nil)
	}
	return rec, nil
}

// SetPassword stores the login password hash. It is write-once.
func (s *Service) SetPassword(ctx context.Context, phone, password string) (rec Record, err error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.SetPassword")
	defer func() { endSpan(span, err) }()

	if err := checkPassword(password); err != nil {
		return Record{}, err
	}
	rec, err = s.byPhone(ctx, phone)
	if err != nil {
		return Record{}, err
	}
	if err := passwordAllowed(rec); err != nil {
		return Record{}, s.reject(string(StateCredentialsSet), err)
	}

	hash, err := s.hashers.Password.Hash(password)
	if err != nil {
		return Record{}, err
	}
	rec, err = s.commit(ctx, rec, StateCredentialsSet, Patch{HashedPassword: &hash}, passwordAllowed)
	if err != nil {
		return Record{}, err
	}
	s.publish(ctx, events.TypeCredentialsSet, rec, nil)
	return rec, nil
}

func passwordAllowed(rec Record) error {
	if rec.HashedPassword != "" {
		return ErrCredentialsAlreadySet
	}
	if rec.State != StatePreuserCreated && rec.State != StateOTPVerified {
		return &StateError{Current: rec.State, Expected: []State{StatePreuserCreated}}
	}
	return nil
}

// SetPin stores the transaction PIN hash. It is write-once and does not
// change the lifecycle state.
func (s *Service) SetPin(ctx context.Context, phone, pin string) (rec Record, err error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.SetPin")
	defer func() { endSpan(span, err) }()

	if err := checkPIN(pin); err != nil {
		return Record{}, err
	}
	rec, err = s.byPhone(ctx, phone)
	if err != nil {
		return Record{}, err
	}
	if err := pinAllowed(rec); err != nil {
		return Record{}, s.reject("PIN", err)
	}

	hash, err := s.hashers.PIN.Hash(pin)
	if err != nil {
		return Record{}, err
	}
	rec, err = s.commitStep(ctx, "PIN", rec, rec.State, Patch{HashedPIN: &hash}, pinAllowed)
	if err != nil {
		return Record{}, err
	}
	s.publish(ctx, events.TypePINSet, rec, nil)
	return rec, nil
}

func pinAllowed(rec Record) error {
	if rec.HashedPIN != "" {
		return ErrPINAlreadySet
	}
	if !rec.State.AtLeast(StateCredentialsSet) {
		return &StateError{Current: rec.State, Expected: []State{StateCredentialsSet}}
	}
	return nil
}

// CompleteProfile validates and stores the personal details block.
func (s *Service) CompleteProfile(ctx context.Context, phone string, in ProfileInput) (rec Record, err error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.CompleteProfile")
	defer func() { endSpan(span, err) }()

	profile, err := in.toProfile(s.now())
	if err != nil {
		return Record{}, err
	}
	rec, err = s.byPhone(ctx, phone)
	if err != nil {
		return Record{}, err
	}
	if err := profileAllowed(rec); err != nil {
		return Record{}, s.reject(string(StateProfileComplete), err)
	}

	rec, err = s.commit(ctx, rec, StateProfileComplete, Patch{Profile: &profile}, profileAllowed)
	if err != nil {
		return Record{}, err
	}
	s.publish(ctx, events.TypeProfileCompleted, rec, nil)
	return rec, nil
}

func profileAllowed(rec Record) error {
	if rec.Profile != nil {
		return ErrProfileAlreadyCompleted
	}
	if rec.State != StateCredentialsSet {
		return &StateError{Current: rec.State, Expected: []State{StateCredentialsSet}}
	}
	return nil
}

// EvaluateRisk runs the risk rules and stores the decision. A REVIEW
// decision may be evaluated again.
func (s *Service) EvaluateRisk(ctx context.Context, phone string, otpRetryCount int) (rec Record, err error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.EvaluateRisk")
	defer func() { endSpan(span, err) }()

	if otpRetryCount < 0 {
		return Record{}, invalid("otp_retry_count", "must not be negative")
	}
	rec, err = s.byPhone(ctx, phone)
	if err != nil {
		return Record{}, err
	}
	if err := riskAllowed(rec); err != nil {
		return Record{}, s.reject(string(StateRiskEvaluated), err)
	}

	decision, err := s.risk.Evaluate(ctx, RiskInput{Record: rec, OTPRetryCount: otpRetryCount})
	if err != nil {
		return Record{}, fmt.Errorf("evaluate risk: %w", err)
	}
	at := s.now().UTC()
	observed := rec.RiskDecision
	rec, err = s.commit(ctx, rec, StateRiskEvaluated, Patch{
		ExpectRiskDecision: &observed,
		RiskDecision:       &decision,
		RiskEvaluatedAt:    &at,
	}, riskAllowed)
	if err != nil {
		return Record{}, err
	}
	span.SetAttributes(attribute.String("risk.decision", string(decision)))
	s.logger.Info("risk evaluated", "record_id", rec.ID, "decision", decision)
	s.publish(ctx, events.TypeRiskEvaluated, rec, map[string]string{"decision": string(decision)})
	return rec, nil
}

func riskAllowed(rec Record) error {
	if rec.State == StateProfileComplete || (rec.State == StateRiskEvaluated && rec.RiskDecision == RiskReview) {
		return nil
	}
	return &StateError{Current: rec.State, Expected: []State{StateProfileComplete}}
}

// CreateLimitedAccount provisions a LIMITED account for an ALLOW decision.
// userRef is the onboarding record id.
func (s *Service) CreateLimitedAccount(ctx context.Context, userRef string) (rec Record, acct account.Account, err error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.CreateLimitedAccount")
	defer func() { endSpan(span, err) }()

	rec, err = s.byID(ctx, userRef)
	if err != nil {
		return Record{}, account.Account{}, err
	}
	if err := accountAllowed(rec); err != nil {
		return Record{}, account.Account{}, s.reject(string(StateLimitedAccountCreated), err)
	}

	acct, err = s.accounts.CreateLimited(ctx, rec.ID)
	if err != nil {
		return Record{}, account.Account{}, storeError("create account", err)
	}
	rec, err = s.commit(ctx, rec, StateLimitedAccountCreated, Patch{AccountID: &acct.ID}, accountAllowed)
	if err != nil {
		return Record{}, account.Account{}, err
	}
	s.publish(ctx, events.TypeLimitedAccount, rec, map[string]string{"account_id": acct.ID, "tier": acct.Tier})
	return rec, acct, nil
}

func accountAllowed(rec Record) error {
	if rec.State.AtLeast(StateLimitedAccountCreated) {
		return &StateError{Current: rec.State, Expected: []State{StateRiskEvaluated}}
	}
	if rec.State != StateRiskEvaluated || rec.RiskDecision != RiskAllow {
		return ErrRiskNotApproved
	}
	return nil
}

// SubmitKyc records a document submission. upload is optional; when present
// the file is stored before the state changes. A rejected submission may be
// replaced by a new one.
func (s *Service) SubmitKyc(ctx context.Context, userRef, docType, docNumber string, upload *kyc.Upload) (rec Record, err error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.SubmitKyc")
	defer func() { endSpan(span, err) }()

	docType = strings.ToLower(strings.TrimSpace(docType))
	if !DocumentTypes[docType] {
		return Record{}, invalid("document_type", "unsupported document type")
	}
	docNumber = strings.TrimSpace(docNumber)
	if docNumber == "" || len(docNumber) > maxDocumentNumberLen {
		return Record{}, invalid("document_number", "must be 1 to 50 characters")
	}

	rec, err = s.byID(ctx, userRef)
	if err != nil {
		return Record{}, err
	}
	if err := kycAllowed(rec); err != nil {
		return Record{}, s.reject(string(StateKYCSubmitted), err)
	}

	var path string
	if upload != nil {
		path, err = s.documents.Put(ctx, rec.ID, docType, *upload)
		switch {
		case errors.Is(err, kyc.ErrDocumentTooLarge), errors.Is(err, kyc.ErrUnsupportedContentType):
			return Record{}, invalid("document", err.Error())
		case err != nil:
			return Record{}, fmt.Errorf("%w: store document: %v", ErrInfrastructure, err)
		}
	}

	submission := KYCSubmission{
		DocumentType:   docType,
		DocumentNumber: docNumber,
		DocumentPath:   path,
		Attempt:        rec.KYC.Attempt + 1,
		SubmittedAt:    s.now().UTC(),
	}
	rec, err = s.commit(ctx, rec, StateKYCSubmitted, Patch{KYCSubmission: &submission}, kycAllowed)
	if err != nil {
		return Record{}, err
	}
	s.publish(ctx, events.TypeKYCSubmitted, rec, map[string]string{
		"document_type": docType,
		"attempt":       strconv.Itoa(submission.Attempt),
	})
	return rec, nil
}

func kycAllowed(rec Record) error {
	switch rec.State {
	case StateLimitedAccountCreated, StateKYCRejected:
		return nil
	case StateKYCSubmitted, StateKYCApproved, StateFullAccount:
		return ErrKYCAlreadySubmitted
	}
	return &StateError{Current: rec.State, Expected: []State{StateLimitedAccountCreated, StateKYCRejected}}
}

// ApproveKyc marks the pending submission approved.
func (s *Service) ApproveKyc(ctx context.Context, userRef, adminID string) (Record, error) {
	return s.review(ctx, userRef, adminID, KYCApproved, "")
}

// RejectKyc marks the pending submission rejected. The user may resubmit.
func (s *Service) RejectKyc(ctx context.Context, userRef, adminID, reason string) (Record, error) {
	return s.review(ctx, userRef, adminID, KYCRejected, reason)
}

func (s *Service) review(ctx context.Context, userRef, adminID string, status KYCStatus, reason string) (rec Record, err error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.ReviewKyc", trace.WithAttributes(attribute.String("kyc.status", string(status))))
	defer func() { endSpan(span, err) }()

	adminID = strings.TrimSpace(adminID)
	if adminID == "" {
		return Record{}, invalid("admin_id", "required")
	}
	next, eventType := StateKYCApproved, events.TypeKYCApproved
	if status == KYCRejected {
		next, eventType = StateKYCRejected, events.TypeKYCRejected
	}

	rec, err = s.byID(ctx, userRef)
	if err != nil {
		return Record{}, err
	}
	if err := reviewAllowed(rec); err != nil {
		return Record{}, s.reject(string(next), err)
	}

	patch := Patch{KYCReview: &KYCReview{
		Status:     status,
		VerifiedAt: s.now().UTC(),
		VerifiedBy: adminID,
		Reason:     strings.TrimSpace(reason),
	}}
	rec, err = s.commit(ctx, rec, next, patch, reviewAllowed)
	if err != nil {
		return Record{}, err
	}
	s.logger.Info("kyc reviewed", "record_id", rec.ID, "status", status, "admin_id", adminID)
	s.publish(ctx, eventType, rec, map[string]string{"admin_id": adminID})
	return rec, nil
}

func reviewAllowed(rec Record) error {
	if rec.State != StateKYCSubmitted {
		return &StateError{Current: rec.State, Expected: []State{StateKYCSubmitted}}
	}
	return nil
}

// UpgradeResult is returned once per upgrade. RecoveryCodes are plain text
// and are not retrievable afterwards.
type UpgradeResult struct {
	Record        Record
	Account       account.Account
	RecoveryCodes []string
}

// UpgradeToFull lifts the account tier limit after KYC approval.
func (s *Service) UpgradeToFull(ctx context.Context, accountRef string) (res UpgradeResult, err error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.UpgradeToFull")
	defer func() { endSpan(span, err) }()

	acct, err := s.accounts.Get(ctx, accountRef)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return UpgradeResult{}, ErrNotFound
		}
		return UpgradeResult{}, storeError("get account", err)
	}
	rec, err := s.byID(ctx, acct.UserID)
	if err != nil {
		return UpgradeResult{}, err
	}
	if err := upgradeAllowed(rec); err != nil {
		return UpgradeResult{}, s.reject(string(StateFullAccount), err)
	}

	plain, hashed, err := s.hashers.IssueSecrets(recoveryCodeCount)
	if err != nil {
		return UpgradeResult{}, err
	}
	acct, err = s.accounts.UpgradeToFull(ctx, acct.ID)
	if err != nil {
		return UpgradeResult{}, storeError("upgrade account", err)
	}
	rec, err = s.commit(ctx, rec, StateFullAccount, Patch{RecoveryCodeHashes: hashed}, upgradeAllowed)
	if err != nil {
		return UpgradeResult{}, err
	}
	s.publish(ctx, events.TypeAccountUpgraded, rec, map[string]string{"account_id": acct.ID, "tier": acct.Tier})
	return UpgradeResult{Record: rec, Account: acct, RecoveryCodes: plain}, nil
}

func upgradeAllowed(rec Record) error {
	if rec.State != StateKYCApproved {
		return &StateError{Current: rec.State, Expected: []State{StateKYCApproved}}
	}
	return nil
}

// VerifyPassword checks a login password. Stale hashes are upgraded to the
// current parameters on success.
func (s *Service) VerifyPassword(ctx context.Context, phone, password string) (rec Record, err error) {
	ctx, span := s.tracer.Start(ctx, "onboarding.VerifyPassword")
	defer func() { endSpan(span, err) }()

	rec, err = s.byPhone(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return Record{}, ErrInvalidCredentials
	}
	if err != nil {
		return Record{}, err
	}
	if rec.HashedPassword == "" || !s.hashers.Password.Verify(password, rec.HashedPassword) {
		return Record{}, ErrInvalidCredentials
	}

	if s.hashers.Password.NeedsRehash(rec.HashedPassword) {
		fresh, err := s.hashers.Password.Hash(password)
		if err != nil {
			s.logger.Warn("rehash password", "record_id", rec.ID, "error", err)
			return rec, nil
		}
		if err := s.repo.ReplacePasswordHash(ctx, rec.ID, rec.HashedPassword, fresh); err != nil {
			s.logger.Warn("store rehashed password", "record_id", rec.ID, "error", err)
			return rec, nil
		}
		rec.HashedPassword = fresh
	}
	return rec, nil
}

// Status is the client-facing summary of a record.
type Status struct {
	RecordID     string
	Phone        string
	State        State
	RiskDecision RiskDecision
	AccountID    string
	Tier         string
	KYCStatus    KYCStatus
	KYCAttempt   int
}

// GetStatus returns where phone is in the lifecycle.
func (s *Service) GetStatus(ctx context.Context, phone string) (Status, error) {
	rec, err := s.byPhone(ctx, phone)
	if err != nil {
		return Status{}, err
	}
	st := Status{
		RecordID:     rec.ID,
		Phone:        rec.Phone,
		State:        rec.State,
		RiskDecision: rec.RiskDecision,
		AccountID:    rec.AccountID,
		KYCStatus:    rec.KYC.Status,
		KYCAttempt:   rec.KYC.Attempt,
	}
	if rec.AccountID != "" {
		acct, err := s.accounts.Get(ctx, rec.AccountID)
		if err != nil {
			return Status{}, storeError("get account", err)
		}
		st.Tier = acct.Tier
	}
	return st, nil
}

func (s *Service) byPhone(ctx context.Context, phone string) (Record, error) {
	normalized, err := otp.NormalizePhone(phone, s.countryCode)
	if err != nil {
		return Record{}, err
	}
	rec, err := s.repo.GetByPhone(ctx, normalized)
	if err != nil {
		return Record{}, storeError("get record", err)
	}
	return rec, nil
}

func (s *Service) byID(ctx context.Context, id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, ErrNotFound
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Record{}, storeError("get record", err)
	}
	return rec, nil
}

func (s *Service) commit(ctx context.Context, rec Record, next State, patch Patch, allowed func(Record) error) (Record, error) {
	return s.commitStep(ctx, string(next), rec, next, patch, allowed)
}

// commitStep persists rec.State -> next. A compare-and-set miss is
// re-checked against the fresh record so the caller sees the same error an
// out-of-order call would get.
func (s *Service) commitStep(ctx context.Context, step string, rec Record, next State, patch Patch, allowed func(Record) error) (Record, error) {
	if !CanTransition(rec.State, next) {
		return Record{}, s.reject(step, &StateError{Current: rec.State, Expected: previous(next)})
	}

	updated, err := s.repo.UpdateState(ctx, rec.ID, rec.State, next, patch)
	if err == nil {
		metrics.Transitions.WithLabelValues(step, "ok").Inc()
		s.logger.Info("onboarding transition", "record_id", rec.ID, "phone", otp.MaskPhone(rec.Phone), "from", rec.State, "to", next)
		return updated, nil
	}
	if !errors.Is(err, ErrConflict) {
		metrics.Transitions.WithLabelValues(step, "error").Inc()
		return Record{}, storeError("update state", err)
	}

	current, gerr := s.repo.GetByID(ctx, rec.ID)
	if gerr != nil {
		metrics.Transitions.WithLabelValues(step, "error").Inc()
		return Record{}, storeError("reload record", gerr)
	}
	s.logger.Info("onboarding transition lost race", "record_id", rec.ID, "from", rec.State, "to", next, "current", current.State)
	if aerr := allowed(current); aerr != nil {
		return Record{}, s.reject(step, aerr)
	}
	return Record{}, s.reject(step, &StateError{Current: current.State, Expected: []State{rec.State}})
}

func (s *Service) reject(step string, err error) error {
	metrics.Transitions.WithLabelValues(step, "rejected").Inc()
	return err
}

// previous lists the states that may move into next, in lifecycle order.
func previous(next State) []State {
	var out []State
	for _, from := range lifecycle {
		if from != next && CanTransition(from, next) {
			out = append(out, from)
		}
	}
	return out
}

func (s *Service) publish(ctx context.Context, eventType string, rec Record, attrs map[string]string) {
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		RecordID:   rec.ID,
		Phone:      otp.MaskPhone(rec.Phone),
		State:      string(rec.State),
		Attributes: attrs,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("publish onboarding event", "type", eventType, "record_id", rec.ID, "error", err)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
