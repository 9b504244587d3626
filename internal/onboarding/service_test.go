package onboarding

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/onboarding/internal/account"
	"github.com/congo-pay/onboarding/internal/credential"
	"github.com/congo-pay/onboarding/internal/events"
	"github.com/congo-pay/onboarding/internal/kyc"
	"github.com/congo-pay/onboarding/internal/logging"
	"github.com/congo-pay/onboarding/internal/notification"
	"github.com/congo-pay/onboarding/internal/otp"
)

const (
	testPhone      = "9876543210"
	testNormalized = "+919876543210"
	testPassword   = "StrongPass1!"
)

var (
	cheapParams = credential.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	codePattern = regexp.MustCompile(`\b\d{6}\b`)
)

type harness struct {
	svc      *Service
	deps     Deps
	repo     Repository
	mr       *miniredis.Miniredis
	sms      *notification.MemorySender
	events   *events.Recorder
	docs     *kyc.MemoryStore
	accounts *account.Service
	hashers  *credential.Set
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := otp.NewRedisStore(client, time.Second)
	digester, err := otp.NewDigester("otp-test-secret")
	require.NoError(t, err)
	cfg := otp.DefaultConfig()
	logger := logging.Discard()
	limiter := otp.NewRateLimiter(store, cfg.Limits, false)

	hashers, err := credential.NewSetWithParams("test-pepper", cheapParams, cheapParams, cheapParams)
	require.NoError(t, err)

	h := &harness{
		repo:     NewMemoryRepository(),
		mr:       mr,
		sms:      notification.NewMemorySender(),
		events:   &events.Recorder{},
		docs:     kyc.NewMemoryStore(),
		accounts: account.NewService(account.NewMemoryRepository(), 0),
		hashers:  hashers,
	}
	h.deps = Deps{
		Repo:      h.repo,
		Issuer:    otp.NewIssuer(store, limiter, digester, cfg, logger),
		Guard:     otp.NewGuard(store, digester, cfg, logger),
		Hashers:   hashers,
		Accounts:  h.accounts,
		Documents: h.docs,
		SMS:       h.sms,
		Events:    h.events,
		Logger:    logger,
	}
	h.svc, err = NewService(h.deps)
	require.NoError(t, err)
	return h
}

// lastCode extracts the code from the most recent SMS to phone.
func (h *harness) lastCode(t *testing.T, phone string) string {
	t.Helper()
	msg, ok := h.sms.Last(phone)
	require.True(t, ok, "no sms for %s", phone)
	code := codePattern.FindString(msg.Body)
	require.NotEmpty(t, code, "no code in %q", msg.Body)
	return code
}

func (h *harness) preuser(t *testing.T) Record {
	t.Helper()
	ctx := context.Background()
	_, err := h.svc.SubmitPhone(ctx, testPhone)
	require.NoError(t, err)
	rec, err := h.svc.VerifyOtpAndCreatePreuser(ctx, testPhone, h.lastCode(t, testNormalized))
	require.NoError(t, err)
	return rec
}

func validProfile() ProfileInput {
	return ProfileInput{
		FirstName:    "Asha",
		LastName:     "Rao",
		DateOfBirth:  "1990-04-12",
		Gender:       "female",
		PAN:          "abcde1234f",
		AddressLine1: "12 MG Road",
		City:         "Bengaluru",
		Region:       "Karnataka",
		Pincode:      "560001",
	}
}

// limited drives a fresh phone to LIMITED_ACCOUNT_CREATED.
func (h *harness) limited(t *testing.T) (Record, account.Account) {
	t.Helper()
	ctx := context.Background()
	h.preuser(t)
	_, err := h.svc.SetPassword(ctx, testPhone, testPassword)
	require.NoError(t, err)
	_, err = h.svc.CompleteProfile(ctx, testPhone, validProfile())
	require.NoError(t, err)
	rec, err := h.svc.EvaluateRisk(ctx, testPhone, 0)
	require.NoError(t, err)
	require.Equal(t, RiskAllow, rec.RiskDecision)
	rec, acct, err := h.svc.CreateLimitedAccount(ctx, rec.ID)
	require.NoError(t, err)
	return rec, acct
}

func TestHappyPathToCredentials(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.svc.SubmitPhone(ctx, testPhone)
	if err != nil {
		t.Fatalf("submit phone: %v", err)
	}
	if res.State != StateOTPSent || res.Phone != testNormalized || !res.Delivered {
		t.Fatalf("unexpected submit result %+v", res)
	}

	rec, err := h.svc.VerifyOtpAndCreatePreuser(ctx, testPhone, h.lastCode(t, testNormalized))
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if rec.State != StatePreuserCreated {
		t.Fatalf("expected PREUSER_CREATED, got %s", rec.State)
	}

	rec, err = h.svc.SetPassword(ctx, testPhone, testPassword)
	if err != nil {
		t.Fatalf("set password: %v", err)
	}
	if rec.State != StateCredentialsSet {
		t.Fatalf("expected CREDENTIALS_SET, got %s", rec.State)
	}
	if rec.HashedPassword == "" || rec.HashedPassword == testPassword {
		t.Fatalf("password must be stored hashed")
	}
	if !h.hashers.Password.Verify(testPassword, rec.HashedPassword) {
		t.Fatalf("stored hash does not verify")
	}

	assert.Equal(t, []string{events.TypeOTPIssued, events.TypePreuserCreated, events.TypeCredentialsSet}, h.events.Types())
}

func TestSubmitPhoneCooldown(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.SubmitPhone(ctx, testPhone)
	require.NoError(t, err)

	_, err = h.svc.SubmitPhone(ctx, testPhone)
	var rl *otp.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.True(t, errors.Is(err, otp.ErrRateLimited))
	assert.Equal(t, otp.ReasonCooldown, rl.Reason)
	assert.Greater(t, rl.RetryAfter, time.Duration(0))
}

func TestSubmitPhoneDeliveryFailureIsNonFatal(t *testing.T) {
	h := newHarness(t)
	h.sms.Fail = true
	ctx := context.Background()

	res, err := h.svc.SubmitPhone(ctx, testPhone)
	require.NoError(t, err)
	assert.False(t, res.Delivered)

	rec, err := h.svc.VerifyOtpAndCreatePreuser(ctx, testPhone, h.lastCode(t, testNormalized))
	require.NoError(t, err)
	assert.Equal(t, StatePreuserCreated, rec.State)
}

func TestSubmitPhoneRejectsInvalidPhone(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.SubmitPhone(context.Background(), "12345")
	assert.ErrorIs(t, err, otp.ErrInvalidPhone)
}

func TestVerifyTwiceKeepsOneRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.preuser(t)

	h.mr.FastForward(31 * time.Second)
	_, err := h.svc.SubmitPhone(ctx, testPhone)
	require.NoError(t, err)
	second, err := h.svc.VerifyOtpAndCreatePreuser(ctx, testPhone, h.lastCode(t, testNormalized))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, StatePreuserCreated, second.State)
}

func TestVerifyDoesNotRegressAdvancedRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.preuser(t)
	_, err := h.svc.SetPassword(ctx, testPhone, testPassword)
	require.NoError(t, err)

	h.mr.FastForward(31 * time.Second)
	res, err := h.svc.SubmitPhone(ctx, testPhone)
	require.NoError(t, err)
	assert.Equal(t, StateCredentialsSet, res.State)

	rec, err := h.svc.VerifyOtpAndCreatePreuser(ctx, testPhone, h.lastCode(t, testNormalized))
	require.NoError(t, err)
	assert.Equal(t, StateCredentialsSet, rec.State)
	assert.NotEmpty(t, rec.HashedPassword)
}

func TestVerifyWrongCode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.SubmitPhone(ctx, testPhone)
	require.NoError(t, err)
	code := h.lastCode(t, testNormalized)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	_, err = h.svc.VerifyOtpAndCreatePreuser(ctx, testPhone, wrong)
	var mismatch *otp.MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 1, mismatch.Attempt)

	rec, err := h.repo.GetByPhone(ctx, testNormalized)
	require.NoError(t, err)
	assert.Equal(t, StateOTPSent, rec.State)
}

func TestSetPasswordIsWriteOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.preuser(t)

	_, err := h.svc.SetPassword(ctx, testPhone, testPassword)
	require.NoError(t, err)

	_, err = h.svc.SetPassword(ctx, testPhone, "AnotherPass2@")
	if !errors.Is(err, ErrCredentialsAlreadySet) {
		t.Fatalf("expected ErrCredentialsAlreadySet, got %v", err)
	}

	rec, err := h.repo.GetByPhone(ctx, testNormalized)
	require.NoError(t, err)
	assert.True(t, h.hashers.Password.Verify(testPassword, rec.HashedPassword))
}

func TestSetPasswordConcurrentSingleWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.preuser(t)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		other     []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.SetPassword(ctx, testPhone, testPassword)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrCredentialsAlreadySet):
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Empty(t, other)
}

// racingRepo lets a competing write land between the service's read and
// its compare-and-set.
type racingRepo struct {
	Repository
	once   sync.Once
	before func(ctx context.Context, id string)
}

func (r *racingRepo) UpdateState(ctx context.Context, id string, expected, next State, patch Patch) (Record, error) {
	r.once.Do(func() { r.before(ctx, id) })
	return r.Repository.UpdateState(ctx, id, expected, next, patch)
}

func TestLostRaceReportsDomainError(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.preuser(t)

	inner := h.repo
	winner := "winner-hash"
	racing := &racingRepo{Repository: inner, before: func(ctx context.Context, id string) {
		_, err := inner.UpdateState(ctx, id, StatePreuserCreated, StateCredentialsSet, Patch{HashedPassword: &winner})
		require.NoError(t, err)
	}}
	deps := h.deps
	deps.Repo = racing
	svc, err := NewService(deps)
	require.NoError(t, err)

	_, err = svc.SetPassword(ctx, testPhone, testPassword)
	assert.ErrorIs(t, err, ErrCredentialsAlreadySet)
	assert.NotErrorIs(t, err, ErrConflict)
}

func TestSetPasswordPreconditions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.SetPassword(ctx, testPhone, testPassword)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.svc.SubmitPhone(ctx, testPhone)
	require.NoError(t, err)
	_, err = h.svc.SetPassword(ctx, testPhone, testPassword)
	var se *StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StateOTPSent, se.Current)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = h.svc.SetPassword(ctx, testPhone, "short")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSetPin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.preuser(t)

	_, err := h.svc.SetPin(ctx, testPhone, "1234")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = h.svc.SetPassword(ctx, testPhone, testPassword)
	require.NoError(t, err)

	_, err = h.svc.SetPin(ctx, testPhone, "12a4")
	assert.ErrorIs(t, err, ErrInvalidInput)

	rec, err := h.svc.SetPin(ctx, testPhone, "4321")
	require.NoError(t, err)
	assert.Equal(t, StateCredentialsSet, rec.State)
	assert.True(t, h.hashers.PIN.Verify("4321", rec.HashedPIN))

	_, err = h.svc.SetPin(ctx, testPhone, "9999")
	assert.ErrorIs(t, err, ErrPINAlreadySet)
}

func TestCompleteProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.preuser(t)

	_, err := h.svc.CompleteProfile(ctx, testPhone, validProfile())
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = h.svc.SetPassword(ctx, testPhone, testPassword)
	require.NoError(t, err)

	bad := validProfile()
	bad.PAN = "ABC123"
	_, err = h.svc.CompleteProfile(ctx, testPhone, bad)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "pan_number", ve.Field)

	rec, err := h.svc.CompleteProfile(ctx, testPhone, validProfile())
	require.NoError(t, err)
	assert.Equal(t, StateProfileComplete, rec.State)
	require.NotNil(t, rec.Profile)
	assert.Equal(t, "ABCDE1234F", rec.Profile.PAN)
	assert.Equal(t, "India", rec.Profile.Country)

	_, err = h.svc.CompleteProfile(ctx, testPhone, validProfile())
	assert.ErrorIs(t, err, ErrProfileAlreadyCompleted)
}

func TestRiskDenyBlocksAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.preuser(t)
	_, err := h.svc.SetPassword(ctx, testPhone, testPassword)
	require.NoError(t, err)

	young := validProfile()
	young.DateOfBirth = time.Now().AddDate(-16, 0, 0).Format("2006-01-02")
	_, err = h.svc.CompleteProfile(ctx, testPhone, young)
	require.NoError(t, err)

	rec, err := h.svc.EvaluateRisk(ctx, testPhone, 0)
	require.NoError(t, err)
	assert.Equal(t, RiskDeny, rec.RiskDecision)
	assert.NotNil(t, rec.RiskEvaluatedAt)

	_, _, err = h.svc.CreateLimitedAccount(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrRiskNotApproved)

	_, err = h.svc.EvaluateRisk(ctx, testPhone, 0)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRiskReviewCanBeReevaluated(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.preuser(t)
	_, err := h.svc.SetPassword(ctx, testPhone, testPassword)
	require.NoError(t, err)
	_, err = h.svc.CompleteProfile(ctx, testPhone, validProfile())
	require.NoError(t, err)

	rec, err := h.svc.EvaluateRisk(ctx, testPhone, 5)
	require.NoError(t, err)
	assert.Equal(t, RiskReview, rec.RiskDecision)

	_, _, err = h.svc.CreateLimitedAccount(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrRiskNotApproved)

	rec, err = h.svc.EvaluateRisk(ctx, testPhone, 1)
	require.NoError(t, err)
	assert.Equal(t, RiskAllow, rec.RiskDecision)

	_, err = h.svc.EvaluateRisk(ctx, testPhone, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRiskReevaluationLosesToConcurrentDecision(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.preuser(t)
	_, err := h.svc.SetPassword(ctx, testPhone, testPassword)
	require.NoError(t, err)
	_, err = h.svc.CompleteProfile(ctx, testPhone, validProfile())
	require.NoError(t, err)
	rec, err := h.svc.EvaluateRisk(ctx, testPhone, 5)
	require.NoError(t, err)
	require.Equal(t, RiskReview, rec.RiskDecision)

	inner := h.repo
	review, deny := RiskReview, RiskDeny
	racing := &racingRepo{Repository: inner, before: func(ctx context.Context, id string) {
		_, err := inner.UpdateState(ctx, id, StateRiskEvaluated, StateRiskEvaluated, Patch{
			ExpectRiskDecision: &review,
			RiskDecision:       &deny,
		})
		require.NoError(t, err)
	}}
	deps := h.deps
	deps.Repo = racing
	svc, err := NewService(deps)
	require.NoError(t, err)

	_, err = svc.EvaluateRisk(ctx, testPhone, 0)
	assert.ErrorIs(t, err, ErrInvalidState)

	stored, err := inner.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, RiskDeny, stored.RiskDecision)

	_, _, err = h.svc.CreateLimitedAccount(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrRiskNotApproved)
}

func TestCreateLimitedAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, acct := h.limited(t)
	assert.Equal(t, StateLimitedAccountCreated, rec.State)
	assert.Equal(t, acct.ID, rec.AccountID)
	assert.Equal(t, account.TierLimited, acct.Tier)
	require.NotNil(t, acct.DailyLimit)
	assert.Equal(t, account.DefaultLimitedDailyLimit, *acct.DailyLimit)

	_, _, err := h.svc.CreateLimitedAccount(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, _, err = h.svc.CreateLimitedAccount(ctx, "not-a-record")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKYCRejectThenResubmit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec, _ := h.limited(t)

	_, err := h.svc.SubmitKyc(ctx, rec.ID, "ration_card", "X1", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	body := "%PDF-1.4 passport scan"
	rec, err = h.svc.SubmitKyc(ctx, rec.ID, "passport", "K1234567", &kyc.Upload{
		Reader:      strings.NewReader(body),
		Size:        int64(len(body)),
		ContentType: "application/pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, StateKYCSubmitted, rec.State)
	assert.Equal(t, KYCPending, rec.KYC.Status)
	assert.Equal(t, 1, rec.KYC.Attempt)
	stored, ok := h.docs.Object(rec.KYC.DocumentPath)
	require.True(t, ok)
	assert.Equal(t, body, string(stored))

	_, err = h.svc.SubmitKyc(ctx, rec.ID, "pan", "ABCDE1234F", nil)
	assert.ErrorIs(t, err, ErrKYCAlreadySubmitted)

	_, err = h.svc.RejectKyc(ctx, rec.ID, "", "blurred")
	assert.ErrorIs(t, err, ErrInvalidInput)

	rec, err = h.svc.RejectKyc(ctx, rec.ID, "admin-7", "blurred")
	require.NoError(t, err)
	assert.Equal(t, StateKYCRejected, rec.State)
	assert.Equal(t, KYCRejected, rec.KYC.Status)
	assert.Equal(t, "blurred", rec.KYC.RejectionReason)
	assert.Equal(t, "admin-7", rec.KYC.VerifiedBy)

	_, err = h.svc.ApproveKyc(ctx, rec.ID, "admin-7")
	assert.ErrorIs(t, err, ErrInvalidState)

	rec, err = h.svc.SubmitKyc(ctx, rec.ID, "pan", "ABCDE1234F", nil)
	require.NoError(t, err)
	assert.Equal(t, StateKYCSubmitted, rec.State)
	assert.Equal(t, KYCPending, rec.KYC.Status)
	assert.Equal(t, 2, rec.KYC.Attempt)
	assert.Empty(t, rec.KYC.RejectionReason)
	assert.Nil(t, rec.KYC.VerifiedAt)

	rec, err = h.svc.ApproveKyc(ctx, rec.ID, "admin-9")
	require.NoError(t, err)
	assert.Equal(t, StateKYCApproved, rec.State)
	assert.Equal(t, KYCApproved, rec.KYC.Status)
	assert.Equal(t, "admin-9", rec.KYC.VerifiedBy)
	assert.NotNil(t, rec.KYC.VerifiedAt)
}

func TestSubmitKYCRejectsBadUpload(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec, _ := h.limited(t)

	_, err := h.svc.SubmitKyc(ctx, rec.ID, "aadhaar", "123412341234", &kyc.Upload{
		Reader:      strings.NewReader("hello"),
		Size:        5,
		ContentType: "text/plain",
	})
	assert.ErrorIs(t, err, ErrInvalidInput)

	current, err := h.repo.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StateLimitedAccountCreated, current.State)
}

func TestUpgradeToFull(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec, acct := h.limited(t)

	_, err := h.svc.SubmitKyc(ctx, rec.ID, "pan", "ABCDE1234F", nil)
	require.NoError(t, err)

	_, err = h.svc.UpgradeToFull(ctx, acct.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = h.svc.ApproveKyc(ctx, rec.ID, "admin-1")
	require.NoError(t, err)

	res, err := h.svc.UpgradeToFull(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFullAccount, res.Record.State)
	assert.Equal(t, account.TierFull, res.Account.Tier)
	assert.Nil(t, res.Account.DailyLimit)
	require.Len(t, res.RecoveryCodes, recoveryCodeCount)
	require.Len(t, res.Record.RecoveryCodeHashes, recoveryCodeCount)
	assert.True(t, h.hashers.Secret.Verify(res.RecoveryCodes[0], res.Record.RecoveryCodeHashes[0]))

	_, err = h.svc.UpgradeToFull(ctx, acct.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = h.svc.UpgradeToFull(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{
		events.TypeOTPIssued,
		events.TypePreuserCreated,
		events.TypeCredentialsSet,
		events.TypeProfileCompleted,
		events.TypeRiskEvaluated,
		events.TypeLimitedAccount,
		events.TypeKYCSubmitted,
		events.TypeKYCApproved,
		events.TypeAccountUpgraded,
	}, h.events.Types())
}

func TestVerifyPasswordRehashesStaleHash(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.preuser(t)
	_, err := h.svc.SetPassword(ctx, testPhone, testPassword)
	require.NoError(t, err)

	_, err = h.svc.VerifyPassword(ctx, testPhone, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.svc.VerifyPassword(ctx, "9123456789", testPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	stronger := cheapParams
	stronger.Iterations = 2
	upgraded, err := credential.NewSetWithParams("test-pepper", stronger, cheapParams, cheapParams)
	require.NoError(t, err)
	deps := h.deps
	deps.Hashers = upgraded
	svc, err := NewService(deps)
	require.NoError(t, err)

	before, err := h.repo.GetByPhone(ctx, testNormalized)
	require.NoError(t, err)
	require.True(t, upgraded.Password.NeedsRehash(before.HashedPassword))

	rec, err := svc.VerifyPassword(ctx, testPhone, testPassword)
	require.NoError(t, err)
	assert.NotEqual(t, before.HashedPassword, rec.HashedPassword)

	after, err := h.repo.GetByPhone(ctx, testNormalized)
	require.NoError(t, err)
	assert.False(t, upgraded.Password.NeedsRehash(after.HashedPassword))
	assert.True(t, upgraded.Password.Verify(testPassword, after.HashedPassword))
}

func TestGetStatus(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.GetStatus(ctx, testPhone)
	assert.ErrorIs(t, err, ErrNotFound)

	rec, _ := h.limited(t)
	st, err := h.svc.GetStatus(ctx, "+91 98765 43210")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, st.RecordID)
	assert.Equal(t, StateLimitedAccountCreated, st.State)
	assert.Equal(t, account.TierLimited, st.Tier)
	assert.Equal(t, RiskAllow, st.RiskDecision)
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	_, err := NewService(Deps{})
	assert.Error(t, err)
}
