package onboarding

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/onboarding/internal/account"
	"github.com/congo-pay/onboarding/internal/credential"
	"github.com/congo-pay/onboarding/internal/kyc"
	"github.com/congo-pay/onboarding/internal/otp"
)

// AdminIDHeader names the reviewer performing a KYC decision.
const AdminIDHeader = "X-Admin-ID"

// Handler exposes the onboarding flow over HTTP.
type Handler struct {
	service *Service
}

// NewHandler constructs an onboarding HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SubmitPhone handles POST /onboarding/phone.
func (h *Handler) SubmitPhone(c *fiber.Ctx) error {
	var req PhoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.SubmitPhone(c.UserContext(), req.Phone)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(SubmitPhoneResponse{
		Phone:            res.Phone,
		State:            string(res.State),
		ExpiresInSeconds: int64(res.ExpiresIn / time.Second),
		Delivered:        res.Delivered,
	})
}

// VerifyOTP handles POST /onboarding/verify-otp.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req VerifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.service.VerifyOtpAndCreatePreuser(c.UserContext(), req.Phone, req.OTP)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
}

// SetPassword handles POST /onboarding/password.
func (h *Handler) SetPassword(c *fiber.Ctx) error {
	var req PasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.service.SetPassword(c.UserContext(), req.Phone, req.Password)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
}

// SetPin handles POST /onboarding/pin.
func (h *Handler) SetPin(c *fiber.Ctx) error {
	var req PINRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.service.SetPin(c.UserContext(), req.Phone, req.PIN)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
}

// CompleteProfile handles POST /onboarding/profile.
func (h *Handler) CompleteProfile(c *fiber.Ctx) error {
	var req ProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.service.CompleteProfile(c.UserContext(), req.Phone, ProfileInput{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DateOfBirth:  req.DateOfBirth,
		Gender:       req.Gender,
		PAN:          req.PAN,
		AddressLine1: req.AddressLine1,
		AddressLine2: req.AddressLine2,
		City:         req.City,
		Region:       req.State,
		Pincode:      req.Pincode,
		Country:      req.Country,
	})
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
}

// EvaluateRisk handles POST /onboarding/risk.
func (h *Handler) EvaluateRisk(c *fiber.Ctx) error {
	var req RiskRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.service.EvaluateRisk(c.UserContext(), req.Phone, req.OTPRetryCount)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
}

// CreateAccount handles POST /onboarding/account.
func (h *Handler) CreateAccount(c *fiber.Ctx) error {
	var req AccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	_, acct, err := h.service.CreateLimitedAccount(c.UserContext(), req.UserID)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusCreated).JSON(toAccountResponse(acct))
}

// SubmitKYC handles POST /onboarding/kyc as JSON or multipart.
func (h *Handler) SubmitKYC(c *fiber.Ctx) error {
	var req KYCRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	var upload *kyc.Upload
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if fh, err := c.FormFile("document"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return fiber.NewError(http.StatusBadRequest, err.Error())
			}
			defer f.Close()
			upload = &kyc.Upload{Reader: f, Size: fh.Size, ContentType: fh.Header.Get(fiber.HeaderContentType)}
		}
	}

	rec, err := h.service.SubmitKyc(c.UserContext(), req.UserID, req.DocumentType, req.DocumentNumber, upload)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusAccepted).JSON(toRecordResponse(rec))
}

// ApproveKYC handles POST /admin/kyc/:user_id/approve.
func (h *Handler) ApproveKYC(c *fiber.Ctx) error {
	rec, err := h.service.ApproveKyc(c.UserContext(), c.Params("user_id"), c.Get(AdminIDHeader))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
}

// RejectKYC handles POST /admin/kyc/:user_id/reject.
func (h *Handler) RejectKYC(c *fiber.Ctx) error {
	var req RejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	rec, err := h.service.RejectKyc(c.UserContext(), c.Params("user_id"), c.Get(AdminIDHeader), req.Reason)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(toRecordResponse(rec))
}

// UpgradeAccount handles POST /accounts/:account_id/upgrade.
func (h *Handler) UpgradeAccount(c *fiber.Ctx) error {
	res, err := h.service.UpgradeToFull(c.UserContext(), c.Params("account_id"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(UpgradeResponse{
		AccountResponse: toAccountResponse(res.Account),
		State:           string(res.Record.State),
		RecoveryCodes:   res.RecoveryCodes,
	})
}

// VerifyPassword handles POST /auth/verify-password.
func (h *Handler) VerifyPassword(c *fiber.Ctx) error {
	var req PasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rec, err := h.service.VerifyPassword(c.UserContext(), req.Phone, req.Password)
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"verified": true, "user_id": rec.ID, "state": rec.State})
}

// Status handles GET /onboarding/status?phone=.
func (h *Handler) Status(c *fiber.Ctx) error {
	st, err := h.service.GetStatus(c.UserContext(), c.Query("phone"))
	if err != nil {
		return toHTTPError(c, err)
	}
	return c.Status(http.StatusOK).JSON(StatusResponse{
		RecordResponse: RecordResponse{
			UserID:       st.RecordID,
			Phone:        st.Phone,
			State:        string(st.State),
			RiskDecision: string(st.RiskDecision),
			AccountID:    st.AccountID,
			KYCStatus:    string(st.KYCStatus),
			KYCAttempt:   st.KYCAttempt,
		},
		Tier: st.Tier,
	})
}

func toAccountResponse(a account.Account) AccountResponse {
	return AccountResponse{AccountID: a.ID, UserID: a.UserID, Tier: a.Tier, DailyLimit: a.DailyLimit, Status: a.Status}
}

// toHTTPError maps domain errors to HTTP statuses. Wait hints are returned
// as Retry-After seconds.
func toHTTPError(c *fiber.Ctx, err error) error {
	var (
		rateLimited *otp.RateLimitError
		locked      *otp.LockedError
		mismatch    *otp.MismatchError
	)
	switch {
	case errors.As(err, &rateLimited):
		if secs := int64(rateLimited.RetryAfter / time.Second); secs > 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(secs, 10))
		}
		return fiber.NewError(http.StatusTooManyRequests, err.Error())
	case errors.As(err, &locked):
		if secs := int64(locked.RetryAfter / time.Second); secs > 0 {
			c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(secs, 10))
		}
		return fiber.NewError(http.StatusLocked, err.Error())
	case errors.As(err, &mismatch):
		c.Set("X-OTP-Attempts-Remaining", strconv.Itoa(max(mismatch.Max-mismatch.Attempt, 0)))
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, otp.ErrExpired):
		return fiber.NewError(http.StatusGone, err.Error())
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrCredentialsAlreadySet),
		errors.Is(err, ErrPINAlreadySet),
		errors.Is(err, ErrProfileAlreadyCompleted),
		errors.Is(err, ErrKYCAlreadySubmitted),
		errors.Is(err, ErrInvalidState):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrRiskNotApproved):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, otp.ErrInvalidPhone),
		errors.Is(err, otp.ErrInvalidPurpose),
		errors.Is(err, credential.ErrEmptySecret):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, otp.ErrInfrastructure), errors.Is(err, ErrInfrastructure):
		return fiber.NewError(http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		return fiber.NewError(http.StatusInternalServerError, "internal error")
	}
}
