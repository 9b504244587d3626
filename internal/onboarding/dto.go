package onboarding

// PhoneRequest carries a phone number.
type PhoneRequest struct {
	Phone string `json:"phone"`
}

// VerifyOTPRequest is the body of the OTP verification step.
type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

// PasswordRequest is used by set-password and verify-password.
type PasswordRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// PINRequest sets the transaction PIN.
type PINRequest struct {
	Phone string `json:"phone"`
	PIN   string `json:"pin"`
}

// ProfileRequest is the personal details form.
type ProfileRequest struct {
	Phone        string `json:"phone"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	DateOfBirth  string `json:"date_of_birth"`
	Gender       string `json:"gender"`
	PAN          string `json:"pan_number"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
}

// RiskRequest triggers risk evaluation.
type RiskRequest struct {
	Phone         string `json:"phone"`
	OTPRetryCount int    `json:"otp_retry_count"`
}

// AccountRequest references the onboarding record.
type AccountRequest struct {
	UserID string `json:"user_id"`
}

// KYCRequest is the JSON form of a submission. Multipart submissions use
// the same field names plus a "document" file part.
type KYCRequest struct {
	UserID         string `json:"user_id" form:"user_id"`
	DocumentType   string `json:"document_type" form:"document_type"`
	DocumentNumber string `json:"document_number" form:"document_number"`
}

// RejectRequest carries the optional reviewer note.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RecordResponse is the client view of a record after a transition.
type RecordResponse struct {
	UserID       string `json:"user_id"`
	Phone        string `json:"phone"`
	State        string `json:"state"`
	RiskDecision string `json:"risk_decision,omitempty"`
	AccountID    string `json:"account_id,omitempty"`
	KYCStatus    string `json:"kyc_status,omitempty"`
	KYCAttempt   int    `json:"kyc_attempt,omitempty"`
}

// SubmitPhoneResponse reports an issued OTP.
type SubmitPhoneResponse struct {
	Phone            string `json:"phone"`
	State            string `json:"state"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
	Delivered        bool   `json:"delivered"`
}

// AccountResponse describes a provisioned account.
type AccountResponse struct {
	AccountID  string `json:"account_id"`
	UserID     string `json:"user_id"`
	Tier       string `json:"tier"`
	DailyLimit *int64 `json:"daily_limit"`
	Status     string `json:"status"`
}

// UpgradeResponse includes the recovery codes shown once.
type UpgradeResponse struct {
	AccountResponse
	State         string   `json:"state"`
	RecoveryCodes []string `json:"recovery_codes"`
}

// StatusResponse is returned by the status lookup.
type StatusResponse struct {
	RecordResponse
	Tier string `json:"tier,omitempty"`
}

func toRecordResponse(rec Record) RecordResponse {
	return RecordResponse{
		UserID:       rec.ID,
		Phone:        rec.Phone,
		State:        string(rec.State),
		RiskDecision: string(rec.RiskDecision),
		AccountID:    rec.AccountID,
		KYCStatus:    string(rec.KYC.Status),
		KYCAttempt:   rec.KYC.Attempt,
	}
}
