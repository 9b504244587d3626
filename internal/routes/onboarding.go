package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/onboarding/internal/onboarding"
)

// RegisterOnboardingRoutes wires the public signup steps. throttle, when
// set, guards the endpoints that send SMS or check secrets.
func RegisterOnboardingRoutes(r fiber.Router, h *onboarding.Handler, throttle fiber.Handler) {
	group := r.Group("/onboarding")
	if throttle != nil {
		group.Post("/phone", throttle, h.SubmitPhone)
		group.Post("/verify-otp", throttle, h.VerifyOTP)
	} else {
		group.Post("/phone", h.SubmitPhone)
		group.Post("/verify-otp", h.VerifyOTP)
	}
	group.Post("/password", h.SetPassword)
	group.Post("/pin", h.SetPin)
	group.Post("/profile", h.CompleteProfile)
	group.Post("/risk", h.EvaluateRisk)
	group.Post("/account", h.CreateAccount)
	group.Post("/kyc", h.SubmitKYC)
	group.Get("/status", h.Status)
}

// RegisterAdminRoutes wires KYC review behind the admin guard.
func RegisterAdminRoutes(r fiber.Router, h *onboarding.Handler, guard fiber.Handler) {
	group := r.Group("/admin", guard)
	group.Post("/kyc/:user_id/approve", h.ApproveKYC)
	group.Post("/kyc/:user_id/reject", h.RejectKYC)
}

// RegisterAccountRoutes wires account lifecycle endpoints.
func RegisterAccountRoutes(r fiber.Router, h *onboarding.Handler) {
	r.Post("/accounts/:account_id/upgrade", h.UpgradeAccount)
}

// RegisterAuthRoutes wires credential checks.
func RegisterAuthRoutes(r fiber.Router, h *onboarding.Handler, throttle fiber.Handler) {
	group := r.Group("/auth")
	if throttle != nil {
		group.Post("/verify-password", throttle, h.VerifyPassword)
	} else {
		group.Post("/verify-password", h.VerifyPassword)
	}
}
