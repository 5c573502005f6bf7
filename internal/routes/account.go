package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/tentera/tentera_api/internal/account"
)

// RegisterAccountRoutes wires the onboarding endpoints. idem, when set,
// guards registration against client retries.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler, idem fiber.Handler) {
	g := r.Group("/account")

	if idem != nil {
		g.Post("/register", idem, h.Register)
	} else {
		g.Post("/register", h.Register)
	}
	g.Post("/send-email-code", h.SendEmailCode)
	g.Post("/send-mobile-code", h.SendMobileCode)
	g.Post("/verify-code", h.VerifyCode)
	g.Post("/create-pin", h.CreatePIN)
	g.Post("/login", h.Login)
	g.Post("/biometric/face", h.SetFaceBiometric)
	g.Post("/biometric/fingerprint", h.SetFingerprintBiometric)
}
