package account

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes account endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	CustomerName             string `json:"customerName"`
	ICNumber                 string `json:"icNumber"`
	Email                    string `json:"email"`
	PhoneNumber              string `json:"phoneNumber"`
	HasAcceptedPrivacyPolicy bool   `json:"hasAcceptedPrivacyPolicy"`
}

type sendCodeRequest struct {
	ICNumber string `json:"icNumber"`
}

type verifyCodeRequest struct {
	ICNumber string `json:"icNumber"`
	Code     string `json:"code"`
	Type     string `json:"type"`
}

type createPINRequest struct {
	ICNumber string `json:"icNumber"`
	PINHash  string `json:"pinHash"`
}

type loginRequest struct {
	ICNumber                string `json:"icNumber"`
	PINHash                 string `json:"pinHash"`
	UseFaceBiometric        bool   `json:"useFaceBiometric"`
	UseFingerprintBiometric bool   `json:"useFingerprintBiometric"`
}

type biometricRequest struct {
	ICNumber string `json:"icNumber"`
	Enable   bool   `json:"enable"`
}

type response struct {
	Message    string `json:"message"`
	CustomerID int64  `json:"customerId,omitempty"`
}

type loginResponse struct {
	Message                  string `json:"message"`
	CustomerID               int64  `json:"customerId"`
	FaceBiometricUsed        bool   `json:"faceBiometricUsed"`
	FingerprintBiometricUsed bool   `json:"fingerprintBiometricUsed"`
}

// Register handles customer registration.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Register(c.UserContext(), RegisterInput{
		CustomerName:             req.CustomerName,
		ICNumber:                 req.ICNumber,
		Email:                    req.Email,
		PhoneNumber:              req.PhoneNumber,
		HasAcceptedPrivacyPolicy: req.HasAcceptedPrivacyPolicy,
	})
	return reply(c, res, err)
}

// SendEmailCode issues an email verification code.
func (h *Handler) SendEmailCode(c *fiber.Ctx) error {
	var req sendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.SendEmailCode(c.UserContext(), req.ICNumber)
	return reply(c, res, err)
}

// SendMobileCode issues an SMS verification code.
func (h *Handler) SendMobileCode(c *fiber.Ctx) error {
	var req sendCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.SendMobileCode(c.UserContext(), req.ICNumber)
	return reply(c, res, err)
}

// VerifyCode redeems a verification code.
func (h *Handler) VerifyCode(c *fiber.Ctx) error {
	var req verifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.VerifyCode(c.UserContext(), VerifyInput{
		ICNumber: req.ICNumber,
		Code:     req.Code,
		Channel:  Channel(req.Type),
	})
	return reply(c, res, err)
}

// CreatePIN stores the customer's PIN hash.
func (h *Handler) CreatePIN(c *fiber.Ctx) error {
	var req createPINRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.CreatePIN(c.UserContext(), PINInput{ICNumber: req.ICNumber, PINHash: req.PINHash})
	return reply(c, res, err)
}

// Login verifies a login attempt.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Login(c.UserContext(), LoginInput{
		ICNumber:                req.ICNumber,
		PINHash:                 req.PINHash,
		UseFaceBiometric:        req.UseFaceBiometric,
		UseFingerprintBiometric: req.UseFingerprintBiometric,
	})
	if err != nil {
		return reply(c, res, err)
	}
	return c.Status(http.StatusOK).JSON(loginResponse{
		Message:                  res.Message,
		CustomerID:               res.AccountID,
		FaceBiometricUsed:        req.UseFaceBiometric,
		FingerprintBiometricUsed: req.UseFingerprintBiometric,
	})
}

// SetFaceBiometric toggles face login.
func (h *Handler) SetFaceBiometric(c *fiber.Ctx) error {
	var req biometricRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.SetFaceBiometric(c.UserContext(), BiometricInput{ICNumber: req.ICNumber, Enable: req.Enable})
	return reply(c, res, err)
}

// SetFingerprintBiometric toggles fingerprint login.
func (h *Handler) SetFingerprintBiometric(c *fiber.Ctx) error {
	var req biometricRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.SetFingerprintBiometric(c.UserContext(), BiometricInput{ICNumber: req.ICNumber, Enable: req.Enable})
	return reply(c, res, err)
}

func reply(c *fiber.Ctx, res Result, err error) error {
	if err != nil {
		kind := KindOf(err)
		if kind == KindInternal {
			return err
		}
		return c.Status(statusFor(kind)).JSON(response{Message: MessageOf(err)})
	}
	return c.Status(http.StatusOK).JSON(response{Message: res.Message, CustomerID: res.AccountID})
}

func statusFor(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindDelivery:
		return http.StatusBadGateway
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
