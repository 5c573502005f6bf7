package account

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/tentera/tentera_api/internal/verification"
)

func setupHandlerApp(t *testing.T, svc *Service) *fiber.App {
	t.Helper()
	h := NewHandler(svc)
	app := fiber.New()
	r := app.Group("/api/account")
	r.Post("/register", h.Register)
	r.Post("/send-email-code", h.SendEmailCode)
	r.Post("/send-mobile-code", h.SendMobileCode)
	r.Post("/verify-code", h.VerifyCode)
	r.Post("/create-pin", h.CreatePIN)
	r.Post("/login", h.Login)
	r.Post("/biometric/face", h.SetFaceBiometric)
	r.Post("/biometric/fingerprint", h.SetFingerprintBiometric)
	return app
}

func post(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test %s: %v", path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	decoded := map[string]any{}
	_ = json.Unmarshal(payload, &decoded)
	return resp.StatusCode, decoded
}

const registerBody = `{"customerName":"Jane Tan","icNumber":"900101-14-5678","email":"jane@example.com","phoneNumber":"+60123456789","hasAcceptedPrivacyPolicy":true}`

func TestHandlerOnboardingFlow(t *testing.T) {
	f := newFixture(t, WithCodeGenerator(func() (string, error) { return "246810", nil }))
	app := setupHandlerApp(t, f.svc)

	status, body := post(t, app, "/api/account/register", registerBody)
	if status != fiber.StatusOK {
		t.Fatalf("register: expected 200 got %d (%v)", status, body)
	}
	if body["message"] != "Customer registered successfully." || body["customerId"] != float64(1) {
		t.Fatalf("unexpected register body %v", body)
	}

	steps := []struct {
		path string
		body string
		want string
	}{
		{"/api/account/send-email-code", `{"icNumber":"900101-14-5678"}`, "Email verification code sent"},
		{"/api/account/send-mobile-code", `{"icNumber":"900101-14-5678"}`, "Mobile verification code sent"},
		{"/api/account/verify-code", `{"icNumber":"900101-14-5678","code":"246810","type":"EMAIL"}`, "Code verified successfully"},
		{"/api/account/verify-code", `{"icNumber":"900101-14-5678","code":"246810","type":"PHONE"}`, "Code verified successfully"},
		{"/api/account/create-pin", `{"icNumber":"900101-14-5678","pinHash":"abc"}`, "PIN created successfully"},
		{"/api/account/biometric/face", `{"icNumber":"900101-14-5678","enable":true}`, "Face biometric enabled successfully"},
		{"/api/account/biometric/fingerprint", `{"icNumber":"900101-14-5678","enable":false}`, "Fingerprint biometric disabled successfully"},
	}
	for _, step := range steps {
		status, body := post(t, app, step.path, step.body)
		if status != fiber.StatusOK {
			t.Fatalf("%s: expected 200 got %d (%v)", step.path, status, body)
		}
		if body["message"] != step.want {
			t.Fatalf("%s: expected %q got %v", step.path, step.want, body["message"])
		}
		if _, ok := body["customerId"]; ok {
			t.Fatalf("%s: customerId only belongs on register and login", step.path)
		}
	}

	status, body = post(t, app, "/api/account/login", `{"icNumber":"900101-14-5678","pinHash":"abc","useFaceBiometric":true}`)
	if status != fiber.StatusOK {
		t.Fatalf("login: expected 200 got %d (%v)", status, body)
	}
	if body["message"] != "Login successful" || body["customerId"] != float64(1) {
		t.Fatalf("unexpected login body %v", body)
	}
	if body["faceBiometricUsed"] != true || body["fingerprintBiometricUsed"] != false {
		t.Fatalf("expected biometric echo, got %v", body)
	}

	status, body = post(t, app, "/api/account/login", `{"icNumber":"900101-14-5678","pinHash":"abc","useFingerprintBiometric":true}`)
	if status != fiber.StatusBadRequest || body["message"] != MsgFingerprintNotEnabled {
		t.Fatalf("expected fingerprint rejection, got %d %v", status, body)
	}
}

func TestHandlerStatusMapping(t *testing.T) {
	f := newFixture(t)
	app := setupHandlerApp(t, f.svc)
	if status, _ := post(t, app, "/api/account/register", registerBody); status != fiber.StatusOK {
		t.Fatalf("register: expected 200 got %d", status)
	}

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		msg    string
	}{
		{"validation", "/api/account/register", `{"icNumber":"1"}`, fiber.StatusBadRequest, MsgNameRequired},
		{"conflict", "/api/account/register", registerBody, fiber.StatusConflict, MsgICNumberTaken},
		{"not found", "/api/account/send-email-code", `{"icNumber":"missing"}`, fiber.StatusNotFound, MsgAccountNotFound},
		{"expired", "/api/account/verify-code", `{"icNumber":"900101-14-5678","code":"111111","type":"EMAIL"}`, fiber.StatusBadRequest, MsgCodeExpired},
		{"bad channel", "/api/account/verify-code", `{"icNumber":"900101-14-5678","code":"111111","type":"POST"}`, fiber.StatusBadRequest, MsgInvalidChannel},
		{"state", "/api/account/login", `{"icNumber":"900101-14-5678","pinHash":"abc"}`, fiber.StatusBadRequest, MsgEmailNotVerified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := post(t, app, tc.path, tc.body)
			if status != tc.status {
				t.Fatalf("expected %d got %d (%v)", tc.status, status, body)
			}
			if body["message"] != tc.msg {
				t.Fatalf("expected %q got %v", tc.msg, body["message"])
			}
		})
	}
}

func TestHandlerDeliveryFailureIsBadGateway(t *testing.T) {
	f := newFixture(t)
	f.email.err = errors.New("smtp down")
	app := setupHandlerApp(t, f.svc)
	post(t, app, "/api/account/register", registerBody)

	status, body := post(t, app, "/api/account/send-email-code", `{"icNumber":"900101-14-5678"}`)
	if status != fiber.StatusBadGateway {
		t.Fatalf("expected %d got %d", fiber.StatusBadGateway, status)
	}
	if body["message"] != MsgEmailDeliveryFailed {
		t.Fatalf("unexpected message %v", body["message"])
	}
}

func TestHandlerInternalFaultIsServerError(t *testing.T) {
	repo := brokenRepository{Repository: NewMemoryRepository(), err: errors.New("db gone")}
	svc := NewService(repo, verification.NewMemoryStore(), newStubSender(), newStubSender())
	app := setupHandlerApp(t, svc)

	status, _ := post(t, app, "/api/account/login", `{"icNumber":"900101-14-5678"}`)
	if status != fiber.StatusInternalServerError {
		t.Fatalf("expected %d got %d", fiber.StatusInternalServerError, status)
	}
}

func TestHandlerRejectsMalformedBody(t *testing.T) {
	f := newFixture(t)
	app := setupHandlerApp(t, f.svc)

	status, _ := post(t, app, "/api/account/register", `{"customerName":`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	if _, err := f.repo.GetByICNumber(context.Background(), "900101-14-5678"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("nothing should be stored, got %v", err)
	}
}
