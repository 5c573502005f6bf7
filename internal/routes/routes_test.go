package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tentera/tentera_api/internal/config"
	"github.com/tentera/tentera_api/internal/logging"
	"github.com/tentera/tentera_api/internal/middleware"
	"github.com/tentera/tentera_api/internal/notification"
)

func testConfig() config.Config {
	return config.Config{
		AppName:        "TenteraAPI",
		AppEnv:         "test",
		DatabaseDriver: config.DriverMemory,
		CodeStore:      config.CodeStoreMemory,
		CodeTTL:        10 * time.Minute,
		IdempotencyTTL: time.Minute,
	}
}

func newApp(t *testing.T, d Deps) *fiber.App {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler(logging.Discard())})
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if err := Setup(app, d); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string, headers ...string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test %s: %v", path, err)
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(payload)
}

func TestSetupRejectsMissingDatabaseOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.AppEnv = "production"
	cfg.DatabaseDriver = config.DriverPostgres

	if err := Setup(fiber.New(), Deps{Cfg: cfg}); err == nil {
		t.Fatalf("expected missing database to fail")
	}

	cfg.DatabaseDriver = config.DriverMemory
	cfg.CodeStore = config.CodeStoreRedis
	if err := Setup(fiber.New(), Deps{Cfg: cfg}); err == nil {
		t.Fatalf("expected missing redis to fail for the redis code store")
	}
}

func productionConfig() config.Config {
	cfg := testConfig()
	cfg.AppEnv = "production"
	cfg.SMTP = notification.SMTPConfig{Host: "127.0.0.1", Port: 1, From: "no-reply@tentera.test", SendTimeout: time.Second}
	cfg.Twilio = notification.TwilioConfig{AccountSID: "AC123", AuthToken: "token", FromNumber: "+15005550006"}
	return cfg
}

func TestSetupRequiresRealSendersOutsideDev(t *testing.T) {
	noSMTP := productionConfig()
	noSMTP.SMTP = notification.SMTPConfig{}
	if err := Setup(fiber.New(), Deps{Cfg: noSMTP}); err == nil || !strings.Contains(err.Error(), "smtp") {
		t.Fatalf("expected missing smtp to fail, got %v", err)
	}

	noTwilio := productionConfig()
	noTwilio.Twilio = notification.TwilioConfig{}
	if err := Setup(fiber.New(), Deps{Cfg: noTwilio}); err == nil || !strings.Contains(err.Error(), "twilio") {
		t.Fatalf("expected missing twilio to fail, got %v", err)
	}

	if err := Setup(fiber.New(), Deps{Cfg: productionConfig()}); err != nil {
		t.Fatalf("fully configured setup: %v", err)
	}
}

func TestIssuedCodesNeverReachTheLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewRedactingHandler(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	app := newApp(t, Deps{Cfg: productionConfig(), Logger: logger})

	register := `{"customerName":"Jane Tan","icNumber":"900101-14-5678","email":"jane@example.com","phoneNumber":"+60123456789","hasAcceptedPrivacyPolicy":true}`
	if status, body := call(t, app, fiber.MethodPost, "/api/account/register", register); status != fiber.StatusOK {
		t.Fatalf("register: expected 200 got %d: %s", status, body)
	}
	// nothing listens on the SMTP port, so delivery fails after the code is stored
	status, body := call(t, app, fiber.MethodPost, "/api/account/send-email-code", `{"icNumber":"900101-14-5678"}`)
	if status != fiber.StatusBadGateway {
		t.Fatalf("expected %d got %d: %s", fiber.StatusBadGateway, status, body)
	}

	if buf.Len() == 0 {
		t.Fatalf("expected request logs")
	}
	if strings.Contains(buf.String(), "verification code is") {
		t.Fatalf("verification code leaked into logs:\n%s", buf.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newApp(t, Deps{Cfg: testConfig()})

	status, body := call(t, app, fiber.MethodGet, "/healthz", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d: %s", status, body)
	}
	var health struct {
		Status map[string]string `json:"status"`
	}
	if err := json.Unmarshal([]byte(body), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status["database"] != "disabled" || health.Status["redis"] != "disabled" {
		t.Fatalf("unexpected health %v", health.Status)
	}

	call(t, app, fiber.MethodPost, "/api/account/login", `{"icNumber":"missing"}`)
	status, body = call(t, app, fiber.MethodGet, "/metrics", "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200 got %d", status)
	}
	if !strings.Contains(body, `tentera_account_operations_total{operation="login",outcome="not_found"} 1`) {
		t.Fatalf("expected login counter in metrics output:\n%s", body)
	}
}

func TestAccountRoutesWithRedisBackends(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	cfg := testConfig()
	cfg.CodeStore = config.CodeStoreRedis
	cfg.RedisURL = "redis://" + mr.Addr()
	app := newApp(t, Deps{Cfg: cfg, Cache: cache})

	register := `{"customerName":"Jane Tan","icNumber":"900101-14-5678","email":"jane@example.com","phoneNumber":"+60123456789","hasAcceptedPrivacyPolicy":true}`
	status, first := call(t, app, fiber.MethodPost, "/api/account/register", register, "Idempotency-Key", "reg-1")
	if status != fiber.StatusOK {
		t.Fatalf("register: expected 200 got %d: %s", status, first)
	}
	status, replay := call(t, app, fiber.MethodPost, "/api/account/register", register, "Idempotency-Key", "reg-1")
	if status != fiber.StatusOK || replay != first {
		t.Fatalf("expected replayed registration, got %d %s", status, replay)
	}
	status, body := call(t, app, fiber.MethodPost, "/api/account/register", register)
	if status != fiber.StatusConflict {
		t.Fatalf("expected conflict without key, got %d %s", status, body)
	}

	status, body = call(t, app, fiber.MethodPost, "/api/account/send-email-code", `{"icNumber":"900101-14-5678"}`)
	if status != fiber.StatusOK {
		t.Fatalf("send code: expected 200 got %d: %s", status, body)
	}
	keys := mr.Keys()
	found := false
	for _, k := range keys {
		if strings.HasPrefix(k, "verification:") {
			found = true
			if ttl := mr.TTL(k); ttl <= 9*time.Minute || ttl > 10*time.Minute {
				t.Fatalf("expected about 10m ttl on %s, got %s", k, ttl)
			}
		}
	}
	if !found {
		t.Fatalf("expected a verification key in redis, have %v", keys)
	}

	status, body = call(t, app, fiber.MethodPost, "/api/account/verify-code", `{"icNumber":"900101-14-5678","code":"000000","type":"EMAIL"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected wrong code to fail, got %d %s", status, body)
	}
}
