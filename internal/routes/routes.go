package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/tentera/tentera_api/internal/account"
	"github.com/tentera/tentera_api/internal/config"
	"github.com/tentera/tentera_api/internal/logging"
	"github.com/tentera/tentera_api/internal/metrics"
	"github.com/tentera/tentera_api/internal/middleware"
	"github.com/tentera/tentera_api/internal/notification"
	"github.com/tentera/tentera_api/internal/verification"
)

// Deps aggregates shared dependencies required to wire routes. At most one
// of DB and MySQL is set, matching Cfg.DatabaseDriver.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	MySQL   *gorm.DB
	Cache   *redis.Client
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewCollector()
	}

	repo, err := accountRepository(d)
	if err != nil {
		return err
	}
	codes, err := codeStore(d)
	if err != nil {
		return err
	}
	email, sms, err := senders(app, d)
	if err != nil {
		return err
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDevelopment() {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)
	app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))

	svc := account.NewService(repo, codes, email, sms,
		account.WithCodeTTL(d.Cfg.CodeTTL),
		account.WithLogger(d.Logger),
		account.WithRecorder(d.Metrics),
	)

	api := app.Group("/api")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	var idem fiber.Handler
	if d.Cache != nil {
		idem = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}
	RegisterAccountRoutes(api, account.NewHandler(svc), idem)

	return nil
}

func accountRepository(d Deps) (account.Repository, error) {
	switch {
	case d.Cfg.DatabaseDriver == config.DriverPostgres && d.DB != nil:
		return account.NewPostgresRepository(d.DB), nil
	case d.Cfg.DatabaseDriver == config.DriverMySQL && d.MySQL != nil:
		return account.NewGormRepository(d.MySQL), nil
	case d.Cfg.DatabaseDriver == config.DriverMemory || d.Cfg.IsDevelopment():
		d.Logger.Warn("using in-memory account repository", "driver", d.Cfg.DatabaseDriver)
		return account.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
}

func codeStore(d Deps) (verification.Store, error) {
	if d.Cfg.CodeStore != config.CodeStoreRedis {
		return verification.NewMemoryStore(), nil
	}
	if d.Cache == nil {
		return nil, fmt.Errorf("redis is required when CODE_STORE=%s", d.Cfg.CodeStore)
	}
	return verification.NewRedisStore(d.Cache), nil
}

// senders picks SMTP and Twilio when configured. Only development falls
// back to logging the message, since the log line carries the live code.
func senders(app *fiber.App, d Deps) (notification.EmailSender, notification.SMSSender, error) {
	var mail, text notification.Notifier = notification.NewLoggerNotifier(d.Logger), notification.NewLoggerNotifier(d.Logger)

	if d.Cfg.SMTP.Enabled() {
		smtpSender, err := notification.NewSMTPSender(d.Cfg.SMTP)
		if err != nil {
			return nil, nil, fmt.Errorf("configure smtp: %w", err)
		}
		app.Hooks().OnShutdown(func() error {
			smtpSender.Close()
			return nil
		})
		mail = smtpSender
	} else if !d.Cfg.IsDevelopment() {
		return nil, nil, fmt.Errorf("smtp is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	if d.Cfg.Twilio.Enabled() {
		twilioSender, err := notification.NewTwilioSender(d.Cfg.Twilio)
		if err != nil {
			return nil, nil, fmt.Errorf("configure twilio: %w", err)
		}
		text = twilioSender
	} else if !d.Cfg.IsDevelopment() {
		return nil, nil, fmt.Errorf("twilio is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	return notification.EmailCodes(mail, d.Cfg.CodeTTL), notification.SMSCodes(text, d.Cfg.CodeTTL), nil
}
