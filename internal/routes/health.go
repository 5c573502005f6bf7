package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const statusOK = "ok"

// RegisterHealthRoutes adds liveness/readiness style endpoints. Backends
// that are not configured are reported as "disabled".
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{
			"database": checkDatabase(ctx, d),
			"redis":    "disabled",
		}
		if d.Cache != nil {
			checks["redis"] = statusOf(d.Cache.Ping(ctx).Err())
		}

		status := http.StatusOK
		for _, v := range checks {
			if v != statusOK && v != "disabled" {
				status = http.StatusServiceUnavailable
			}
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

func checkDatabase(ctx context.Context, d Deps) string {
	switch {
	case d.DB != nil:
		return statusOf(d.DB.Ping(ctx))
	case d.MySQL != nil:
		sqlDB, err := d.MySQL.DB()
		if err != nil {
			return err.Error()
		}
		return statusOf(sqlDB.PingContext(ctx))
	default:
		return "disabled"
	}
}

func statusOf(err error) string {
	if err != nil {
		return err.Error()
	}
	return statusOK
}
