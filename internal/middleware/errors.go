package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errors returned by handlers as {"message": ...}.
// fiber errors keep their status and text; anything else is logged and
// reported as a generic 500 so internal details never reach clients.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
		}

		logger.Error("unhandled error",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("request_id", RequestIDFrom(c)),
			slog.Any("error", err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}
}
