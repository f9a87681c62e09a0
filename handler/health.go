package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"grocery_store/utils"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

func Health(db Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "unavailable", "database unreachable")
		}
		return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{"database": "ok"})
	}
}
