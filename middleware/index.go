package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"grocery_store/constants"
	"grocery_store/helper"
	"grocery_store/service"
	"grocery_store/utils"
)

// Protected accepts the access token from the access_token cookie or a Bearer header and
// stores userId and role in Locals.
func Protected(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies("access_token")
		if token == "" {
			if auth := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}
		// Browsers cannot set headers on websocket upgrades.
		if token == "" && c.Get(fiber.HeaderUpgrade) != "" {
			token = c.Query("token")
		}
		if token == "" {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "unauthorized", constants.ERROR_UNAUTHORIZED)
		}

		claim, err := helper.ParseToken(token, secret)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusUnauthorized, "unauthorized", constants.ERROR_UNAUTHORIZED)
		}

		c.Locals("userId", claim.UserID)
		c.Locals("role", claim.Role)
		return c.Next()
	}
}

func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals("role").(string); role != constants.ROLE_ADMIN {
			return utils.ErrorResponse(c, fiber.StatusForbidden, string(service.KindForbidden), constants.ERROR_FORBIDDEN)
		}
		return c.Next()
	}
}
