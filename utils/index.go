package utils

import (
	"github.com/gofiber/fiber/v2"
)

func ErrorResponse(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":  "error",
		"kind":    kind,
		"message": message,
	})
}

func SuccessResponse(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

// StringPtr returns nil for an empty string so optional columns stay NULL.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func Ptr[T any](v T) *T {
	return &v
}

// PageParams resolves optional limit/page query values, 0 meaning "use the default".
func PageParams(limit, page *int) (int, int) {
	l, p := 0, 1
	if limit != nil && *limit > 0 {
		l = *limit
	}
	if page != nil && *page >= 1 {
		p = *page
	}
	return l, p
}
