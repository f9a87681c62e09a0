package validate

import (
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"

	"grocery_store/constants"
	"grocery_store/model"
)

var screenshotTypes = []string{"image/jpeg", "image/png", "image/webp"}

func CreateOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.CreateOrderInput
		if err := c.BodyParser(&input); err != nil {
			return badRequest(c, constants.ERROR_INVALID_BODY)
		}
		if err := Struct(input); err != nil {
			return badRequest(c, err.Error())
		}
		c.Locals("createInput", input)
		return c.Next()
	}
}

func ConfirmPayment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.ConfirmPaymentInput
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&input); err != nil {
				return badRequest(c, constants.ERROR_INVALID_BODY)
			}
		}
		if err := Struct(input); err != nil {
			return badRequest(c, err.Error())
		}
		c.Locals("confirmInput", input)
		return c.Next()
	}
}

func UpdateOrderStatus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.UpdateOrderStatusInput
		if err := c.BodyParser(&input); err != nil {
			return badRequest(c, constants.ERROR_INVALID_BODY)
		}
		if err := Struct(input); err != nil {
			return badRequest(c, err.Error())
		}
		c.Locals("statusInput", input)
		return c.Next()
	}
}

func CancelOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.CancelOrderInput
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&input); err != nil {
				return badRequest(c, constants.ERROR_INVALID_BODY)
			}
		}
		if err := Struct(input); err != nil {
			return badRequest(c, err.Error())
		}
		c.Locals("cancelInput", input)
		return c.Next()
	}
}

// RefundContact serves both the owner's refund request and the admin's contact correction.
func RefundContact() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.RefundContactInput
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&input); err != nil {
				return badRequest(c, constants.ERROR_INVALID_BODY)
			}
		}
		if err := Struct(input); err != nil {
			return badRequest(c, err.Error())
		}
		c.Locals("refundInput", input)
		return c.Next()
	}
}

func FilterOrders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.FilterOrderInput
		if err := c.QueryParser(&input); err != nil {
			return badRequest(c, err.Error())
		}
		if err := Struct(input); err != nil {
			return badRequest(c, err.Error())
		}
		c.Locals("filterInput", input)
		return c.Next()
	}
}

func Paginate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.Pagination
		if err := c.QueryParser(&input); err != nil {
			return badRequest(c, err.Error())
		}
		if err := Struct(input); err != nil {
			return badRequest(c, err.Error())
		}
		c.Locals("pageInput", input)
		return c.Next()
	}
}

// Screenshot reads the multipart "screenshot" image into the "screenshot" local as raw bytes.
func Screenshot() fiber.Handler {
	return func(c *fiber.Ctx) error {
		file, err := c.FormFile("screenshot")
		if err != nil {
			return badRequest(c, constants.ERROR_SCREENSHOT_REQUIRED)
		}
		if file.Size == 0 {
			return badRequest(c, constants.ERROR_SCREENSHOT_REQUIRED)
		}
		if file.Size > constants.MAX_SCREENSHOT_BYTES {
			return badRequest(c, constants.ERROR_SCREENSHOT_TOO_LARGE)
		}

		reader, err := file.Open()
		if err != nil {
			return badRequest(c, constants.ERROR_SCREENSHOT_REQUIRED)
		}
		defer reader.Close()
		data, err := io.ReadAll(io.LimitReader(reader, constants.MAX_SCREENSHOT_BYTES+1))
		if err != nil || len(data) == 0 {
			return badRequest(c, constants.ERROR_SCREENSHOT_REQUIRED)
		}
		if len(data) > constants.MAX_SCREENSHOT_BYTES {
			return badRequest(c, constants.ERROR_SCREENSHOT_TOO_LARGE)
		}
		if !mimetype.EqualsAny(mimetype.Detect(data).String(), screenshotTypes...) {
			return badRequest(c, constants.ERROR_SCREENSHOT_TYPE)
		}

		c.Locals("screenshot", data)
		return c.Next()
	}
}
