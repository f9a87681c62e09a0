package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"grocery_store/constants"
	"grocery_store/model"
	"grocery_store/service"
	"grocery_store/utils"
)

const kindValidation = string(service.KindValidation)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("upi", func(fl validator.FieldLevel) bool {
		return service.ValidatePayee(strings.TrimSpace(fl.Field().String())) == nil
	})
	return v
}

// Struct validates input and renders the first failure as a readable sentence.
func Struct(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", fe.Field())
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", fe.Field(), fe.Param())
	case "upi":
		return fmt.Errorf("%s is not a valid UPI id", fe.Field())
	case "min", "max", "gt", "gte", "lte":
		return fmt.Errorf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return fmt.Errorf("%s is invalid", fe.Field())
}

func badRequest(c *fiber.Ctx, message string) error {
	return utils.ErrorResponse(c, fiber.StatusBadRequest, kindValidation, message)
}

// GetById parses the numeric route parameter key into the "inputId" local.
func GetById(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		value, err := strconv.ParseUint(c.Params(key), 10, 64)
		if err != nil || value == 0 {
			return badRequest(c, constants.DATA_INPUT_IS_NOT_NUMBER)
		}
		c.Locals("inputId", uint(value))
		return c.Next()
	}
}

func Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input model.LoginInput
		if err := c.BodyParser(&input); err != nil {
			return badRequest(c, constants.ERROR_INVALID_BODY)
		}
		input.Email = strings.ToLower(strings.TrimSpace(input.Email))
		if err := Struct(input); err != nil {
			return badRequest(c, err.Error())
		}
		c.Locals("loginInput", input)
		return c.Next()
	}
}
