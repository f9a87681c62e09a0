package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"grocery_store/constants"
	"grocery_store/model"
	"grocery_store/service"
	"grocery_store/utils"
)

var kindStatus = map[service.Kind]int{
	service.KindValidation:              fiber.StatusBadRequest,
	service.KindNotFound:                fiber.StatusNotFound,
	service.KindForbidden:               fiber.StatusForbidden,
	service.KindConflict:                fiber.StatusConflict,
	service.KindDependency:              fiber.StatusBadGateway,
	service.KindPersistenceVerification: fiber.StatusInternalServerError,
	service.KindInternal:                fiber.StatusInternalServerError,
}

// StatusFor maps a service error kind to its HTTP status.
func StatusFor(kind service.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return fiber.StatusInternalServerError
}

func serviceError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	kind := service.KindOf(err)
	message := constants.ERROR_INTERNAL_ERROR
	var se *service.Error
	if errors.As(err, &se) && kind != service.KindInternal {
		message = se.Message
	}
	if kind == service.KindInternal || kind == service.KindPersistenceVerification {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	}
	return utils.ErrorResponse(c, StatusFor(kind), string(kind), message)
}

func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userId").(uint)
	return id
}

func currentViewer(c *fiber.Ctx) service.Viewer {
	role, _ := c.Locals("role").(string)
	return service.Viewer{UserID: currentUserID(c), IsAdmin: role == constants.ROLE_ADMIN}
}

func pageFrom(c *fiber.Ctx) service.Page {
	input, _ := c.Locals("pageInput").(model.Pagination)
	limit, page := utils.PageParams(input.Limit, input.Page)
	return service.Page{Page: page, Limit: limit}
}
