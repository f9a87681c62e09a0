package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"grocery_store/constants"
	"grocery_store/helper"
	"grocery_store/model"
	"grocery_store/service"
	"grocery_store/utils"
)

type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
}

type AuthHandler struct {
	users  UserLookup
	secret []byte
	logger *zap.Logger
}

func NewAuthHandler(users UserLookup, secret []byte, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{users: users, secret: secret, logger: logger}
}

// Login exchanges email and password for an access token, returned in the body and as an HTTP-only cookie.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	input := c.Locals("loginInput").(model.LoginInput)

	user, err := h.users.FindByEmail(c.UserContext(), input.Email)
	if err != nil && !errors.Is(err, service.ErrRecordNotFound) {
		h.logger.Error("login lookup failed", zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, string(service.KindInternal), constants.ERROR_INTERNAL_ERROR)
	}
	if err != nil || !helper.CheckPasswordHash(input.Password, user.PasswordHash) {
		return utils.ErrorResponse(c, fiber.StatusUnauthorized, "unauthorized", constants.ERROR_INVALID_LOGIN)
	}

	token, err := helper.GenerateAccessToken(model.TokenClaim{UserID: user.ID, Role: user.Role}, h.secret)
	if err != nil {
		h.logger.Error("token signing failed", zap.Error(err))
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, string(service.KindInternal), constants.ERROR_INTERNAL_ERROR)
	}

	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    token,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
	return utils.SuccessResponse(c, fiber.StatusOK, fiber.Map{
		"accessToken": token,
		"user":        user,
	})
}
