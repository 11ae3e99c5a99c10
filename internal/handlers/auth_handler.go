package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Signup handles POST /v1/auth/signup/
// @Summary Request a confirmation code
// @Description Creates the user on first use and mails a confirmation code. Repeating the call with the same pair mails a new code.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.SignupRequest true "Email and username"
// @Success 200 {object} dto.SignupResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/auth/signup/ [post]
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.Signup(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(resp)
}

// Token handles POST /v1/auth/token/
// @Summary Exchange a confirmation code for an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.TokenRequest true "Username and confirmation code"
// @Success 200 {object} dto.TokenResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/auth/token/ [post]
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	resp, err := h.authService.ExchangeCode(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCode) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"confirmation_code": "invalid"})
		}
		return respondError(c, err)
	}
	return c.JSON(resp)
}
