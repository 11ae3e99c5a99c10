package handlers

import (
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/permissions"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/services"
	"github.com/gofiber/fiber/v2"
)

// UserHandler serves the admin user endpoints and /users/me/. The admin
// routes are guarded by middleware.AdminRequired.
type UserHandler struct {
	userService *services.UserService
	pageSize    int
}

func NewUserHandler(userService *services.UserService, pageSize int) *UserHandler {
	return &UserHandler{userService: userService, pageSize: pageSize}
}

// List handles GET /v1/users/
// @Summary List users
// @Tags Users
// @Produce json
// @Param search query string false "Exact username"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.Page[dto.UserResponse]
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/ [get]
func (h *UserHandler) List(c *fiber.Ctx) error {
	page := pageParams(c, h.pageSize)
	users, total, err := h.userService.List(c.UserContext(), c.Query("search"), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newPage(c, users, total, page, dto.NewUserResponse))
}

// Create handles POST /v1/users/
// @Summary Create a user
// @Tags Users
// @Accept json
// @Produce json
// @Param body body dto.CreateUserRequest true "User"
// @Success 201 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/ [post]
func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	user, err := h.userService.Create(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewUserResponse(user))
}

// Get handles GET /v1/users/{username}/
// @Summary Get a user
// @Tags Users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} dto.UserResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/{username}/ [get]
func (h *UserHandler) Get(c *fiber.Ctx) error {
	user, err := h.userService.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Update handles PATCH /v1/users/{username}/
// @Summary Update a user
// @Tags Users
// @Accept json
// @Produce json
// @Param username path string true "Username"
// @Param body body dto.UpdateUserRequest true "Fields to change"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/{username}/ [patch]
func (h *UserHandler) Update(c *fiber.Ctx) error {
	user, err := h.userService.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}

	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	updated, err := h.userService.Update(c.UserContext(), user, &req, true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(updated))
}

// Delete handles DELETE /v1/users/{username}/
// @Summary Delete a user with their reviews and comments
// @Tags Users
// @Param username path string true "Username"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/{username}/ [delete]
func (h *UserHandler) Delete(c *fiber.Ctx) error {
	user, err := h.userService.GetByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	if err := h.userService.Delete(c.UserContext(), user); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me handles GET /v1/users/me/
// @Summary Current user's profile
// @Tags Users
// @Produce json
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/me/ [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	if ok, err := authorize(c, permissions.Authenticated(actor)); !ok {
		return err
	}
	return c.JSON(dto.NewUserResponse(actor))
}

// UpdateMe handles PATCH /v1/users/me/
// @Summary Update the current user's profile
// @Description The role field is accepted but ignored.
// @Tags Users
// @Accept json
// @Produce json
// @Param body body dto.UpdateUserRequest true "Fields to change"
// @Success 200 {object} dto.UserResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/users/me/ [patch]
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	if ok, err := authorize(c, permissions.Authenticated(actor)); !ok {
		return err
	}

	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	req.Role = nil

	updated, err := h.userService.Update(c.UserContext(), actor, &req, false)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewUserResponse(updated))
}
