package handlers

import (
	"strconv"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/permissions"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/services"
	"github.com/gofiber/fiber/v2"
)

type TitleHandler struct {
	titleService *services.TitleService
	pageSize     int
}

func NewTitleHandler(titleService *services.TitleService, pageSize int) *TitleHandler {
	return &TitleHandler{titleService: titleService, pageSize: pageSize}
}

// List handles GET /v1/titles/
// @Summary List titles with their rating
// @Tags Titles
// @Produce json
// @Param category query string false "Category slug"
// @Param genre query string false "Genre slug"
// @Param name query string false "Name contains (case-insensitive)"
// @Param year query int false "Exact year"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.Page[dto.TitleResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/titles/ [get]
func (h *TitleHandler) List(c *fiber.Ctx) error {
	filter := dto.TitleFilter{
		Category: c.Query("category"),
		Genre:    c.Query("genre"),
		Name:     c.Query("name"),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return respondError(c, services.Invalid("year", "Enter a whole number."))
		}
		filter.Year = &year
	}

	page := pageParams(c, h.pageSize)
	titles, total, err := h.titleService.List(c.UserContext(), filter, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newPage(c, titles, total, page, dto.NewTitleResponse))
}

// Get handles GET /v1/titles/{title_id}/
// @Summary Get a title
// @Tags Titles
// @Produce json
// @Param title_id path int true "Title ID"
// @Success 200 {object} dto.TitleResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/titles/{title_id}/ [get]
func (h *TitleHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "title_id")
	if err != nil {
		return respondError(c, err)
	}

	title, err := h.titleService.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewTitleResponse(title))
}

// Create handles POST /v1/titles/
// @Summary Create a title
// @Description category and genre are given as slugs; the response nests the full objects.
// @Tags Titles
// @Accept json
// @Produce json
// @Param body body dto.CreateTitleRequest true "Title"
// @Success 201 {object} dto.TitleResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/titles/ [post]
func (h *TitleHandler) Create(c *fiber.Ctx) error {
	if ok, err := authorize(c, permissions.AdminOrReadOnly(c.Method(), middleware.Actor(c))); !ok {
		return err
	}

	var req dto.CreateTitleRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	title, err := h.titleService.Create(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewTitleResponse(title))
}

// Update handles PATCH /v1/titles/{title_id}/
// @Summary Update a title
// @Tags Titles
// @Accept json
// @Produce json
// @Param title_id path int true "Title ID"
// @Param body body dto.UpdateTitleRequest true "Fields to change"
// @Success 200 {object} dto.TitleResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/titles/{title_id}/ [patch]
func (h *TitleHandler) Update(c *fiber.Ctx) error {
	if ok, err := authorize(c, permissions.AdminOrReadOnly(c.Method(), middleware.Actor(c))); !ok {
		return err
	}

	id, err := paramID(c, "title_id")
	if err != nil {
		return respondError(c, err)
	}

	var req dto.UpdateTitleRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	title, err := h.titleService.Update(c.UserContext(), id, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewTitleResponse(title))
}

// Delete handles DELETE /v1/titles/{title_id}/
// @Summary Delete a title with its reviews and comments
// @Tags Titles
// @Param title_id path int true "Title ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/titles/{title_id}/ [delete]
func (h *TitleHandler) Delete(c *fiber.Ctx) error {
	if ok, err := authorize(c, permissions.AdminOrReadOnly(c.Method(), middleware.Actor(c))); !ok {
		return err
	}

	id, err := paramID(c, "title_id")
	if err != nil {
		return respondError(c, err)
	}

	if err := h.titleService.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
