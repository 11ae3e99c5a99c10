package handlers

import (
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/permissions"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/services"
	"github.com/gofiber/fiber/v2"
)

// CatalogHandler serves categories and genres. Anyone may list them; only
// admins may create or delete.
type CatalogHandler struct {
	catalogService *services.CatalogService
	pageSize       int
}

func NewCatalogHandler(catalogService *services.CatalogService, pageSize int) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, pageSize: pageSize}
}

// ListCategories handles GET /v1/categories/
// @Summary List categories
// @Tags Categories
// @Produce json
// @Param search query string false "Exact name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.Page[dto.SlugResponse]
// @Router /v1/categories/ [get]
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	page := pageParams(c, h.pageSize)
	items, total, err := h.catalogService.ListCategories(c.UserContext(), c.Query("search"), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newPage(c, items, total, page, dto.NewCategoryResponse))
}

// CreateCategory handles POST /v1/categories/
// @Summary Create a category
// @Tags Categories
// @Accept json
// @Produce json
// @Param body body dto.SlugRequest true "Category"
// @Success 201 {object} dto.SlugResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/categories/ [post]
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	if ok, err := authorize(c, permissions.AdminOrReadOnly(c.Method(), middleware.Actor(c))); !ok {
		return err
	}

	var req dto.SlugRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	category, err := h.catalogService.CreateCategory(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCategoryResponse(category))
}

// DeleteCategory handles DELETE /v1/categories/{slug}/
// @Summary Delete a category
// @Description Titles in the category are kept without one.
// @Tags Categories
// @Param slug path string true "Category slug"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/categories/{slug}/ [delete]
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	if ok, err := authorize(c, permissions.AdminOrReadOnly(c.Method(), middleware.Actor(c))); !ok {
		return err
	}

	if err := h.catalogService.DeleteCategory(c.UserContext(), c.Params("slug")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListGenres handles GET /v1/genres/
// @Summary List genres
// @Tags Genres
// @Produce json
// @Param search query string false "Exact name"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.Page[dto.SlugResponse]
// @Router /v1/genres/ [get]
func (h *CatalogHandler) ListGenres(c *fiber.Ctx) error {
	page := pageParams(c, h.pageSize)
	items, total, err := h.catalogService.ListGenres(c.UserContext(), c.Query("search"), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newPage(c, items, total, page, dto.NewGenreResponse))
}

// CreateGenre handles POST /v1/genres/
// @Summary Create a genre
// @Tags Genres
// @Accept json
// @Produce json
// @Param body body dto.SlugRequest true "Genre"
// @Success 201 {object} dto.SlugResponse
// @Failure 400 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/genres/ [post]
func (h *CatalogHandler) CreateGenre(c *fiber.Ctx) error {
	if ok, err := authorize(c, permissions.AdminOrReadOnly(c.Method(), middleware.Actor(c))); !ok {
		return err
	}

	var req dto.SlugRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	genre, err := h.catalogService.CreateGenre(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewGenreResponse(genre))
}

// DeleteGenre handles DELETE /v1/genres/{slug}/
// @Summary Delete a genre
// @Tags Genres
// @Param slug path string true "Genre slug"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/genres/{slug}/ [delete]
func (h *CatalogHandler) DeleteGenre(c *fiber.Ctx) error {
	if ok, err := authorize(c, permissions.AdminOrReadOnly(c.Method(), middleware.Actor(c))); !ok {
		return err
	}

	if err := h.catalogService.DeleteGenre(c.UserContext(), c.Params("slug")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
