package handlers

import (
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/permissions"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/services"
	"github.com/gofiber/fiber/v2"
)

// ReviewHandler serves reviews nested under /v1/titles/{title_id}/.
type ReviewHandler struct {
	reviewService *services.ReviewService
	pageSize      int
}

func NewReviewHandler(reviewService *services.ReviewService, pageSize int) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, pageSize: pageSize}
}

// List handles GET /v1/titles/{title_id}/reviews/
// @Summary List a title's reviews
// @Tags Reviews
// @Produce json
// @Param title_id path int true "Title ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.Page[dto.ReviewResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/titles/{title_id}/reviews/ [get]
func (h *ReviewHandler) List(c *fiber.Ctx) error {
	titleID, err := paramID(c, "title_id")
	if err != nil {
		return respondError(c, err)
	}

	page := pageParams(c, h.pageSize)
	reviews, total, err := h.reviewService.List(c.UserContext(), titleID, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newPage(c, reviews, total, page, dto.NewReviewResponse))
}

// Create handles POST /v1/titles/{title_id}/reviews/
// @Summary Review a title
// @Description One review per user and title.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param title_id path int true "Title ID"
// @Param body body dto.CreateReviewRequest true "Review"
// @Success 201 {object} dto.ReviewResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/titles/{title_id}/reviews/ [post]
func (h *ReviewHandler) Create(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	if ok, err := authorize(c, permissions.OwnerOrStaffOrReadOnly(c.Method(), actor, 0)); !ok {
		return err
	}

	titleID, err := paramID(c, "title_id")
	if err != nil {
		return respondError(c, err)
	}

	var req dto.CreateReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	review, err := h.reviewService.Create(c.UserContext(), titleID, actor, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewReviewResponse(review))
}

// Get handles GET /v1/titles/{title_id}/reviews/{review_id}/
// @Summary Get a review
// @Tags Reviews
// @Produce json
// @Param title_id path int true "Title ID"
// @Param review_id path int true "Review ID"
// @Success 200 {object} dto.ReviewResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/titles/{title_id}/reviews/{review_id}/ [get]
func (h *ReviewHandler) Get(c *fiber.Ctx) error {
	review, err := h.load(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewReviewResponse(review))
}

// Update handles PATCH /v1/titles/{title_id}/reviews/{review_id}/
// @Summary Update a review
// @Description Allowed for the author, moderators and admins.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param title_id path int true "Title ID"
// @Param review_id path int true "Review ID"
// @Param body body dto.UpdateReviewRequest true "Fields to change"
// @Success 200 {object} dto.ReviewResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/titles/{title_id}/reviews/{review_id}/ [patch]
func (h *ReviewHandler) Update(c *fiber.Ctx) error {
	review, err := h.load(c)
	if err != nil {
		return respondError(c, err)
	}
	if ok, err := authorize(c, permissions.OwnerOrStaffOrReadOnly(c.Method(), middleware.Actor(c), review.AuthorID)); !ok {
		return err
	}

	var req dto.UpdateReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	updated, err := h.reviewService.Update(c.UserContext(), review, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewReviewResponse(updated))
}

// Delete handles DELETE /v1/titles/{title_id}/reviews/{review_id}/
// @Summary Delete a review and its comments
// @Tags Reviews
// @Param title_id path int true "Title ID"
// @Param review_id path int true "Review ID"
// @Success 204
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/titles/{title_id}/reviews/{review_id}/ [delete]
func (h *ReviewHandler) Delete(c *fiber.Ctx) error {
	review, err := h.load(c)
	if err != nil {
		return respondError(c, err)
	}
	if ok, err := authorize(c, permissions.OwnerOrStaffOrReadOnly(c.Method(), middleware.Actor(c), review.AuthorID)); !ok {
		return err
	}

	if err := h.reviewService.Delete(c.UserContext(), review); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ReviewHandler) load(c *fiber.Ctx) (*models.Review, error) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return nil, err
	}
	return h.reviewService.Get(c.UserContext(), titleID, reviewID)
}
