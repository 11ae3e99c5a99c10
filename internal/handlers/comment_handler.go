package handlers

import (
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/permissions"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/services"
	"github.com/gofiber/fiber/v2"
)

type CommentHandler struct {
	commentService *services.CommentService
	pageSize       int
}

func NewCommentHandler(commentService *services.CommentService, pageSize int) *CommentHandler {
	return &CommentHandler{commentService: commentService, pageSize: pageSize}
}

// List handles GET /v1/titles/{title_id}/reviews/{review_id}/comments/
// @Summary List a review's comments
// @Tags Comments
// @Produce json
// @Param title_id path int true "Title ID"
// @Param review_id path int true "Review ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.Page[dto.CommentResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/titles/{title_id}/reviews/{review_id}/comments/ [get]
func (h *CommentHandler) List(c *fiber.Ctx) error {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return respondError(c, err)
	}

	page := pageParams(c, h.pageSize)
	comments, total, err := h.commentService.List(c.UserContext(), titleID, reviewID, page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(newPage(c, comments, total, page, dto.NewCommentResponse))
}

// Create handles POST /v1/titles/{title_id}/reviews/{review_id}/comments/
// @Summary Comment on a review
// @Tags Comments
// @Accept json
// @Produce json
// @Param title_id path int true "Title ID"
// @Param review_id path int true "Review ID"
// @Param body body dto.CommentRequest true "Comment"
// @Success 201 {object} dto.CommentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/titles/{title_id}/reviews/{review_id}/comments/ [post]
func (h *CommentHandler) Create(c *fiber.Ctx) error {
	actor := middleware.Actor(c)
	if ok, err := authorize(c, permissions.AuthenticatedOrReadOnly(c.Method(), actor)); !ok {
		return err
	}

	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return respondError(c, err)
	}

	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	comment, err := h.commentService.Create(c.UserContext(), titleID, reviewID, actor, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewCommentResponse(comment))
}

// Get handles GET /v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}/
// @Summary Get a comment
// @Tags Comments
// @Produce json
// @Param title_id path int true "Title ID"
// @Param review_id path int true "Review ID"
// @Param comment_id path int true "Comment ID"
// @Success 200 {object} dto.CommentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}/ [get]
func (h *CommentHandler) Get(c *fiber.Ctx) error {
	comment, err := h.load(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewCommentResponse(comment))
}

// Update handles PATCH /v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}/
// @Summary Update a comment
// @Description Allowed for the author, moderators and admins.
// @Tags Comments
// @Accept json
// @Produce json
// @Param title_id path int true "Title ID"
// @Param review_id path int true "Review ID"
// @Param comment_id path int true "Comment ID"
// @Param body body dto.CommentRequest true "New text"
// @Success 200 {object} dto.CommentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}/ [patch]
func (h *CommentHandler) Update(c *fiber.Ctx) error {
	comment, err := h.load(c)
	if err != nil {
		return respondError(c, err)
	}
	if ok, err := authorize(c, h.canChange(c, comment)); !ok {
		return err
	}

	var req dto.CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	updated, err := h.commentService.Update(c.UserContext(), comment, &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.NewCommentResponse(updated))
}

// Delete handles DELETE /v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}/
// @Summary Delete a comment
// @Tags Comments
// @Param title_id path int true "Title ID"
// @Param review_id path int true "Review ID"
// @Param comment_id path int true "Comment ID"
// @Success 204
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Security BearerAuth
// @Router /v1/titles/{title_id}/reviews/{review_id}/comments/{comment_id}/ [delete]
func (h *CommentHandler) Delete(c *fiber.Ctx) error {
	comment, err := h.load(c)
	if err != nil {
		return respondError(c, err)
	}
	if ok, err := authorize(c, h.canChange(c, comment)); !ok {
		return err
	}

	if err := h.commentService.Delete(c.UserContext(), comment); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CommentHandler) canChange(c *fiber.Ctx, comment *models.Comment) permissions.Decision {
	actor := middleware.Actor(c)
	return permissions.All(
		permissions.AuthenticatedOrReadOnly(c.Method(), actor),
		permissions.OwnerOrStaffOrReadOnly(c.Method(), actor, comment.AuthorID),
	)
}

func (h *CommentHandler) load(c *fiber.Ctx) (*models.Comment, error) {
	titleID, reviewID, err := reviewPath(c)
	if err != nil {
		return nil, err
	}
	commentID, err := paramID(c, "comment_id")
	if err != nil {
		return nil, err
	}
	return h.commentService.Get(c.UserContext(), titleID, reviewID, commentID)
}

func reviewPath(c *fiber.Ctx) (titleID, reviewID uint, err error) {
	if titleID, err = paramID(c, "title_id"); err != nil {
		return 0, 0, err
	}
	if reviewID, err = paramID(c, "review_id"); err != nil {
		return 0, 0, err
	}
	return titleID, reviewID, nil
}
