package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/permissions"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/services"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

// respondError renders err with the status its kind maps to. Anything
// unrecognised is logged, reported and hidden behind a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Validation failed", Fields: verr.Fields,
		})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, permissions.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, permissions.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	case errors.Is(err, services.ErrMailDelivery):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}

	attrs := []any{
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		"action", c.Method() + " " + c.Route().Path,
		"error", err,
	}
	if actor := middleware.Actor(c); actor != nil {
		attrs = append(attrs, "user_id", actor.ID)
	}
	slog.Error("request failed", attrs...)
	if hub := sentryfiber.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}

	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}

// authorize writes the denial for d and returns false when the request may
// not proceed.
func authorize(c *fiber.Ctx, d permissions.Decision) (bool, error) {
	if d.Allowed() {
		return true, nil
	}
	return false, respondError(c, d.Err())
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: "Invalid request body",
	})
}

// paramID reads a positive integer path parameter. Anything else cannot
// name an existing row, so it is reported as not found.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s %w", name, services.ErrNotFound)
	}
	return uint(id), nil
}

func pageParams(c *fiber.Ctx, defaultSize int) services.PageParams {
	return services.PageParams{
		Page: c.QueryInt("page", 1),
		Size: c.QueryInt("page_size", defaultSize),
	}.Normalize(defaultSize)
}

// newPage wraps one page of items in the list envelope. next and previous
// are absolute URLs that keep every other query parameter.
func newPage[M any, T any](c *fiber.Ctx, items []M, total int64, p services.PageParams, convert func(*M) T) dto.Page[T] {
	page := dto.Page[T]{Count: total, Results: make([]T, 0, len(items))}
	for i := range items {
		page.Results = append(page.Results, convert(&items[i]))
	}
	if int64(p.Page)*int64(p.Size) < total {
		page.Next = pageURL(c, p.Page+1)
	}
	if p.Page > 1 {
		page.Previous = pageURL(c, p.Page-1)
	}
	return page
}

func pageURL(c *fiber.Ctx, page int) *string {
	query := url.Values{}
	for k, v := range c.Queries() {
		query.Set(k, v)
	}
	if page > 1 {
		query.Set("page", strconv.Itoa(page))
	} else {
		query.Del("page")
	}

	u := c.BaseURL() + c.Path()
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return &u
}
