package middleware

import (
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/permissions"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired rejects anonymous callers with 401 and callers without the
// admin capability with 403. It must run after LoadActor.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		decision := permissions.AdminOnly(Actor(c))
		if decision.Allowed() {
			return c.Next()
		}

		status := fiber.StatusForbidden
		if decision.Reason == permissions.ReasonUnauthenticated {
			status = fiber.StatusUnauthorized
		}
		return c.Status(status).JSON(dto.ErrorResponse{
			Error: true, Message: decision.Err().Error(),
		})
	}
}
