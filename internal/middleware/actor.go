package middleware

import (
	"errors"
	"strconv"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/database"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/tokens"
	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const actorKey = "actor"

// LoadActor turns the verified token left by OptionalJWT into the current
// user. Anonymous requests are left alone; a token whose user no longer
// exists is a 401.
func LoadActor(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return c.Next()
		}

		userID, err := subjectFromToken(token)
		if err != nil {
			return unauthorized(c, "Unauthorized: invalid token subject")
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, userID).Error; err != nil {
			if database.IsNotFound(err) {
				return unauthorized(c, "Unauthorized: user not found")
			}
			return err
		}

		c.Locals(actorKey, &user)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.Scope().SetUser(sentry.User{ID: strconv.FormatUint(uint64(user.ID), 10), Username: user.Username})
		}
		return c.Next()
	}
}

// Actor returns the authenticated user, or nil for anonymous requests.
func Actor(c *fiber.Ctx) *models.User {
	if user, ok := c.Locals(actorKey).(*models.User); ok {
		return user
	}
	return nil
}

func subjectFromToken(token *jwt.Token) (uint, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid claims")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errors.New("missing sub claim")
	}
	return tokens.SubjectID(sub)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: message,
	})
}
