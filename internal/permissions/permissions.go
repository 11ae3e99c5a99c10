// Package permissions holds the capability checks every handler runs before
// touching the store. Each check returns a Decision instead of writing a
// response, so the same rules serve handlers and tests alike.
package permissions

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/gofiber/fiber/v2"
)

var (
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
)

// Reason says why a request was denied.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonUnauthenticated
	ReasonForbidden
)

// Decision is Allow or Deny(reason).
type Decision struct {
	Reason Reason
}

func Allow() Decision { return Decision{} }

func Deny(reason Reason) Decision { return Decision{Reason: reason} }

func (d Decision) Allowed() bool { return d.Reason == ReasonNone }

// Err maps a denial onto ErrUnauthenticated or ErrForbidden.
func (d Decision) Err() error {
	switch d.Reason {
	case ReasonUnauthenticated:
		return ErrUnauthenticated
	case ReasonForbidden:
		return ErrForbidden
	}
	return nil
}

// IsPrivileged is the single admin capability: the admin role or the
// superuser flag.
func IsPrivileged(role models.Role, isSuperuser bool) bool {
	return role == models.RoleAdmin || isSuperuser
}

func IsSafeMethod(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return true
	}
	return false
}

// Authenticated allows any logged-in actor. A nil actor is anonymous.
func Authenticated(actor *models.User) Decision {
	if actor == nil {
		return Deny(ReasonUnauthenticated)
	}
	return Allow()
}

// AuthenticatedOrReadOnly lets anyone read and logged-in actors write.
func AuthenticatedOrReadOnly(method string, actor *models.User) Decision {
	if IsSafeMethod(method) {
		return Allow()
	}
	return Authenticated(actor)
}

// AdminOnly requires a privileged actor for every method.
func AdminOnly(actor *models.User) Decision {
	if actor == nil {
		return Deny(ReasonUnauthenticated)
	}
	if !IsPrivileged(actor.Role, actor.IsSuperuser) {
		return Deny(ReasonForbidden)
	}
	return Allow()
}

// AdminOrReadOnly lets anyone read; writes need a privileged actor.
func AdminOrReadOnly(method string, actor *models.User) Decision {
	if IsSafeMethod(method) {
		return Allow()
	}
	return AdminOnly(actor)
}

// OwnerOrStaffOrReadOnly guards user content. Reads pass, any logged-in
// actor may create, and changing an existing object takes its author, a
// moderator or a privileged actor.
func OwnerOrStaffOrReadOnly(method string, actor *models.User, authorID uint) Decision {
	if IsSafeMethod(method) {
		return Allow()
	}
	if actor == nil {
		return Deny(ReasonUnauthenticated)
	}
	if method == fiber.MethodPost {
		return Allow()
	}
	if actor.ID == authorID ||
		actor.Role == models.RoleModerator ||
		IsPrivileged(actor.Role, actor.IsSuperuser) {
		return Allow()
	}
	return Deny(ReasonForbidden)
}

// All returns the first denial among decisions, or Allow.
func All(decisions ...Decision) Decision {
	for _, d := range decisions {
		if !d.Allowed() {
			return d
		}
	}
	return Allow()
}
