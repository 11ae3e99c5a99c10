package models

import (
	"time"
)

// Role is the closed set of user roles. Superuser status is tracked
// separately on User.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	Email       string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	Role        Role      `gorm:"size:16;not null;default:'user'" json:"role"`
	FirstName   string    `gorm:"size:150" json:"first_name"`
	LastName    string    `gorm:"size:150" json:"last_name"`
	Bio         string    `gorm:"type:text" json:"bio"`
	IsSuperuser bool      `gorm:"not null;default:false" json:"-"`
	CodeNonce   string    `gorm:"size:36" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Reviews  []Review  `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
	Comments []Comment `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"-"`
}
