package services

import (
	"strings"

	"gorm.io/gorm"
)

// whereEquals filters column = value. An empty value leaves the query alone,
// which is how optional list filters are expressed.
func whereEquals(column, value string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if value == "" {
			return db
		}
		return db.Where(column+" = ?", value)
	}
}

// likeEscaper makes a user value literal inside a LIKE pattern. '!' is used
// as the escape character because backslash is itself an escape in MySQL
// string literals.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// whereContainsFold is a case-insensitive substring match on column. The
// value is matched literally.
func whereContainsFold(column, value string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if value == "" {
			return db
		}
		pattern := "%" + likeEscaper.Replace(strings.ToLower(value)) + "%"
		return db.Where("LOWER("+column+") LIKE ? ESCAPE '!'", pattern)
	}
}
