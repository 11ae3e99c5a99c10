// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/database"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database with foreign keys on.
// The pool is pinned to one connection so every query sees the same memory
// database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with the given role.
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTitle inserts a title, optionally in a category.
func CreateTitle(t *testing.T, db *gorm.DB, name string, year int, category *models.Category) *models.Title {
	t.Helper()

	title := &models.Title{Name: name, Year: year}
	if category != nil {
		title.CategoryID = &category.ID
	}
	require.NoError(t, db.Create(title).Error)
	return title
}

// CreateReview inserts a review of title by author.
func CreateReview(t *testing.T, db *gorm.DB, title *models.Title, author *models.User, score int) *models.Review {
	t.Helper()

	review := &models.Review{
		TitleID:  title.ID,
		AuthorID: author.ID,
		Text:     "review by " + author.Username,
		Score:    score,
	}
	require.NoError(t, db.Omit("Author").Create(review).Error)
	return review
}
