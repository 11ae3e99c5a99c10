package services

import (
	"context"
	"testing"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserCreate(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewUserService(db)
	ctx := context.Background()

	user, err := svc.Create(ctx, &dto.CreateUserRequest{Username: "carol", Email: "carol@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)

	mod, err := svc.Create(ctx, &dto.CreateUserRequest{Username: "mod", Email: "mod@example.com", Role: models.RoleModerator})
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, mod.Role)

	t.Run("taken username and email", func(t *testing.T) {
		_, err := svc.Create(ctx, &dto.CreateUserRequest{Username: "carol", Email: "carol@example.com"})
		fields := fieldErrors(t, err)
		assert.Contains(t, fields, "username")
		assert.Contains(t, fields, "email")
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := svc.Create(ctx, &dto.CreateUserRequest{Username: "dave", Email: "dave@example.com", Role: "owner"})
		assert.Contains(t, fieldErrors(t, err), "role")
	})

	t.Run("reserved username", func(t *testing.T) {
		_, err := svc.Create(ctx, &dto.CreateUserRequest{Username: "me", Email: "me@example.com"})
		assert.Contains(t, fieldErrors(t, err), "username")
	})
}

func TestUserListSearch(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewUserService(db)
	ctx := context.Background()
	testutil.CreateUser(t, db, "alice", models.RoleUser)
	testutil.CreateUser(t, db, "alicia", models.RoleUser)

	users, total, err := svc.List(ctx, "", PageParams{Page: 1, Size: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, users, 1)
	assert.Equal(t, "alicia", users[0].Username)

	users, total, err = svc.List(ctx, "alice", PageParams{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "alice", users[0].Username)
}

func TestUserUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewUserService(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", models.RoleUser)
	testutil.CreateUser(t, db, "bob", models.RoleUser)

	t.Run("role ignored unless allowed", func(t *testing.T) {
		admin := models.RoleAdmin
		updated, err := svc.Update(ctx, alice, &dto.UpdateUserRequest{Bio: strPtr("hi"), Role: &admin}, false)
		require.NoError(t, err)
		assert.Equal(t, "hi", updated.Bio)
		assert.Equal(t, models.RoleUser, updated.Role)

		updated, err = svc.Update(ctx, alice, &dto.UpdateUserRequest{Role: &admin}, true)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdmin, updated.Role)
	})

	t.Run("username collision", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, &dto.UpdateUserRequest{Username: strPtr("bob")}, true)
		assert.Contains(t, fieldErrors(t, err), "username")
	})

	t.Run("keeping own username is fine", func(t *testing.T) {
		_, err := svc.Update(ctx, alice, &dto.UpdateUserRequest{Username: strPtr("alice")}, false)
		assert.NoError(t, err)
	})

	t.Run("identity change rotates nonce", func(t *testing.T) {
		before, err := svc.GetByID(ctx, alice.ID)
		require.NoError(t, err)

		after, err := svc.Update(ctx, before, &dto.UpdateUserRequest{Email: strPtr("alice@new.example.com")}, false)
		require.NoError(t, err)
		assert.NotEqual(t, before.CodeNonce, after.CodeNonce)
		assert.Equal(t, "alice@new.example.com", after.Email)
	})
}

func TestUserDeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewUserService(db)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice", models.RoleUser)
	bob := testutil.CreateUser(t, db, "bob", models.RoleUser)
	title := testutil.CreateTitle(t, db, "Heat", 1995, nil)
	review := testutil.CreateReview(t, db, title, alice, 8)
	bobsReview := testutil.CreateReview(t, db, title, bob, 5)
	require.NoError(t, db.Omit("Author").Create(&models.Comment{ReviewID: review.ID, AuthorID: bob.ID, Text: "on alice"}).Error)
	require.NoError(t, db.Omit("Author").Create(&models.Comment{ReviewID: bobsReview.ID, AuthorID: alice.ID, Text: "by alice"}).Error)

	require.NoError(t, svc.Delete(ctx, alice))

	var reviews, comments int64
	require.NoError(t, db.Model(&models.Review{}).Count(&reviews).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.EqualValues(t, 1, reviews)
	assert.Zero(t, comments)

	_, err := svc.GetByUsername(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}
