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

func TestCategoryLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewCatalogService(db)
	ctx := context.Background()

	movies, err := svc.CreateCategory(ctx, &dto.SlugRequest{Name: "Movies", Slug: "movies"})
	require.NoError(t, err)
	_, err = svc.CreateCategory(ctx, &dto.SlugRequest{Name: "Books", Slug: "books"})
	require.NoError(t, err)

	t.Run("duplicate slug", func(t *testing.T) {
		_, err := svc.CreateCategory(ctx, &dto.SlugRequest{Name: "Films", Slug: "movies"})
		assert.Contains(t, fieldErrors(t, err), "slug")
	})

	t.Run("invalid slug", func(t *testing.T) {
		_, err := svc.CreateCategory(ctx, &dto.SlugRequest{Name: "Bad", Slug: "no spaces"})
		assert.Contains(t, fieldErrors(t, err), "slug")
	})

	t.Run("list newest first", func(t *testing.T) {
		items, total, err := svc.ListCategories(ctx, "", PageParams{Page: 1, Size: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)
		require.Len(t, items, 2)
		assert.Equal(t, "books", items[0].Slug)
	})

	t.Run("search is exact", func(t *testing.T) {
		items, total, err := svc.ListCategories(ctx, "Movies", PageParams{Page: 1, Size: 10})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Equal(t, "movies", items[0].Slug)

		_, total, err = svc.ListCategories(ctx, "Mov", PageParams{Page: 1, Size: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("delete leaves titles uncategorised", func(t *testing.T) {
		title := testutil.CreateTitle(t, db, "Alien", 1979, movies)

		require.NoError(t, svc.DeleteCategory(ctx, "movies"))

		var reloaded models.Title
		require.NoError(t, db.First(&reloaded, title.ID).Error)
		assert.Nil(t, reloaded.CategoryID)

		assert.ErrorIs(t, svc.DeleteCategory(ctx, "movies"), ErrNotFound)
	})
}

func TestDeleteGenreUnlinksTitles(t *testing.T) {
	db := testutil.NewDB(t)
	catalog := NewCatalogService(db)
	titles := NewTitleService(db)
	ctx := context.Background()

	_, err := catalog.CreateCategory(ctx, &dto.SlugRequest{Name: "Movies", Slug: "movies"})
	require.NoError(t, err)
	_, err = catalog.CreateGenre(ctx, &dto.SlugRequest{Name: "Drama", Slug: "drama"})
	require.NoError(t, err)

	year := 1994
	title, err := titles.Create(ctx, &dto.CreateTitleRequest{
		Name: "Shawshank", Year: &year, Genre: []string{"drama"}, Category: "movies",
	})
	require.NoError(t, err)
	require.Len(t, title.Genres, 1)

	require.NoError(t, catalog.DeleteGenre(ctx, "drama"))

	reloaded, err := titles.Get(ctx, title.ID)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Genres)

	assert.ErrorIs(t, catalog.DeleteGenre(ctx, "drama"), ErrNotFound)
}
