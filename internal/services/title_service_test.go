package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCatalog(t *testing.T, db *gorm.DB) {
	t.Helper()
	catalog := NewCatalogService(db)
	ctx := context.Background()
	for _, req := range []dto.SlugRequest{{Name: "Movies", Slug: "movies"}, {Name: "Books", Slug: "books"}} {
		_, err := catalog.CreateCategory(ctx, &req)
		require.NoError(t, err)
	}
	for _, req := range []dto.SlugRequest{{Name: "Drama", Slug: "drama"}, {Name: "Comedy", Slug: "comedy"}} {
		_, err := catalog.CreateGenre(ctx, &req)
		require.NoError(t, err)
	}
}

func intPtr(v int) *int { return &v }

func TestTitleCreate(t *testing.T) {
	db := testutil.NewDB(t)
	seedCatalog(t, db)
	svc := NewTitleService(db)
	ctx := context.Background()

	title, err := svc.Create(ctx, &dto.CreateTitleRequest{
		Name:     "The Godfather",
		Year:     intPtr(1972),
		Genre:    []string{"drama", "comedy"},
		Category: "movies",
	})
	require.NoError(t, err)
	require.NotNil(t, title.Category)
	assert.Equal(t, "movies", title.Category.Slug)
	assert.Len(t, title.Genres, 2)
	assert.Nil(t, title.Rating)

	t.Run("unknown genre", func(t *testing.T) {
		_, err := svc.Create(ctx, &dto.CreateTitleRequest{
			Name: "X", Year: intPtr(2000), Genre: []string{"drama", "horror"}, Category: "movies",
		})
		assert.Contains(t, fieldErrors(t, err), "genre")
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := svc.Create(ctx, &dto.CreateTitleRequest{
			Name: "X", Year: intPtr(2000), Genre: []string{}, Category: "games",
		})
		assert.Contains(t, fieldErrors(t, err), "category")
	})

	t.Run("future year", func(t *testing.T) {
		_, err := svc.Create(ctx, &dto.CreateTitleRequest{
			Name: "X", Year: intPtr(time.Now().Year() + 1), Genre: []string{}, Category: "movies",
		})
		assert.Contains(t, fieldErrors(t, err), "year")
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Create(ctx, &dto.CreateTitleRequest{})
		fields := fieldErrors(t, err)
		assert.Contains(t, fields, "name")
		assert.Contains(t, fields, "year")
		assert.Contains(t, fields, "genre")
		assert.Contains(t, fields, "category")
	})
}

func TestTitleRatingIsMeanOfScores(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewTitleService(db)
	ctx := context.Background()

	title := testutil.CreateTitle(t, db, "Heat", 1995, nil)
	empty := testutil.CreateTitle(t, db, "Unreviewed", 2001, nil)
	testutil.CreateReview(t, db, title, testutil.CreateUser(t, db, "alice", models.RoleUser), 8)
	testutil.CreateReview(t, db, title, testutil.CreateUser(t, db, "bob", models.RoleUser), 6)

	got, err := svc.Get(ctx, title.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Rating)
	assert.InDelta(t, 7.0, *got.Rating, 1e-9)

	got, err = svc.Get(ctx, empty.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Rating)

	list, _, err := svc.List(ctx, dto.TitleFilter{}, PageParams{Page: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, empty.ID, list[0].ID)
	require.NotNil(t, list[1].Rating)
	assert.InDelta(t, 7.0, *list[1].Rating, 1e-9)
}

func TestTitleFilters(t *testing.T) {
	db := testutil.NewDB(t)
	seedCatalog(t, db)
	svc := NewTitleService(db)
	ctx := context.Background()

	create := func(name string, year int, category string, genres ...string) {
		_, err := svc.Create(ctx, &dto.CreateTitleRequest{
			Name: name, Year: intPtr(year), Genre: append([]string{}, genres...), Category: category,
		})
		require.NoError(t, err)
	}
	create("Dune", 1965, "books", "drama")
	create("Dune", 2021, "movies", "drama")
	create("Airplane!", 1980, "movies", "comedy")
	create("a_b", 2000, "books", "comedy")
	create("axb", 2001, "books", "comedy")

	cases := []struct {
		name   string
		filter dto.TitleFilter
		want   int64
	}{
		{"none", dto.TitleFilter{}, 5},
		{"category", dto.TitleFilter{Category: "movies"}, 2},
		{"genre", dto.TitleFilter{Genre: "drama"}, 2},
		{"name contains any case", dto.TitleFilter{Name: "dUn"}, 2},
		{"year", dto.TitleFilter{Year: intPtr(1980)}, 1},
		{"combined", dto.TitleFilter{Category: "movies", Genre: "drama"}, 1},
		{"no match", dto.TitleFilter{Genre: "horror"}, 0},
		{"underscore is literal", dto.TitleFilter{Name: "a_b"}, 1},
		{"percent is literal", dto.TitleFilter{Name: "%"}, 0},
		{"escape char is literal", dto.TitleFilter{Name: "e!"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, total, err := svc.List(ctx, tc.filter, PageParams{Page: 1, Size: 10})
			require.NoError(t, err)
			assert.Equal(t, tc.want, total)
			assert.Len(t, items, int(tc.want))
		})
	}
}

func TestTitleUpdate(t *testing.T) {
	db := testutil.NewDB(t)
	seedCatalog(t, db)
	svc := NewTitleService(db)
	ctx := context.Background()

	title, err := svc.Create(ctx, &dto.CreateTitleRequest{
		Name: "Old", Year: intPtr(1990), Genre: []string{"drama"}, Category: "movies",
	})
	require.NoError(t, err)

	name := "New"
	books := "books"
	genres := []string{"comedy"}
	updated, err := svc.Update(ctx, title.ID, &dto.UpdateTitleRequest{Name: &name, Category: &books, Genre: &genres})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, 1990, updated.Year)
	assert.Equal(t, "books", updated.Category.Slug)
	require.Len(t, updated.Genres, 1)
	assert.Equal(t, "comedy", updated.Genres[0].Slug)

	blank := ""
	_, err = svc.Update(ctx, title.ID, &dto.UpdateTitleRequest{Name: &blank})
	assert.Contains(t, fieldErrors(t, err), "name")

	_, err = svc.Update(ctx, 9999, &dto.UpdateTitleRequest{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTitleDeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewTitleService(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice", models.RoleUser)
	title := testutil.CreateTitle(t, db, "Heat", 1995, nil)
	other := testutil.CreateTitle(t, db, "Ronin", 1998, nil)
	review := testutil.CreateReview(t, db, title, alice, 9)
	kept := testutil.CreateReview(t, db, other, alice, 7)
	require.NoError(t, db.Omit("Author").Create(&models.Comment{ReviewID: review.ID, AuthorID: alice.ID, Text: "c"}).Error)

	require.NoError(t, svc.Delete(ctx, title.ID))

	var reviews, comments int64
	require.NoError(t, db.Model(&models.Review{}).Where("title_id = ?", title.ID).Count(&reviews).Error)
	require.NoError(t, db.Model(&models.Comment{}).Where("review_id = ?", review.ID).Count(&comments).Error)
	assert.Zero(t, reviews)
	assert.Zero(t, comments)

	require.NoError(t, db.First(&models.Review{}, kept.ID).Error)
	assert.ErrorIs(t, svc.Delete(ctx, title.ID), ErrNotFound)
}
