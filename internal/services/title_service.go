package services

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/database"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"gorm.io/gorm"
)

// ratingColumn fills Title.Rating with the mean review score, NULL when the
// title has no reviews.
const ratingColumn = "(SELECT AVG(reviews.score) FROM reviews WHERE reviews.title_id = titles.id) AS rating"

type TitleService struct {
	db *gorm.DB
}

func NewTitleService(db *gorm.DB) *TitleService {
	return &TitleService{db: db}
}

func (s *TitleService) List(ctx context.Context, filter dto.TitleFilter, page PageParams) ([]models.Title, int64, error) {
	var (
		titles []models.Title
		total  int64
	)

	query := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Title{}).Scopes(filterTitles(filter))
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count titles: %w", err)
	}

	err := query().
		Scopes(withRating).
		Order("titles.id DESC").
		Scopes(Paginate(page)).
		Find(&titles).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list titles: %w", err)
	}
	return titles, total, nil
}

func (s *TitleService) Get(ctx context.Context, id uint) (*models.Title, error) {
	var title models.Title
	err := s.db.WithContext(ctx).Scopes(withRating).First(&title, id).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("title")
		}
		return nil, fmt.Errorf("failed to load title: %w", err)
	}
	return &title, nil
}

func (s *TitleService) Create(ctx context.Context, req *dto.CreateTitleRequest) (*models.Title, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	title := models.Title{
		Name:        req.Name,
		Year:        *req.Year,
		Description: req.Description,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := categoryBySlug(tx, req.Category)
		if err != nil {
			return err
		}
		genres, err := genresBySlug(tx, req.Genre)
		if err != nil {
			return err
		}

		title.CategoryID = &category.ID
		if err := tx.Omit("Genres", "Category").Create(&title).Error; err != nil {
			return fmt.Errorf("failed to create title: %w", err)
		}
		return linkGenres(tx, title.ID, genres)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, title.ID)
}

// Update applies the non-nil fields of req. A non-nil genre list replaces
// the title's genres.
func (s *TitleService) Update(ctx context.Context, id uint, req *dto.UpdateTitleRequest) (*models.Title, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var title models.Title
		if err := tx.First(&title, id).Error; err != nil {
			if database.IsNotFound(err) {
				return notFound("title")
			}
			return fmt.Errorf("failed to load title: %w", err)
		}

		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Year != nil {
			updates["year"] = *req.Year
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.Category != nil {
			category, err := categoryBySlug(tx, *req.Category)
			if err != nil {
				return err
			}
			updates["category_id"] = category.ID
		}
		if len(updates) > 0 {
			if err := tx.Model(&title).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update title: %w", err)
			}
		}

		if req.Genre != nil {
			genres, err := genresBySlug(tx, *req.Genre)
			if err != nil {
				return err
			}
			if err := tx.Exec("DELETE FROM genre_titles WHERE title_id = ?", title.ID).Error; err != nil {
				return fmt.Errorf("failed to unlink genres: %w", err)
			}
			return linkGenres(tx, title.ID, genres)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the title together with its reviews, their comments and
// its genre links.
func (s *TitleService) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var title models.Title
		if err := tx.Select("id").First(&title, id).Error; err != nil {
			if database.IsNotFound(err) {
				return notFound("title")
			}
			return fmt.Errorf("failed to load title: %w", err)
		}

		if err := tx.Where("review_id IN (SELECT id FROM reviews WHERE title_id = ?)", id).
			Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Where("title_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete reviews: %w", err)
		}
		if err := tx.Exec("DELETE FROM genre_titles WHERE title_id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to unlink genres: %w", err)
		}
		return tx.Delete(&title).Error
	})
}

// withRating selects every title column plus the computed rating and
// preloads the nested category and genres.
func withRating(db *gorm.DB) *gorm.DB {
	return db.Select("titles.*, " + ratingColumn).
		Preload("Category").
		Preload("Genres", func(db *gorm.DB) *gorm.DB {
			return db.Order("genres.id")
		})
}

func filterTitles(f dto.TitleFilter) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Category != "" {
			db = db.Where("titles.category_id IN (SELECT id FROM categories WHERE slug = ?)", f.Category)
		}
		if f.Genre != "" {
			db = db.Where("titles.id IN (SELECT genre_titles.title_id FROM genre_titles "+
				"JOIN genres ON genres.id = genre_titles.genre_id WHERE genres.slug = ?)", f.Genre)
		}
		if f.Year != nil {
			db = db.Where("titles.year = ?", *f.Year)
		}
		return db.Scopes(whereContainsFold("titles.name", f.Name))
	}
}

func categoryBySlug(tx *gorm.DB, slug string) (*models.Category, error) {
	var category models.Category
	if err := tx.Where("slug = ?", slug).First(&category).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, Invalid("category", fmt.Sprintf("Object with slug=%s does not exist.", slug))
		}
		return nil, fmt.Errorf("failed to load category: %w", err)
	}
	return &category, nil
}

// genresBySlug resolves every slug or fails naming the first unknown one.
func genresBySlug(tx *gorm.DB, slugs []string) ([]models.Genre, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	var genres []models.Genre
	if err := tx.Where("slug IN ?", slugs).Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("failed to load genres: %w", err)
	}

	known := make(map[string]bool, len(genres))
	for _, g := range genres {
		known[g.Slug] = true
	}
	for _, slug := range slugs {
		if !known[slug] {
			return nil, Invalid("genre", fmt.Sprintf("Object with slug=%s does not exist.", slug))
		}
	}
	return genres, nil
}

func linkGenres(tx *gorm.DB, titleID uint, genres []models.Genre) error {
	if len(genres) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(genres))
	for _, g := range genres {
		rows = append(rows, map[string]interface{}{"title_id": titleID, "genre_id": g.ID})
	}
	if err := tx.Table("genre_titles").Create(rows).Error; err != nil {
		return fmt.Errorf("failed to link genres: %w", err)
	}
	return nil
}
