package services

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/database"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"gorm.io/gorm"
)

// CatalogService manages categories and genres, both addressed by slug.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) ListCategories(ctx context.Context, search string, page PageParams) ([]models.Category, int64, error) {
	return listSlugged[models.Category](s.db.WithContext(ctx), search, page)
}

func (s *CatalogService) CreateCategory(ctx context.Context, req *dto.SlugRequest) (*models.Category, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	category := &models.Category{Name: req.Name, Slug: req.Slug}
	if err := createSlugged(s.db.WithContext(ctx), category, "category"); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory removes the category and leaves its titles uncategorised.
func (s *CatalogService) DeleteCategory(ctx context.Context, slug string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Where("slug = ?", slug).First(&category).Error; err != nil {
			if database.IsNotFound(err) {
				return notFound("category")
			}
			return fmt.Errorf("failed to load category: %w", err)
		}
		if err := tx.Model(&models.Title{}).
			Where("category_id = ?", category.ID).
			Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach titles: %w", err)
		}
		return tx.Delete(&category).Error
	})
}

func (s *CatalogService) ListGenres(ctx context.Context, search string, page PageParams) ([]models.Genre, int64, error) {
	return listSlugged[models.Genre](s.db.WithContext(ctx), search, page)
}

func (s *CatalogService) CreateGenre(ctx context.Context, req *dto.SlugRequest) (*models.Genre, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	genre := &models.Genre{Name: req.Name, Slug: req.Slug}
	if err := createSlugged(s.db.WithContext(ctx), genre, "genre"); err != nil {
		return nil, err
	}
	return genre, nil
}

// DeleteGenre removes the genre and its links to titles.
func (s *CatalogService) DeleteGenre(ctx context.Context, slug string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var genre models.Genre
		if err := tx.Where("slug = ?", slug).First(&genre).Error; err != nil {
			if database.IsNotFound(err) {
				return notFound("genre")
			}
			return fmt.Errorf("failed to load genre: %w", err)
		}
		if err := tx.Exec("DELETE FROM genre_titles WHERE genre_id = ?", genre.ID).Error; err != nil {
			return fmt.Errorf("failed to unlink genre: %w", err)
		}
		return tx.Delete(&genre).Error
	})
}

func listSlugged[T models.Category | models.Genre](db *gorm.DB, search string, page PageParams) ([]T, int64, error) {
	var (
		items []T
		total int64
	)
	query := func() *gorm.DB {
		return db.Model(new(T)).Scopes(whereEquals("name", search))
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count: %w", err)
	}
	if err := query().Order("id DESC").Scopes(Paginate(page)).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list: %w", err)
	}
	return items, total, nil
}

func createSlugged(db *gorm.DB, value interface{}, resource string) error {
	if err := db.Create(value).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return Invalid("slug", fmt.Sprintf("%s with this slug already exists.", resource))
		}
		return fmt.Errorf("failed to create %s: %w", resource, err)
	}
	return nil
}
