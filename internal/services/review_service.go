package services

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/database"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"gorm.io/gorm"
)

const duplicateReviewMessage = "You have already reviewed this title."

// ReviewService manages reviews nested under a title.
type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

func (s *ReviewService) List(ctx context.Context, titleID uint, page PageParams) ([]models.Review, int64, error) {
	db := s.db.WithContext(ctx)
	if err := titleExists(db, titleID); err != nil {
		return nil, 0, err
	}

	var (
		reviews []models.Review
		total   int64
	)
	if err := db.Model(&models.Review{}).Where("title_id = ?", titleID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reviews: %w", err)
	}
	err := db.Preload("Author").
		Where("title_id = ?", titleID).
		Order("pub_date DESC, id DESC").
		Scopes(Paginate(page)).
		Find(&reviews).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, total, nil
}

// Get loads a review only if it belongs to the title.
func (s *ReviewService) Get(ctx context.Context, titleID, reviewID uint) (*models.Review, error) {
	var review models.Review
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("title_id = ?", titleID).
		First(&review, reviewID).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("review")
		}
		return nil, fmt.Errorf("failed to load review: %w", err)
	}
	return &review, nil
}

// Create stores author's review of the title. A second review of the same
// title by the same author is a ValidationError, also when two requests race
// and the unique index settles it.
func (s *ReviewService) Create(ctx context.Context, titleID uint, author *models.User, req *dto.CreateReviewRequest) (*models.Review, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := titleExists(db, titleID); err != nil {
		return nil, err
	}

	var existing int64
	if err := db.Model(&models.Review{}).
		Where("title_id = ? AND author_id = ?", titleID, author.ID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if existing > 0 {
		return nil, Invalid("non_field_errors", duplicateReviewMessage)
	}

	review := &models.Review{
		TitleID:  titleID,
		AuthorID: author.ID,
		Text:     req.Text,
		Score:    *req.Score,
	}
	if err := db.Omit("Author").Create(review).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, Invalid("non_field_errors", duplicateReviewMessage)
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	review.Author = *author
	metrics.ReviewsCreated.Inc()

	return review, nil
}

func (s *ReviewService) Update(ctx context.Context, review *models.Review, req *dto.UpdateReviewRequest) (*models.Review, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Text != nil {
		updates["text"] = *req.Text
		review.Text = *req.Text
	}
	if req.Score != nil {
		updates["score"] = *req.Score
		review.Score = *req.Score
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Review{}).Where("id = ?", review.ID).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update review: %w", err)
		}
	}
	return review, nil
}

// Delete removes the review and its comments.
func (s *ReviewService) Delete(ctx context.Context, review *models.Review) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("review_id = ?", review.ID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		return tx.Delete(&models.Review{}, review.ID).Error
	})
}

func titleExists(db *gorm.DB, titleID uint) error {
	var count int64
	if err := db.Model(&models.Title{}).Where("id = ?", titleID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load title: %w", err)
	}
	if count == 0 {
		return notFound("title")
	}
	return nil
}
