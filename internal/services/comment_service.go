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

// CommentService manages comments nested under a review, which in turn must
// belong to the title in the request path.
type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

func (s *CommentService) List(ctx context.Context, titleID, reviewID uint, page PageParams) ([]models.Comment, int64, error) {
	db := s.db.WithContext(ctx)
	if err := reviewExists(db, titleID, reviewID); err != nil {
		return nil, 0, err
	}

	var (
		comments []models.Comment
		total    int64
	)
	if err := db.Model(&models.Comment{}).Where("review_id = ?", reviewID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}
	err := db.Preload("Author").
		Where("review_id = ?", reviewID).
		Order("pub_date DESC, id DESC").
		Scopes(Paginate(page)).
		Find(&comments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, total, nil
}

func (s *CommentService) Get(ctx context.Context, titleID, reviewID, commentID uint) (*models.Comment, error) {
	db := s.db.WithContext(ctx)
	if err := reviewExists(db, titleID, reviewID); err != nil {
		return nil, err
	}

	var comment models.Comment
	err := db.Preload("Author").
		Where("review_id = ?", reviewID).
		First(&comment, commentID).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("comment")
		}
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	return &comment, nil
}

func (s *CommentService) Create(ctx context.Context, titleID, reviewID uint, author *models.User, req *dto.CommentRequest) (*models.Comment, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := reviewExists(db, titleID, reviewID); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ReviewID: reviewID,
		AuthorID: author.ID,
		Text:     req.Text,
	}
	if err := db.Omit("Author").Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	comment.Author = *author
	metrics.CommentsCreated.Inc()

	return comment, nil
}

func (s *CommentService) Update(ctx context.Context, comment *models.Comment, req *dto.CommentRequest) (*models.Comment, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", comment.ID).
		Update("text", req.Text).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	comment.Text = req.Text
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, comment *models.Comment) error {
	return s.db.WithContext(ctx).Delete(&models.Comment{}, comment.ID).Error
}

// reviewExists fails with ErrNotFound unless reviewID is a review of titleID.
func reviewExists(db *gorm.DB, titleID, reviewID uint) error {
	var count int64
	err := db.Model(&models.Review{}).
		Where("id = ? AND title_id = ?", reviewID, titleID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to load review: %w", err)
	}
	if count == 0 {
		return notFound("review")
	}
	return nil
}
