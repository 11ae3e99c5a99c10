package services

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/database"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/tokens"
	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func (s *UserService) List(ctx context.Context, search string, page PageParams) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)
	query := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.User{}).Scopes(whereEquals("username", search))
	}
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	if err := query().Order("id DESC").Scopes(Paginate(page)).Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *UserService) Create(ctx context.Context, req *dto.CreateUserRequest) (*models.User, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := checkIdentityFree(db, 0, &req.Username, &req.Email); err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	user := &models.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      role,
	}
	if err := db.Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, Invalid("username", "A user with this username or email already exists.")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Update applies the non-nil fields of req to user. Role is only applied
// when allowRole is set; otherwise it is silently ignored. Changing the
// username or email rotates the confirmation nonce.
func (s *UserService) Update(ctx context.Context, user *models.User, req *dto.UpdateUserRequest, allowRole bool) (*models.User, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if err := checkIdentityFree(db, user.ID, req.Username, req.Email); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	identityChanged := false
	if req.Username != nil && *req.Username != user.Username {
		updates["username"] = *req.Username
		identityChanged = true
	}
	if req.Email != nil && *req.Email != user.Email {
		updates["email"] = *req.Email
		identityChanged = true
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if allowRole && req.Role != nil {
		updates["role"] = *req.Role
	}
	if identityChanged {
		updates["code_nonce"] = tokens.NewNonce()
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return nil, Invalid("username", "A user with this username or email already exists.")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return s.GetByID(ctx, user.ID)
}

// Delete removes the user with every review and comment they wrote,
// including comments others left on those reviews.
func (s *UserService) Delete(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("author_id = ? OR review_id IN (SELECT id FROM reviews WHERE author_id = ?)", user.ID, user.ID).
			Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Where("author_id = ?", user.ID).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete reviews: %w", err)
		}
		return tx.Delete(&models.User{}, user.ID).Error
	})
}

// checkIdentityFree reports which of username and email already belong to a
// user other than exceptID.
func checkIdentityFree(db *gorm.DB, exceptID uint, username, email *string) error {
	fields := map[string]string{}
	if username != nil {
		taken, err := identityTaken(db, exceptID, "username", *username)
		if err != nil {
			return err
		}
		if taken {
			fields["username"] = "A user with this username already exists."
		}
	}
	if email != nil {
		taken, err := identityTaken(db, exceptID, "email", *email)
		if err != nil {
			return err
		}
		if taken {
			fields["email"] = "A user with this email already exists."
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func identityTaken(db *gorm.DB, exceptID uint, column, value string) (bool, error) {
	var count int64
	err := db.Model(&models.User{}).
		Where(column+" = ? AND id <> ?", value, exceptID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", column, err)
	}
	return count > 0, nil
}
