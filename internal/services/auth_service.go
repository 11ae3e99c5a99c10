package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/database"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/mail"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/tokens"
	"gorm.io/gorm"
)

const confirmationSubject = "YaMDb confirmation code"

type AuthService struct {
	db     *gorm.DB
	issuer *tokens.Issuer
	mailer mail.Sender
}

func NewAuthService(db *gorm.DB, issuer *tokens.Issuer, mailer mail.Sender) *AuthService {
	return &AuthService{db: db, issuer: issuer, mailer: mailer}
}

// Signup gets or creates the user for (email, username) and mails a fresh
// confirmation code. Repeating it with the same pair is safe; a pair that
// collides with another user's email or username is rejected.
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, created, err := s.getOrCreate(ctx, req.Email, req.Username)
	if err != nil {
		return nil, err
	}
	metrics.Signups.WithLabelValues(fmt.Sprint(created)).Inc()

	code, err := s.issueCode(ctx, user)
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf("Your confirmation code: %s", code)
	if err := s.mailer.Send(ctx, user.Email, confirmationSubject, body); err != nil {
		slog.Error("confirmation mail failed", "user_id", user.ID, "error", err)
		return nil, ErrMailDelivery
	}

	return &dto.SignupResponse{Email: user.Email, Username: user.Username}, nil
}

// ExchangeCode trades a confirmation code for an access token. The code is
// consumed by rotating the user's nonce with a compare-and-swap update, so
// two concurrent exchanges of one code issue at most one token.
func (s *AuthService) ExchangeCode(ctx context.Context, req *dto.TokenRequest) (*dto.TokenResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", req.Username).First(&user).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := s.issuer.VerifyConfirmationCode(req.ConfirmationCode, user.ID, user.CodeNonce); err != nil {
		metrics.TokenExchanges.WithLabelValues("rejected").Inc()
		return nil, err
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND code_nonce = ?", user.ID, user.CodeNonce).
		Update("code_nonce", tokens.NewNonce())
	if result.Error != nil {
		return nil, fmt.Errorf("failed to consume confirmation code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		metrics.TokenExchanges.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidCode
	}

	token, err := s.issuer.IssueAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	metrics.TokenExchanges.WithLabelValues("issued").Inc()

	return &dto.TokenResponse{Token: token}, nil
}

// CreateSuperuser creates or promotes a user to admin with the superuser
// flag and returns a confirmation code for it. Nothing is mailed.
func (s *AuthService) CreateSuperuser(ctx context.Context, email, username string) (string, error) {
	req := &dto.SignupRequest{Email: email, Username: username}
	if err := validateStruct(req); err != nil {
		return "", err
	}

	user, _, err := s.getOrCreate(ctx, email, username)
	if err != nil {
		return "", err
	}

	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"role":         models.RoleAdmin,
		"is_superuser": true,
	}).Error
	if err != nil {
		return "", fmt.Errorf("failed to promote user: %w", err)
	}

	return s.issueCode(ctx, user)
}

func (s *AuthService) getOrCreate(ctx context.Context, email, username string) (*models.User, bool, error) {
	user, err := s.findPair(ctx, email, username)
	if err != nil || user != nil {
		return user, false, err
	}

	user = &models.User{Email: email, Username: username, Role: models.RoleUser}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if !database.IsUniqueViolation(err) {
			return nil, false, fmt.Errorf("failed to create user: %w", err)
		}
		// Lost a race with a concurrent signup; whoever won decides.
		user, err = s.findPair(ctx, email, username)
		if err != nil {
			return nil, false, err
		}
		if user == nil {
			return nil, false, Invalid("username", "A user with this username or email already exists.")
		}
		return user, false, nil
	}
	return user, true, nil
}

// findPair returns the user owning exactly (email, username), nil if neither
// is taken, or a ValidationError naming the field another user holds.
func (s *AuthService) findPair(ctx context.Context, email, username string) (*models.User, error) {
	var matches []models.User
	err := s.db.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		Limit(2).
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	fields := map[string]string{}
	for i := range matches {
		u := &matches[i]
		if u.Username == username && u.Email == email {
			return u, nil
		}
		if u.Email == email {
			fields["email"] = "A user with this email already exists."
		}
		if u.Username == username {
			fields["username"] = "A user with this username already exists."
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return nil, nil
}

// issueCode stores a fresh nonce on the user, invalidating earlier codes,
// and signs a code bound to it.
func (s *AuthService) issueCode(ctx context.Context, user *models.User) (string, error) {
	nonce := tokens.NewNonce()
	if err := s.db.WithContext(ctx).Model(user).Update("code_nonce", nonce).Error; err != nil {
		return "", fmt.Errorf("failed to store confirmation nonce: %w", err)
	}
	user.CodeNonce = nonce

	code, err := s.issuer.IssueConfirmationCode(user.ID, nonce)
	if err != nil {
		return "", fmt.Errorf("failed to sign confirmation code: %w", err)
	}
	return code, nil
}
