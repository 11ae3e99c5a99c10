package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/yamdb/internal/dto"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/mail"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/models"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/testutil"
	"github.com/ahmetcoskunkizilkaya/yamdb/internal/tokens"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type authFixture struct {
	db     *gorm.DB
	issuer *tokens.Issuer
	outbox *mail.Outbox
	svc    *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	db := testutil.NewDB(t)
	issuer := tokens.NewIssuer("test-secret", time.Hour, 10*time.Minute)
	outbox := &mail.Outbox{}
	return &authFixture{
		db:     db,
		issuer: issuer,
		outbox: outbox,
		svc:    NewAuthService(db, issuer, outbox),
	}
}

// mailedCode pulls the confirmation code out of the last mail sent to addr.
func (f *authFixture) mailedCode(t *testing.T, addr string) string {
	t.Helper()
	msg, ok := f.outbox.Last(addr)
	require.True(t, ok, "no mail sent to %s", addr)
	_, code, found := strings.Cut(msg.Body, ": ")
	require.True(t, found)
	return code
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	return verr.Fields
}

func TestSignupRejectsBadUsernames(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for _, username := range []string{"me", "Me", "ME", "bad name", "semi;colon", ""} {
		_, err := f.svc.Signup(ctx, &dto.SignupRequest{Email: "x@example.com", Username: username})
		fields := fieldErrors(t, err)
		assert.Contains(t, fields, "username", username)
	}
	assert.Zero(t, f.outbox.Len())
}

func TestSignupRejectsBadEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Signup(context.Background(), &dto.SignupRequest{Email: "not-an-email", Username: "alice"})
	assert.Contains(t, fieldErrors(t, err), "email")
}

func TestSignupIsIdempotentForSamePair(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	req := &dto.SignupRequest{Email: "alice@example.com", Username: "alice"}

	resp, err := f.svc.Signup(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, "alice@example.com", resp.Email)

	_, err = f.svc.Signup(ctx, req)
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, 2, f.outbox.Len())
}

func TestSignupRejectsConflictingPair(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, &dto.SignupRequest{Email: "alice@example.com", Username: "alice"})
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, &dto.SignupRequest{Email: "alice@example.com", Username: "alice2"})
	assert.Contains(t, fieldErrors(t, err), "email")

	_, err = f.svc.Signup(ctx, &dto.SignupRequest{Email: "other@example.com", Username: "alice"})
	assert.Contains(t, fieldErrors(t, err), "username")
}

func TestExchangeCode(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, &dto.SignupRequest{Email: "alice@example.com", Username: "alice"})
	require.NoError(t, err)
	code := f.mailedCode(t, "alice@example.com")

	resp, err := f.svc.ExchangeCode(ctx, &dto.TokenRequest{Username: "alice", ConfirmationCode: code})
	require.NoError(t, err)

	var claims tokens.AccessClaims
	_, err = jwt.ParseWithClaims(resp.Token, &claims, func(*jwt.Token) (interface{}, error) {
		return tokens.AccessKey("test-secret"), nil
	})
	require.NoError(t, err)
	id, err := tokens.SubjectID(claims.Subject)
	require.NoError(t, err)

	var user models.User
	require.NoError(t, f.db.Where("username = ?", "alice").First(&user).Error)
	assert.Equal(t, user.ID, id)

	t.Run("consumed code", func(t *testing.T) {
		_, err := f.svc.ExchangeCode(ctx, &dto.TokenRequest{Username: "alice", ConfirmationCode: code})
		assert.ErrorIs(t, err, ErrInvalidCode)
	})
}

func TestExchangeCodeFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, &dto.SignupRequest{Email: "alice@example.com", Username: "alice"})
	require.NoError(t, err)
	first := f.mailedCode(t, "alice@example.com")

	t.Run("unknown user", func(t *testing.T) {
		_, err := f.svc.ExchangeCode(ctx, &dto.TokenRequest{Username: "ghost", ConfirmationCode: first})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("garbage code", func(t *testing.T) {
		_, err := f.svc.ExchangeCode(ctx, &dto.TokenRequest{Username: "alice", ConfirmationCode: "nope"})
		assert.ErrorIs(t, err, ErrInvalidCode)
		assert.ErrorIs(t, err, tokens.ErrInvalidCode)
	})

	t.Run("superseded by a newer code", func(t *testing.T) {
		_, err := f.svc.Signup(ctx, &dto.SignupRequest{Email: "alice@example.com", Username: "alice"})
		require.NoError(t, err)

		_, err = f.svc.ExchangeCode(ctx, &dto.TokenRequest{Username: "alice", ConfirmationCode: first})
		assert.ErrorIs(t, err, ErrInvalidCode)

		latest := f.mailedCode(t, "alice@example.com")
		_, err = f.svc.ExchangeCode(ctx, &dto.TokenRequest{Username: "alice", ConfirmationCode: latest})
		assert.NoError(t, err)
	})

	t.Run("code of another user", func(t *testing.T) {
		_, err := f.svc.Signup(ctx, &dto.SignupRequest{Email: "bob@example.com", Username: "bob"})
		require.NoError(t, err)
		bobs := f.mailedCode(t, "bob@example.com")

		_, err = f.svc.ExchangeCode(ctx, &dto.TokenRequest{Username: "alice", ConfirmationCode: bobs})
		assert.ErrorIs(t, err, ErrInvalidCode)
	})
}

type failingSender struct{}

func (failingSender) Send(context.Context, string, string, string) error {
	return errors.New("smtp down")
}

func TestSignupMailFailure(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewAuthService(db, tokens.NewIssuer("s", time.Hour, time.Hour), failingSender{})

	_, err := svc.Signup(context.Background(), &dto.SignupRequest{Email: "alice@example.com", Username: "alice"})
	assert.ErrorIs(t, err, ErrMailDelivery)
}

func TestCreateSuperuser(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	code, err := f.svc.CreateSuperuser(ctx, "root@example.com", "root")
	require.NoError(t, err)
	assert.Zero(t, f.outbox.Len())

	var user models.User
	require.NoError(t, f.db.Where("username = ?", "root").First(&user).Error)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, user.IsSuperuser)

	_, err = f.svc.ExchangeCode(ctx, &dto.TokenRequest{Username: "root", ConfirmationCode: code})
	assert.NoError(t, err)
}
