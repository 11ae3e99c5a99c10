// Package tokens issues and verifies the two kinds of signed credentials the
// API hands out: single-use confirmation codes and bearer access tokens.
//
// Both are HS256 JWTs, but they are signed with different keys derived from
// the one configured secret, so a confirmation code never verifies as an
// access token and vice versa.
package tokens

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	purposeAccess       = "yamdb/access-token"
	purposeConfirmation = "yamdb/confirmation-code"
	keySize             = 32
)

// ErrInvalidCode is wrapped by every VerifyConfirmationCode failure.
var ErrInvalidCode = errors.New("invalid confirmation code")

// ConfirmationClaims binds a code to one user and one nonce value.
type ConfirmationClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// AccessClaims is what handlers see for an authenticated request.
type AccessClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Issuer struct {
	accessKey       []byte
	confirmationKey []byte
	accessTTL       time.Duration
	codeTTL         time.Duration
	now             func() time.Time
}

func NewIssuer(secret string, accessTTL, codeTTL time.Duration) *Issuer {
	return &Issuer{
		accessKey:       AccessKey(secret),
		confirmationKey: deriveKey(secret, purposeConfirmation),
		accessTTL:       accessTTL,
		codeTTL:         codeTTL,
		now:             time.Now,
	}
}

// AccessKey returns the key access tokens are signed with. The JWT
// middleware verifies against it.
func AccessKey(secret string) []byte {
	return deriveKey(secret, purposeAccess)
}

func deriveKey(secret, purpose string) []byte {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails after 255*HashLen bytes.
		panic(fmt.Sprintf("hkdf: %v", err))
	}
	return key
}

// NewNonce returns a fresh random nonce for a user's confirmation state.
func NewNonce() string {
	return uuid.NewString()
}

// IssueConfirmationCode signs a code for userID that stays valid until the
// user's nonce changes or the TTL runs out.
func (i *Issuer) IssueConfirmationCode(userID uint, nonce string) (string, error) {
	now := i.now()
	claims := ConfirmationClaims{
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.codeTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.confirmationKey)
}

// VerifyConfirmationCode checks the signature, expiry, subject and nonce of
// code. It does not consume the code; the caller rotates the nonce.
func (i *Issuer) VerifyConfirmationCode(code string, userID uint, nonce string) error {
	if code == "" || nonce == "" {
		return ErrInvalidCode
	}

	var claims ConfirmationClaims
	_, err := jwt.ParseWithClaims(code, &claims, i.keyFunc(i.confirmationKey),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}

	if claims.Subject != strconv.FormatUint(uint64(userID), 10) {
		return fmt.Errorf("%w: subject mismatch", ErrInvalidCode)
	}
	if claims.Nonce != nonce {
		return fmt.Errorf("%w: nonce mismatch", ErrInvalidCode)
	}
	return nil
}

// IssueAccessToken signs a bearer token asserting the user's identity.
func (i *Issuer) IssueAccessToken(userID uint, username string) (string, error) {
	now := i.now()
	claims := AccessClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessKey)
}

// SubjectID parses the numeric user id stored in a token subject.
func SubjectID(sub string) (uint, error) {
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid subject %q", sub)
	}
	return uint(id), nil
}

func (i *Issuer) keyFunc(key []byte) jwt.Keyfunc {
	return func(*jwt.Token) (interface{}, error) {
		return key, nil
	}
}
