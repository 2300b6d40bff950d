// Package security holds the credential primitives of the auth core: signed
// access/refresh tokens, bounded password hashing, password policy and
// verification codes.
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"estate-api/internal/model"
)

var (
	// ErrTokenInvalid covers signature, format and claim failures.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned when the exp claim is in the past. The claims
	// of a signature-valid expired token are still populated.
	ErrTokenExpired = errors.New("token expired")
	// ErrSigningKeyMissing is a configuration error: no access signing key.
	ErrSigningKeyMissing = errors.New("signing key is not configured")
)

// AccessClaims is the flat claim set of an access token:
// sub, exp, userType, accountType, email.
type AccessClaims struct {
	UserType    string `json:"userType,omitempty"`
	AccountType string `json:"accountType,omitempty"`
	Email       string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims carries sub, exp and a random jti so that two grants minted
// within the same second never collide.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens. It holds no mutable state and is
// safe for concurrent use.
type TokenIssuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer builds an issuer. An empty refreshSecret falls back to
// accessSecret. An empty accessSecret is accepted here and surfaces as
// ErrSigningKeyMissing on use.
func NewTokenIssuer(accessSecret string, refreshSecret string, accessTTL time.Duration, refreshTTL time.Duration) *TokenIssuer {
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}
	return &TokenIssuer{
		accessKey:  []byte(accessSecret),
		refreshKey: []byte(refreshSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (i *TokenIssuer) SigningKeyConfigured() bool {
	return len(i.accessKey) > 0
}

func (i *TokenIssuer) AccessTTL() time.Duration  { return i.accessTTL }
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccessToken signs an access token for identity valid for ttl. It
// returns the token and its absolute expiry.
func (i *TokenIssuer) IssueAccessToken(identity model.Identity, ttl time.Duration) (string, time.Time, error) {
	if !i.SigningKeyConfigured() {
		return "", time.Time{}, ErrSigningKeyMissing
	}

	expiresAt := i.now().UTC().Add(ttl)
	claims := AccessClaims{
		UserType:    string(identity.Role),
		AccountType: string(identity.AccountType),
		Email:       identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return token, expiresAt, nil
}

// IssueRefreshToken signs a refresh token naming only subjectID.
func (i *TokenIssuer) IssueRefreshToken(subjectID string, ttl time.Duration) (string, time.Time, error) {
	if len(i.refreshKey) == 0 {
		return "", time.Time{}, ErrSigningKeyMissing
	}

	expiresAt := i.now().UTC().Add(ttl)
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return token, expiresAt, nil
}

func (i *TokenIssuer) VerifyAccessToken(token string) (*AccessClaims, error) {
	if !i.SigningKeyConfigured() {
		return nil, ErrSigningKeyMissing
	}
	claims := &AccessClaims{}
	err := Verify(token, i.accessKey, claims, i.now)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return claims, err
	}
	// Access tokens never carry a jti and always name a userType.
	if claims.ID != "" || claims.UserType == "" {
		return nil, fmt.Errorf("%w: not an access token", ErrTokenInvalid)
	}
	return claims, err
}

func (i *TokenIssuer) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	if len(i.refreshKey) == 0 {
		return nil, ErrSigningKeyMissing
	}
	claims := &RefreshClaims{}
	err := Verify(token, i.refreshKey, claims, i.now)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return claims, err
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: not a refresh token", ErrTokenInvalid)
	}
	return claims, err
}

// Verify checks signature and expiry of tokenString against key and decodes it
// into claims. It returns ErrTokenExpired or ErrTokenInvalid.
func Verify(tokenString string, key []byte, claims jwt.Claims, now func() time.Time) error {
	if now == nil {
		now = time.Now
	}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return ErrTokenInvalid
	}
	return nil
}
