package security

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"estate-api/internal/model"
)

func testIdentity() model.Identity {
	return model.Identity{
		UserID:      "u-1",
		Email:       "a@x.com",
		Role:        model.RoleUser,
		AccountType: model.AccountTypeInvestor,
	}
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "", time.Hour, 7*24*time.Hour)

	token, expiresAt, err := issuer.IssueAccessToken(testIdentity(), issuer.AccessTTL())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	claims, err := issuer.VerifyAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.Subject)
	require.Equal(t, "user", claims.UserType)
	require.Equal(t, "investor", claims.AccountType)
	require.Equal(t, "a@x.com", claims.Email)
}

func TestAccessTokenClaimsAreFlat(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "", time.Hour, 7*24*time.Hour)
	token, _, err := issuer.IssueAccessToken(testIdentity(), time.Hour)
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	require.ElementsMatch(t, []string{"sub", "exp", "userType", "accountType", "email"}, keys)
}

func TestVerifyExpiredAccessTokenKeepsSubject(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "", time.Hour, 7*24*time.Hour)
	token, _, err := issuer.IssueAccessToken(testIdentity(), -time.Minute)
	require.NoError(t, err)

	claims, err := issuer.VerifyAccessToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.Equal(t, "u-1", claims.Subject)
}

func TestVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "", time.Hour, 7*24*time.Hour)
	other := NewTokenIssuer("other-secret", "", time.Hour, 7*24*time.Hour)

	t.Run("wrong key", func(t *testing.T) {
		token, _, err := other.IssueAccessToken(testIdentity(), time.Hour)
		require.NoError(t, err)

		_, err = issuer.VerifyAccessToken(token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.VerifyAccessToken("not-a-token")
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("expired token signed with the wrong key is invalid, not expired", func(t *testing.T) {
		token, _, err := other.IssueAccessToken(testIdentity(), -time.Minute)
		require.NoError(t, err)

		_, err = issuer.VerifyAccessToken(token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("unsigned token", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": "u-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = issuer.VerifyAccessToken(token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("token without exp", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-1"}).
			SignedString([]byte("access-secret"))
		require.NoError(t, err)

		_, err = issuer.VerifyAccessToken(token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestRefreshTokenUsesItsOwnKey(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "refresh-secret", time.Hour, 7*24*time.Hour)

	refresh, _, err := issuer.IssueRefreshToken("u-1", issuer.RefreshTTL())
	require.NoError(t, err)

	claims, err := issuer.VerifyRefreshToken(refresh)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.Subject)
	require.NotEmpty(t, claims.ID)

	_, err = issuer.VerifyAccessToken(refresh)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenKindsAreNotInterchangeableUnderSharedKey(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("shared-secret", "", time.Hour, 7*24*time.Hour)

	t.Run("refresh token is not an access token", func(t *testing.T) {
		refresh, _, err := issuer.IssueRefreshToken("u-1", time.Hour)
		require.NoError(t, err)

		claims, err := issuer.VerifyAccessToken(refresh)
		require.ErrorIs(t, err, ErrTokenInvalid)
		require.Nil(t, claims)
	})

	t.Run("expired refresh token is invalid, not expired", func(t *testing.T) {
		refresh, _, err := issuer.IssueRefreshToken("u-1", -time.Minute)
		require.NoError(t, err)

		_, err = issuer.VerifyAccessToken(refresh)
		require.ErrorIs(t, err, ErrTokenInvalid)
		require.NotErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		access, _, err := issuer.IssueAccessToken(testIdentity(), time.Hour)
		require.NoError(t, err)

		_, err = issuer.VerifyRefreshToken(access)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("access claims without userType are rejected", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "u-1",
			"exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("shared-secret"))
		require.NoError(t, err)

		_, err = issuer.VerifyAccessToken(token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestRefreshKeyFallsBackToAccessKey(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "", time.Hour, 7*24*time.Hour)
	refresh, _, err := issuer.IssueRefreshToken("u-1", time.Hour)
	require.NoError(t, err)

	claims := &RefreshClaims{}
	require.NoError(t, Verify(refresh, []byte("access-secret"), claims, nil))
	require.Equal(t, "u-1", claims.Subject)
}

func TestRefreshTokensAreUniquePerIssue(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "", time.Hour, 7*24*time.Hour)
	first, _, err := issuer.IssueRefreshToken("u-1", time.Hour)
	require.NoError(t, err)
	second, _, err := issuer.IssueRefreshToken("u-1", time.Hour)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestMissingSigningKey(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("", "", time.Hour, 7*24*time.Hour)
	require.False(t, issuer.SigningKeyConfigured())

	_, _, err := issuer.IssueAccessToken(testIdentity(), time.Hour)
	require.ErrorIs(t, err, ErrSigningKeyMissing)

	_, _, err = issuer.IssueRefreshToken("u-1", time.Hour)
	require.ErrorIs(t, err, ErrSigningKeyMissing)

	_, err = issuer.VerifyAccessToken("x.y.z")
	require.ErrorIs(t, err, ErrSigningKeyMissing)
}

func TestVerifyHonorsClock(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer("access-secret", "", time.Hour, 7*24*time.Hour)
	token, _, err := issuer.IssueAccessToken(testIdentity(), time.Hour)
	require.NoError(t, err)

	later := func() time.Time { return time.Now().Add(2 * time.Hour) }
	err = Verify(token, []byte("access-secret"), &AccessClaims{}, later)
	require.ErrorIs(t, err, ErrTokenExpired)
	require.False(t, strings.Contains(err.Error(), "access-secret"))
}
