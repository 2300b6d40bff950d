package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"estate-api/internal/metrics"
	"estate-api/internal/model"
	"estate-api/internal/repository"
	"estate-api/internal/security"
	"estate-api/internal/service"
	"estate-api/pkg/apierror"
)

const gatePassword = "Str0ng!pass"

type gateFixture struct {
	users    *repository.MemoryUserRepository
	sessions *repository.MemorySessionRepository
	issuer   *security.TokenIssuer
	svc      *service.SessionService
	gate     *AuthGate
}

func newGateFixture(t *testing.T, secret string) *gateFixture {
	t.Helper()

	f := &gateFixture{
		users:    repository.NewMemoryUserRepository(),
		sessions: repository.NewMemorySessionRepository(),
		issuer:   security.NewTokenIssuer(secret, "", time.Hour, 24*time.Hour),
	}
	f.svc = service.NewSessionService(f.users, f.sessions, f.issuer, security.NewHasher(bcrypt.MinCost, 2), metrics.New())
	f.gate = NewAuthGate(f.svc, metrics.New())
	return f
}

func (f *gateFixture) seedUser(t *testing.T, email string, role model.Role) model.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(gatePassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		AccountType:  model.AccountTypeInvestor,
		Status:       model.AccountStatusActive,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *gateFixture) signIn(t *testing.T, email string, device string) model.TokenPair {
	t.Helper()

	pair, _, err := f.svc.SignIn(context.Background(), model.SignInRequest{Email: email, Password: gatePassword, DeviceID: device})
	require.NoError(t, err)
	return pair
}

func (f *gateFixture) expiredAccess(t *testing.T, u model.User) string {
	t.Helper()

	token, _, err := f.issuer.IssueAccessToken(u.Identity(), -time.Minute)
	require.NoError(t, err)
	return token
}

// echoIdentity writes the identity the gate attached.
func echoIdentity() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_ = json.NewEncoder(w).Encode(identity)
	})
}

func serveGate(handler http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, rec.Code, body.Status)
	return body.Error.Code
}

func TestAuthGate(t *testing.T) {
	t.Parallel()

	t.Run("missing access token", func(t *testing.T) {
		f := newGateFixture(t, "secret")
		rec := serveGate(f.gate.Authenticate(echoIdentity()), nil)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apierror.CodeMissingToken, errorCode(t, rec))
	})

	t.Run("unset signing key is a server error", func(t *testing.T) {
		f := newGateFixture(t, "")
		rec := serveGate(f.gate.Authenticate(echoIdentity()), map[string]string{HeaderAccessToken: "anything"})

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, apierror.CodeServerMisconfigured, errorCode(t, rec))
		assert.NotContains(t, rec.Body.String(), "signing key")
	})

	t.Run("valid access token attaches identity", func(t *testing.T) {
		f := newGateFixture(t, "secret")
		user := f.seedUser(t, "valid@example.com", model.RoleUser)
		pair := f.signIn(t, "valid@example.com", "d1")

		rec := serveGate(f.gate.Authenticate(echoIdentity()), map[string]string{HeaderAccessToken: pair.AccessToken})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get(HeaderAccessToken))

		var identity model.Identity
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &identity))
		assert.Equal(t, user.Identity(), identity)
	})

	t.Run("garbage token", func(t *testing.T) {
		f := newGateFixture(t, "secret")
		rec := serveGate(f.gate.Authenticate(echoIdentity()), map[string]string{HeaderAccessToken: "abc.def.ghi"})

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apierror.CodeUnauthorized, errorCode(t, rec))
	})

	t.Run("token signed with another key", func(t *testing.T) {
		f := newGateFixture(t, "secret")
		other := security.NewTokenIssuer("other", "", time.Hour, 24*time.Hour)
		token, _, err := other.IssueAccessToken(model.Identity{UserID: "u1"}, time.Hour)
		require.NoError(t, err)

		rec := serveGate(f.gate.Authenticate(echoIdentity()), map[string]string{HeaderAccessToken: token})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apierror.CodeUnauthorized, errorCode(t, rec))
	})

	t.Run("refresh token presented as access token", func(t *testing.T) {
		f := newGateFixture(t, "secret")
		f.seedUser(t, "swap@example.com", model.RoleUser)
		pair := f.signIn(t, "swap@example.com", "d1")

		rec := serveGate(f.gate.Authenticate(echoIdentity()), map[string]string{
			HeaderAccessToken:  pair.RefreshToken,
			HeaderRefreshToken: pair.RefreshToken,
			HeaderDeviceID:     "d1",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apierror.CodeUnauthorized, errorCode(t, rec))
		assert.Empty(t, rec.Header().Get(HeaderAccessToken))
	})

	t.Run("expired access token without refresh token", func(t *testing.T) {
		f := newGateFixture(t, "secret")
		user := f.seedUser(t, "noref@example.com", model.RoleUser)

		rec := serveGate(f.gate.Authenticate(echoIdentity()), map[string]string{HeaderAccessToken: f.expiredAccess(t, user)})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apierror.CodeTokenExpired, errorCode(t, rec))
	})

	t.Run("transparent refresh issues a token from the current user record", func(t *testing.T) {
		f := newGateFixture(t, "secret")
		user := f.seedUser(t, "refresh@example.com", model.RoleUser)
		pair := f.signIn(t, "refresh@example.com", "d1")
		before, err := f.sessions.GetByUserAndDevice(context.Background(), user.ID, "d1")
		require.NoError(t, err)

		_, err = f.users.UpdateRole(context.Background(), user.ID, model.RoleAdmin)
		require.NoError(t, err)

		rec := serveGate(f.gate.Authenticate(echoIdentity()), map[string]string{
			HeaderAccessToken:  f.expiredAccess(t, user),
			HeaderRefreshToken: pair.RefreshToken,
			HeaderDeviceID:     "d1",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		fresh := rec.Header().Get(HeaderAccessToken)
		require.NotEmpty(t, fresh)
		claims, err := f.issuer.VerifyAccessToken(fresh)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.Subject)
		assert.Equal(t, "admin", claims.UserType)

		var identity model.Identity
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &identity))
		assert.Equal(t, model.RoleAdmin, identity.Role)

		after, err := f.sessions.GetByUserAndDevice(context.Background(), user.ID, "d1")
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("refresh token of another device", func(t *testing.T) {
		f := newGateFixture(t, "secret")
		user := f.seedUser(t, "device@example.com", model.RoleUser)
		pair := f.signIn(t, "device@example.com", "d1")

		rec := serveGate(f.gate.Authenticate(echoIdentity()), map[string]string{
			HeaderAccessToken:  f.expiredAccess(t, user),
			HeaderRefreshToken: pair.RefreshToken,
			HeaderDeviceID:     "d2",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apierror.CodeTokenExpired, errorCode(t, rec))
	})

	t.Run("refresh token of another user", func(t *testing.T) {
		f := newGateFixture(t, "secret")
		alice := f.seedUser(t, "alice@example.com", model.RoleUser)
		f.seedUser(t, "bob@example.com", model.RoleUser)
		bobPair := f.signIn(t, "bob@example.com", "d1")

		rec := serveGate(f.gate.Authenticate(echoIdentity()), map[string]string{
			HeaderAccessToken:  f.expiredAccess(t, alice),
			HeaderRefreshToken: bobPair.RefreshToken,
			HeaderDeviceID:     "d1",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apierror.CodeTokenExpired, errorCode(t, rec))
	})

	t.Run("expired session is removed", func(t *testing.T) {
		f := newGateFixture(t, "secret")
		user := f.seedUser(t, "gone@example.com", model.RoleUser)
		refresh, _, err := f.issuer.IssueRefreshToken(user.ID, time.Hour)
		require.NoError(t, err)
		_, err = f.sessions.Create(context.Background(), model.NewSession{
			UserID: user.ID, DeviceID: "d1", RefreshToken: refresh, ExpiresAt: time.Now().Add(-time.Second),
		})
		require.NoError(t, err)

		rec := serveGate(f.gate.Authenticate(echoIdentity()), map[string]string{
			HeaderAccessToken:  f.expiredAccess(t, user),
			HeaderRefreshToken: refresh,
			HeaderDeviceID:     "d1",
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, apierror.CodeRefreshTokenExpired, errorCode(t, rec))
		assert.Equal(t, 0, f.sessions.Count())
	})

	t.Run("storage failure is a server error", func(t *testing.T) {
		f := newGateFixture(t, "secret")
		user := f.seedUser(t, "db@example.com", model.RoleUser)
		pair := f.signIn(t, "db@example.com", "d1")

		broken := service.NewSessionService(f.users, failingSessions{f.sessions}, f.issuer, security.NewHasher(bcrypt.MinCost, 1), nil)
		gate := NewAuthGate(broken, nil)

		rec := serveGate(gate.Authenticate(echoIdentity()), map[string]string{
			HeaderAccessToken:  f.expiredAccess(t, user),
			HeaderRefreshToken: pair.RefreshToken,
			HeaderDeviceID:     "d1",
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, apierror.CodeInternal, errorCode(t, rec))
		assert.NotContains(t, rec.Body.String(), "db down")
	})
}

type failingSessions struct {
	*repository.MemorySessionRepository
}

func (failingSessions) PeekByUserAndDevice(context.Context, string, string) (model.Session, error) {
	return model.Session{}, errors.New("db down")
}

func TestRequireRoles(t *testing.T) {
	t.Parallel()

	handler := RequireRoles(model.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	serve := func(identity *model.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/audit", nil)
		if identity != nil {
			req = req.WithContext(WithIdentity(req.Context(), *identity))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := serve(nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, apierror.CodeNotAuthenticated, errorCode(t, rec))

	rec = serve(&model.Identity{UserID: "u1", Role: model.RoleUser})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, apierror.CodeForbidden, errorCode(t, rec))

	rec = serve(&model.Identity{UserID: "u2", Role: model.RoleAdmin})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
