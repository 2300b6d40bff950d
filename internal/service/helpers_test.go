package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"estate-api/internal/metrics"
	"estate-api/internal/model"
	"estate-api/internal/repository"
	"estate-api/internal/security"
	"estate-api/pkg/apierror"
)

const (
	testSecret   = "test-access-secret"
	testPassword = "Str0ng!pass"
)

type testEnv struct {
	users    *repository.MemoryUserRepository
	sessions *repository.MemorySessionRepository
	preAuth  *repository.MemoryPreAuthRepository
	issuer   *security.TokenIssuer
	hasher   *security.Hasher
	mailer   *captureMailer

	sessionSvc *SessionService
	signupSvc  *SignupService
	userSvc    *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		users:    repository.NewMemoryUserRepository(),
		sessions: repository.NewMemorySessionRepository(),
		preAuth:  repository.NewMemoryPreAuthRepository(),
		issuer:   security.NewTokenIssuer(testSecret, "", time.Hour, 7*24*time.Hour),
		hasher:   security.NewHasher(bcrypt.MinCost, 2),
		mailer:   &captureMailer{codes: map[string]string{}},
	}
	m := metrics.New()
	env.sessionSvc = NewSessionService(env.users, env.sessions, env.issuer, env.hasher, m)
	env.signupSvc = NewSignupService(env.users, env.preAuth, env.sessionSvc, env.hasher, env.mailer, 15*time.Minute, m)
	env.userSvc = NewUserService(env.users, env.hasher)
	return env
}

func (e *testEnv) seedUser(t *testing.T, email string, status model.AccountStatus) model.User {
	t.Helper()

	hash, err := e.hasher.Hash(context.Background(), testPassword)
	require.NoError(t, err)

	now := time.Now().UTC()
	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Role:         model.RoleUser,
		AccountType:  model.AccountTypeInvestor,
		Status:       status,
		IsConfirmed:  status == model.AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *testEnv) signIn(t *testing.T, email string, deviceID string) model.TokenPair {
	t.Helper()

	pair, _, err := e.sessionSvc.SignIn(context.Background(), model.SignInRequest{
		Email:    email,
		Password: testPassword,
		DeviceID: deviceID,
	})
	require.NoError(t, err)
	return pair
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()

	require.Error(t, err)
	apiErr, ok := apierror.As(err)
	require.True(t, ok, "expected APIError, got %v", err)
	require.Equal(t, status, apiErr.HTTPStatus)
	require.Equal(t, code, apiErr.Code)
}

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendVerificationCode(_ context.Context, email string, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *captureMailer) codeFor(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}
