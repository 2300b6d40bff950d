package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"estate-api/internal/metrics"
	"estate-api/internal/model"
	"estate-api/internal/security"
	"estate-api/pkg/apierror"
)

const (
	stageSignup = "signup"
	stageVerify = "verify"
)

// SignupService registers inactive accounts and activates them once the
// emailed code is confirmed.
type SignupService struct {
	users    UserStore
	preAuth  PreAuthStore
	sessions *SessionService
	hasher   *security.Hasher
	mailer   Mailer
	ttl      time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewSignupService(users UserStore, preAuth PreAuthStore, sessions *SessionService, hasher *security.Hasher, mailer Mailer, ttl time.Duration, m *metrics.Metrics) *SignupService {
	if mailer == nil {
		mailer = LogMailer{}
	}
	return &SignupService{
		users:    users,
		preAuth:  preAuth,
		sessions: sessions,
		hasher:   hasher,
		mailer:   mailer,
		ttl:      ttl,
		metrics:  m,
		now:      time.Now,
	}
}

// Signup creates an Inactive account, or reuses an existing Inactive one
// untouched, and opens a pre-auth session carrying the verification code.
func (s *SignupService) Signup(ctx context.Context, req model.SignupRequest, deviceID string) (resp model.SignupResponse, err error) {
	defer func() { s.metrics.Signup(stageSignup, metrics.Result(err)) }()

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	email := security.NormalizeEmail(req.Email)
	if firstName == "" || lastName == "" || email == "" || req.Password == "" || req.AccountType == "" {
		return model.SignupResponse{}, apierror.BadRequest(apierror.CodeMissingFields,
			"firstName, lastName, email, password and accountType are required", "")
	}
	if !req.AccountType.Valid() {
		return model.SignupResponse{}, apierror.BadRequest(apierror.CodeBadRequest, "Invalid account type", string(req.AccountType))
	}
	if err := security.ValidateEmail(email); err != nil {
		return model.SignupResponse{}, apierror.BadRequest(apierror.CodeInvalidEmail, "Invalid email format", "")
	}
	if err := security.CheckPasswordStrength(req.Password); err != nil {
		return model.SignupResponse{}, apierror.BadRequest(apierror.CodeWeakPassword, err.Error(), "")
	}

	account, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil && account.Status != model.AccountStatusInactive:
		return model.SignupResponse{}, userExists()
	case err == nil:
		// A pending account is reused as stored; only a new code is issued.
	case errors.Is(err, model.ErrUserNotFound):
		account, err = s.createPending(ctx, email, firstName, lastName, req)
		if err != nil {
			return model.SignupResponse{}, err
		}
	default:
		return model.SignupResponse{}, err
	}

	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	code, err := security.GenerateCode(security.VerificationCodeLength)
	if err != nil {
		return model.SignupResponse{}, err
	}

	now := s.now().UTC()
	pending := model.PreAuthSession{
		ID:        uuid.NewString(),
		Email:     email,
		DeviceID:  deviceID,
		Code:      code,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.preAuth.Create(ctx, pending); err != nil {
		return model.SignupResponse{}, err
	}

	if err := s.mailer.SendVerificationCode(ctx, email, code); err != nil {
		return model.SignupResponse{}, fmt.Errorf("send verification code: %w", err)
	}

	slog.Info("signup pending verification", "user_id", account.ID, "device_id", deviceID)
	return model.SignupResponse{
		PreAuthSessionID: pending.ID,
		Email:            email,
		DeviceID:         deviceID,
	}, nil
}

// VerifySignup checks the emailed code, activates the account and signs the
// user in on the device that started the signup.
func (s *SignupService) VerifySignup(ctx context.Context, req model.VerifySignupRequest) (pair model.TokenPair, user model.User, err error) {
	defer func() { s.metrics.Signup(stageVerify, metrics.Result(err)) }()

	preAuthID := strings.TrimSpace(req.PreAuthSessionID)
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if preAuthID == "" || code == "" {
		return model.TokenPair{}, model.User{}, apierror.BadRequest(apierror.CodeMissingFields, "preAuthSessionId and code are required", "")
	}

	pending, err := s.preAuth.FindByID(ctx, preAuthID)
	if errors.Is(err, model.ErrPreAuthSessionNotFound) {
		return model.TokenPair{}, model.User{}, apierror.NotFound(apierror.CodeNotFound, "Verification session not found")
	}
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}

	if !pending.ExpiresAt.After(s.now()) {
		if err := s.preAuth.Delete(ctx, pending.ID); err != nil {
			return model.TokenPair{}, model.User{}, err
		}
		return model.TokenPair{}, model.User{}, apierror.BadRequest(apierror.CodeCodeExpired, "Verification code expired", "")
	}
	if subtle.ConstantTimeCompare([]byte(pending.Code), []byte(code)) != 1 {
		return model.TokenPair{}, model.User{}, apierror.BadRequest(apierror.CodeInvalidCode, "Invalid verification code", "")
	}

	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		deviceID = pending.DeviceID
	}
	if deviceID != pending.DeviceID {
		return model.TokenPair{}, model.User{}, apierror.BadRequest(apierror.CodeDeviceMismatch, "Device does not match the signup request", "")
	}

	existing, err := s.users.FindByEmail(ctx, pending.Email)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, model.User{}, apierror.NotFound(apierror.CodeNotFound, "User not found")
	}
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}

	user, err = s.users.Activate(ctx, existing.ID)
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}
	if err := s.preAuth.Delete(ctx, pending.ID); err != nil {
		return model.TokenPair{}, model.User{}, err
	}

	pair, err = s.sessions.Establish(ctx, user, deviceID)
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}

	slog.Info("signup verified", "user_id", user.ID, "device_id", deviceID)
	return pair, user, nil
}

func (s *SignupService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.preAuth.DeleteExpired(ctx)
}

func (s *SignupService) createPending(ctx context.Context, email, firstName, lastName string, req model.SignupRequest) (model.User, error) {
	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return model.User{}, err
	}

	now := s.now().UTC()
	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         model.RoleUser,
		AccountType:  req.AccountType,
		Status:       model.AccountStatusInactive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, model.ErrUserAlreadyExists) {
			return model.User{}, userExists()
		}
		return model.User{}, err
	}
	return u, nil
}

func userExists() *apierror.APIError {
	return apierror.BadRequest(apierror.CodeUserExists, "An account with this email already exists", "")
}
