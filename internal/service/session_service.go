package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"estate-api/internal/metrics"
	"estate-api/internal/model"
	"estate-api/internal/security"
	"estate-api/pkg/apierror"
)

// SessionService is the session lifecycle controller: sign-in, refresh in both
// forms, logout and session listing.
type SessionService struct {
	users    UserStore
	sessions SessionStore
	issuer   *security.TokenIssuer
	hasher   *security.Hasher
	metrics  *metrics.Metrics
}

func NewSessionService(users UserStore, sessions SessionStore, issuer *security.TokenIssuer, hasher *security.Hasher, m *metrics.Metrics) *SessionService {
	return &SessionService{
		users:    users,
		sessions: sessions,
		issuer:   issuer,
		hasher:   hasher,
		metrics:  m,
	}
}

// SigningKeyConfigured reports whether tokens can be issued and verified.
func (s *SessionService) SigningKeyConfigured() bool {
	return s.issuer.SigningKeyConfigured()
}

func (s *SessionService) VerifyAccessToken(token string) (*security.AccessClaims, error) {
	return s.issuer.VerifyAccessToken(token)
}

// SignIn checks credentials and opens a session for the (user, device) pair,
// replacing any session the device already had. Unknown email and wrong
// password produce the same error.
func (s *SessionService) SignIn(ctx context.Context, req model.SignInRequest) (pair model.TokenPair, user model.User, err error) {
	defer func() { s.metrics.SignIn(metrics.Result(err)) }()

	email := security.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return model.TokenPair{}, model.User{}, apierror.BadRequest(apierror.CodeMissingCredentials, "Email and password are required", "")
	}

	user, err = s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		s.hasher.CompareDummy(ctx, req.Password)
		return model.TokenPair{}, model.User{}, invalidCredentials()
	}
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}

	ok, err := s.hasher.Compare(ctx, user.PasswordHash, req.Password)
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}
	if !ok {
		return model.TokenPair{}, model.User{}, invalidCredentials()
	}

	if user.Status != model.AccountStatusActive {
		return model.TokenPair{}, model.User{}, apierror.Unauthorized(apierror.CodeInactiveAccount, "Account is not active")
	}

	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	pair, err = s.Establish(ctx, user, deviceID)
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}

	slog.Info("user signed in", "user_id", user.ID, "device_id", deviceID)
	return pair, user, nil
}

// Establish issues a fresh token pair for user and stores it as the session for
// deviceID. It is shared by sign-in, signup verification and explicit refresh.
func (s *SessionService) Establish(ctx context.Context, user model.User, deviceID string) (model.TokenPair, error) {
	accessToken, _, err := s.issuer.IssueAccessToken(user.Identity(), s.issuer.AccessTTL())
	if err != nil {
		return model.TokenPair{}, issueError(err)
	}
	refreshToken, refreshExpiresAt, err := s.issuer.IssueRefreshToken(user.ID, s.issuer.RefreshTTL())
	if err != nil {
		return model.TokenPair{}, issueError(err)
	}

	if _, err := s.sessions.Create(ctx, model.NewSession{
		UserID:       user.ID,
		DeviceID:     deviceID,
		RefreshToken: refreshToken,
		ExpiresAt:    refreshExpiresAt,
	}); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		DeviceID:     deviceID,
	}, nil
}

// Refresh is the explicit refresh endpoint. It rotates the grant: the caller
// gets a new access token and a new refresh token, and the previous refresh
// token stops working.
func (s *SessionService) Refresh(ctx context.Context, req model.RefreshRequest) (pair model.TokenPair, user model.User, err error) {
	defer func() { s.metrics.Refresh(metrics.RefreshExplicit, metrics.Result(err)) }()

	refreshToken := strings.TrimSpace(req.RefreshToken)
	if refreshToken == "" {
		return model.TokenPair{}, model.User{}, apierror.BadRequest(apierror.CodeMissingRefreshToken, "Refresh token is required", "")
	}

	session, err := s.resolveRefresh(ctx, "", refreshToken, strings.TrimSpace(req.DeviceID))
	switch {
	case errors.Is(err, model.ErrRefreshTokenExpired):
		return model.TokenPair{}, model.User{}, apierror.Wrap(err, apierror.CodeRefreshTokenExpired, "Refresh token expired, please sign in again", http.StatusUnauthorized)
	case errors.Is(err, model.ErrRefreshTokenInvalid):
		return model.TokenPair{}, model.User{}, apierror.Wrap(err, apierror.CodeInvalidRefreshToken, "Invalid refresh token", http.StatusUnauthorized)
	case err != nil:
		return model.TokenPair{}, model.User{}, issueError(err)
	}

	user, err = s.users.FindByID(ctx, session.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, model.User{}, apierror.NotFound(apierror.CodeNotFound, "User not found")
	}
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}

	pair, err = s.Establish(ctx, user, session.DeviceID)
	if err != nil {
		return model.TokenPair{}, model.User{}, err
	}
	return pair, user, nil
}

// RefreshAccess is the transparent refresh run by the auth gate when an access
// token has expired. It never touches the session row. The new access token is
// built from the current user record, so role and account type changes apply.
//
// Chain failures return model.ErrRefreshTokenInvalid, an expired grant returns
// model.ErrRefreshTokenExpired, anything else is a storage or configuration
// error.
func (s *SessionService) RefreshAccess(ctx context.Context, expiredSubject string, refreshToken string, deviceID string) (token string, identity model.Identity, err error) {
	defer func() { s.metrics.Refresh(metrics.RefreshTransparent, metrics.Result(err)) }()

	session, err := s.resolveRefresh(ctx, expiredSubject, refreshToken, deviceID)
	if err != nil {
		return "", model.Identity{}, err
	}

	user, err := s.users.FindByID(ctx, session.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return "", model.Identity{}, fmt.Errorf("%w: user %s no longer exists", model.ErrRefreshTokenInvalid, session.UserID)
	}
	if err != nil {
		return "", model.Identity{}, err
	}

	identity = user.Identity()
	token, _, err = s.issuer.IssueAccessToken(identity, s.issuer.AccessTTL())
	if err != nil {
		return "", model.Identity{}, err
	}
	return token, identity, nil
}

// resolveRefresh walks the refresh chain: signature, subject, session lookup
// (by device when known, by token value otherwise), owner, stored token
// equality and expiry. The row is read without side effects; an expired grant
// is deleted only once the presented token has matched it.
func (s *SessionService) resolveRefresh(ctx context.Context, expectedSubject string, refreshToken string, deviceID string) (model.Session, error) {
	claims, err := s.issuer.VerifyRefreshToken(refreshToken)
	tokenExpired := errors.Is(err, security.ErrTokenExpired)
	if errors.Is(err, security.ErrSigningKeyMissing) {
		return model.Session{}, err
	}
	if err != nil && !tokenExpired {
		return model.Session{}, fmt.Errorf("%w: %v", model.ErrRefreshTokenInvalid, err)
	}

	subject := claims.Subject
	if subject == "" {
		return model.Session{}, fmt.Errorf("%w: missing subject", model.ErrRefreshTokenInvalid)
	}
	if expectedSubject != "" && expectedSubject != subject {
		return model.Session{}, fmt.Errorf("%w: subject mismatch", model.ErrRefreshTokenInvalid)
	}

	var session model.Session
	if deviceID != "" {
		session, err = s.sessions.PeekByUserAndDevice(ctx, subject, deviceID)
	} else {
		session, err = s.sessions.PeekByRefreshToken(ctx, refreshToken)
	}
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
		return model.Session{}, fmt.Errorf("%w: no session", model.ErrRefreshTokenInvalid)
	case err != nil:
		return model.Session{}, err
	}

	if session.UserID != subject {
		return model.Session{}, fmt.Errorf("%w: session owner mismatch", model.ErrRefreshTokenInvalid)
	}
	if subtle.ConstantTimeCompare([]byte(session.RefreshToken), []byte(refreshToken)) != 1 {
		return model.Session{}, fmt.Errorf("%w: token superseded", model.ErrRefreshTokenInvalid)
	}

	if tokenExpired || session.Expired(time.Now()) {
		if _, err := s.sessions.Delete(ctx, session.ID); err != nil {
			return model.Session{}, err
		}
		return model.Session{}, model.ErrRefreshTokenExpired
	}
	return session, nil
}

// Logout revokes sessions of the caller. Modes are tried in priority order:
// all sessions, an explicit session id, the device id, then the refresh token.
func (s *SessionService) Logout(ctx context.Context, identity model.Identity, req model.LogoutRequest) (model.LogoutResult, error) {
	if req.LogoutAll {
		if _, err := s.sessions.DeleteAllForUser(ctx, identity.UserID); err != nil {
			return model.LogoutResult{}, err
		}
		s.metrics.Logout(string(model.LogoutAll))
		return model.LogoutResult{Mode: model.LogoutAll}, nil
	}

	var (
		mode    model.LogoutMode
		session model.Session
		err     error
	)
	switch {
	case strings.TrimSpace(req.SessionID) != "":
		mode = model.LogoutSession
		session, err = s.sessions.PeekByID(ctx, strings.TrimSpace(req.SessionID))
		if err == nil && session.UserID != identity.UserID {
			return model.LogoutResult{}, apierror.Forbidden("Session belongs to another user")
		}
		if err == nil && session.Expired(time.Now()) {
			if _, err := s.sessions.Delete(ctx, session.ID); err != nil {
				return model.LogoutResult{}, err
			}
			return model.LogoutResult{}, sessionNotFound()
		}
	case strings.TrimSpace(req.DeviceID) != "":
		mode = model.LogoutDevice
		session, err = s.sessions.GetByUserAndDevice(ctx, identity.UserID, strings.TrimSpace(req.DeviceID))
	case strings.TrimSpace(req.RefreshToken) != "":
		mode = model.LogoutToken
		session, err = s.sessions.GetByRefreshToken(ctx, strings.TrimSpace(req.RefreshToken))
		if err == nil && session.UserID != identity.UserID {
			err = model.ErrSessionNotFound
		}
	default:
		return model.LogoutResult{}, apierror.BadRequest(apierror.CodeMissingSessionInfo,
			"Provide logoutAll, sessionId, x-device-id or x-refresh-token", "")
	}
	if errors.Is(err, model.ErrSessionNotFound) || errors.Is(err, model.ErrSessionExpired) {
		return model.LogoutResult{}, sessionNotFound()
	}
	if err != nil {
		return model.LogoutResult{}, err
	}

	removed, err := s.sessions.Delete(ctx, session.ID)
	if err != nil {
		return model.LogoutResult{}, err
	}
	if !removed {
		return model.LogoutResult{}, sessionNotFound()
	}

	s.metrics.Logout(string(mode))
	return model.LogoutResult{Mode: mode, SessionID: session.ID}, nil
}

func (s *SessionService) ListSessions(ctx context.Context, identity model.Identity) ([]model.SessionView, error) {
	sessions, err := s.sessions.ListActiveForUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	views := make([]model.SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, session.View())
	}
	return views, nil
}

func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx)
}

func invalidCredentials() *apierror.APIError {
	return apierror.Unauthorized(apierror.CodeInvalidCredentials, "Invalid email or password")
}

func sessionNotFound() *apierror.APIError {
	return apierror.NotFound(apierror.CodeSessionNotFound, "Session not found")
}

func issueError(err error) error {
	if errors.Is(err, security.ErrSigningKeyMissing) {
		return apierror.Misconfigured(err)
	}
	return err
}
