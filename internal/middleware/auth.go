package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"estate-api/internal/metrics"
	"estate-api/internal/model"
	"estate-api/internal/respond"
	"estate-api/internal/security"
	"estate-api/pkg/apierror"
)

const (
	HeaderAccessToken  = "x-access-token"
	HeaderRefreshToken = "x-refresh-token"
	HeaderDeviceID     = "x-device-id"
)

type contextKey string

const identityContextKey contextKey = "auth_identity"

type sessionRefresher interface {
	SigningKeyConfigured() bool
	VerifyAccessToken(token string) (*security.AccessClaims, error)
	RefreshAccess(ctx context.Context, expiredSubject string, refreshToken string, deviceID string) (string, model.Identity, error)
}

// gateState is threaded through the steps of one request.
type gateState struct {
	w        http.ResponseWriter
	r        *http.Request
	token    string
	claims   *security.AccessClaims
	identity model.Identity
	done     bool
}

// gateStep either fails the request, marks it authenticated (done) or hands
// over to the next step.
type gateStep func(g *AuthGate, st *gateState) error

// gateSteps is the authentication decision procedure, evaluated in order.
var gateSteps = []gateStep{
	requireAccessToken,
	requireSigningKey,
	verifyAccessToken,
	requireRefreshToken,
	refreshAccessToken,
}

type AuthGate struct {
	sessions sessionRefresher
	metrics  *metrics.Metrics
}

func NewAuthGate(sessions sessionRefresher, m *metrics.Metrics) *AuthGate {
	return &AuthGate{sessions: sessions, metrics: m}
}

// Authenticate admits requests with a valid access token, or with an expired
// one plus a refresh token that still backs a live session. In the latter case
// a new access token is returned in the x-access-token response header.
func (g *AuthGate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &gateState{w: w, r: r}
		for _, step := range gateSteps {
			if err := step(g, st); err != nil {
				g.reject(w, r, err)
				return
			}
			if st.done {
				break
			}
		}
		if !st.done {
			g.reject(w, r, apierror.Unauthorized(apierror.CodeUnauthorized, "Unauthorized"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), st.identity)))
	})
}

func requireAccessToken(_ *AuthGate, st *gateState) error {
	st.token = strings.TrimSpace(st.r.Header.Get(HeaderAccessToken))
	if st.token == "" {
		return apierror.Unauthorized(apierror.CodeMissingToken, "Access token is required")
	}
	return nil
}

func requireSigningKey(g *AuthGate, _ *gateState) error {
	if !g.sessions.SigningKeyConfigured() {
		return apierror.Misconfigured(security.ErrSigningKeyMissing)
	}
	return nil
}

func verifyAccessToken(g *AuthGate, st *gateState) error {
	claims, err := g.sessions.VerifyAccessToken(st.token)
	switch {
	case err == nil:
		if claims.Subject == "" {
			return apierror.Unauthorized(apierror.CodeUnauthorized, "Unauthorized")
		}
		st.identity = identityFromClaims(claims)
		st.done = true
		return nil
	case errors.Is(err, security.ErrTokenExpired):
		st.claims = claims
		return nil
	case errors.Is(err, security.ErrSigningKeyMissing):
		return apierror.Misconfigured(err)
	default:
		slog.Warn("access token rejected", "path", st.r.URL.Path, "error", err)
		return apierror.Wrap(err, apierror.CodeUnauthorized, "Unauthorized", http.StatusUnauthorized)
	}
}

func requireRefreshToken(_ *AuthGate, st *gateState) error {
	if strings.TrimSpace(st.r.Header.Get(HeaderRefreshToken)) == "" {
		return apierror.Unauthorized(apierror.CodeTokenExpired, "Access token expired")
	}
	return nil
}

func refreshAccessToken(g *AuthGate, st *gateState) error {
	refreshToken := strings.TrimSpace(st.r.Header.Get(HeaderRefreshToken))
	deviceID := strings.TrimSpace(st.r.Header.Get(HeaderDeviceID))

	token, identity, err := g.sessions.RefreshAccess(st.r.Context(), st.claims.Subject, refreshToken, deviceID)
	switch {
	case errors.Is(err, model.ErrRefreshTokenExpired):
		return apierror.Wrap(err, apierror.CodeRefreshTokenExpired, "Refresh token expired, please sign in again", http.StatusUnauthorized)
	case errors.Is(err, model.ErrRefreshTokenInvalid):
		slog.Info("transparent refresh refused", "path", st.r.URL.Path, "error", err)
		return apierror.Wrap(err, apierror.CodeTokenExpired, "Access token expired", http.StatusUnauthorized)
	case errors.Is(err, security.ErrSigningKeyMissing):
		return apierror.Misconfigured(err)
	case err != nil:
		return err
	}

	st.w.Header().Set(HeaderAccessToken, token)
	st.identity = identity
	st.done = true
	return nil
}

func (g *AuthGate) reject(w http.ResponseWriter, r *http.Request, err error) {
	code := apierror.CodeInternal
	if apiErr, ok := apierror.As(err); ok {
		code = apiErr.Code
	}
	if code == apierror.CodeServerMisconfigured {
		slog.Error("auth gate misconfigured", "error", err)
	}
	g.metrics.GateRejected(code)
	respond.Error(w, r, err)
}

// RequireRoles admits only identities whose role is one of roles. It must run
// after Authenticate.
func RequireRoles(roles ...model.Role) func(http.Handler) http.Handler {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				respond.Error(w, r, apierror.Unauthorized(apierror.CodeNotAuthenticated, "Authentication required"))
				return
			}
			if _, permitted := allowed[identity.Role]; !permitted {
				respond.Error(w, r, apierror.Forbidden("Insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(model.Identity)
	return identity, ok
}

func identityFromClaims(claims *security.AccessClaims) model.Identity {
	return model.Identity{
		UserID:      claims.Subject,
		Email:       claims.Email,
		Role:        model.Role(claims.UserType),
		AccountType: model.AccountType(claims.AccountType),
	}
}
