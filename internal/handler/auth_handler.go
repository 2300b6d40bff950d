package handler

import (
	"net/http"

	"estate-api/internal/middleware"
	"estate-api/internal/model"
	"estate-api/internal/respond"
	"estate-api/internal/service"
)

type AuthHandler struct {
	sessions *service.SessionService
	signup   *service.SignupService
	users    *service.UserService
	audit    *service.AuditService
}

func NewAuthHandler(sessions *service.SessionService, signup *service.SignupService, users *service.UserService, audit *service.AuditService) *AuthHandler {
	return &AuthHandler{sessions: sessions, signup: signup, users: users, audit: audit}
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.SignInRequest
	if err := respond.DecodeJSON(r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}
	payload.DeviceID = headerOr(r, middleware.HeaderDeviceID, payload.DeviceID)

	pair, user, err := h.sessions.SignIn(r.Context(), payload)
	h.audit.Log(r.Context(), model.AuditSignIn, actorFromRequest(r, &user), "device:"+pair.DeviceID, err)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	writeTokenHeaders(w, pair)
	summary := user.Summary()
	summary.DeviceID = pair.DeviceID
	respond.Success(w, http.StatusOK, "Signed in successfully", summary)
}

// Refresh rotates the caller's grant. Token and device may come from headers
// or the JSON body; headers win.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.RefreshRequest
	if err := respond.DecodeJSON(r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}
	payload.RefreshToken = headerOr(r, middleware.HeaderRefreshToken, payload.RefreshToken)
	payload.DeviceID = headerOr(r, middleware.HeaderDeviceID, payload.DeviceID)

	pair, user, err := h.sessions.Refresh(r.Context(), payload)
	h.audit.Log(r.Context(), model.AuditRefresh, actorFromRequest(r, &user), "device:"+pair.DeviceID, err)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	writeTokenHeaders(w, pair)
	summary := user.Summary()
	summary.DeviceID = pair.DeviceID
	respond.Success(w, http.StatusOK, "Token refreshed", summary)
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.SignupRequest
	if err := respond.DecodeJSON(r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}

	resp, err := h.signup.Signup(r.Context(), payload, r.Header.Get(middleware.HeaderDeviceID))
	h.audit.Log(r.Context(), model.AuditSignup, actorFromRequest(r, &model.User{Email: payload.Email}), "email:"+payload.Email, err)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	w.Header().Set(middleware.HeaderDeviceID, resp.DeviceID)
	respond.Success(w, http.StatusCreated, "Verification code sent", resp)
}

func (h *AuthHandler) VerifySignup(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.VerifySignupRequest
	if err := respond.DecodeJSON(r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}
	payload.DeviceID = headerOr(r, middleware.HeaderDeviceID, payload.DeviceID)

	pair, user, err := h.signup.VerifySignup(r.Context(), payload)
	h.audit.Log(r.Context(), model.AuditVerify, actorFromRequest(r, &user), "pre_auth:"+payload.PreAuthSessionID, err)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	writeTokenHeaders(w, pair)
	summary := user.Summary()
	summary.DeviceID = pair.DeviceID
	respond.Success(w, http.StatusOK, "Account verified", summary)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrReject(w, r)
	if !ok {
		return
	}

	summary, err := h.users.Me(r.Context(), identity)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "", summary)
}
