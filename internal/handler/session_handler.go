package handler

import (
	"net/http"
	"strconv"
	"strings"

	"estate-api/internal/middleware"
	"estate-api/internal/model"
	"estate-api/internal/respond"
	"estate-api/internal/service"
)

type SessionHandler struct {
	sessions *service.SessionService
	audit    *service.AuditService
}

func NewSessionHandler(sessions *service.SessionService, audit *service.AuditService) *SessionHandler {
	return &SessionHandler{sessions: sessions, audit: audit}
}

// Logout accepts logoutAll and sessionId in the JSON body (or query string)
// and falls back to the x-device-id and x-refresh-token headers.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	identity, ok := identityOrReject(w, r)
	if !ok {
		return
	}

	var payload model.LogoutRequest
	if err := respond.DecodeJSON(r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}

	query := r.URL.Query()
	if !payload.LogoutAll {
		payload.LogoutAll, _ = strconv.ParseBool(strings.TrimSpace(query.Get("logoutAll")))
	}
	if payload.SessionID == "" {
		payload.SessionID = strings.TrimSpace(query.Get("sessionId"))
	}
	payload.DeviceID = strings.TrimSpace(r.Header.Get(middleware.HeaderDeviceID))
	payload.RefreshToken = strings.TrimSpace(r.Header.Get(middleware.HeaderRefreshToken))

	result, err := h.sessions.Logout(r.Context(), identity, payload)
	h.audit.Log(r.Context(), model.AuditLogout, actorFromRequest(r, nil), "mode:"+string(result.Mode), err)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	message := "Logged out successfully"
	if result.Mode == model.LogoutAll {
		message = "Logged out from all devices"
	}
	respond.Success(w, http.StatusOK, message, result)
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrReject(w, r)
	if !ok {
		return
	}

	sessions, err := h.sessions.ListSessions(r.Context(), identity)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "", sessions)
}
