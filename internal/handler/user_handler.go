package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"estate-api/internal/model"
	"estate-api/internal/respond"
	"estate-api/internal/service"
	"estate-api/pkg/apierror"
)

type UserHandler struct {
	users *service.UserService
	audit *service.AuditService
}

func NewUserHandler(users *service.UserService, audit *service.AuditService) *UserHandler {
	return &UserHandler{users: users, audit: audit}
}

func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	userID := chi.URLParam(r, "id")
	if userID == "" {
		respond.Error(w, r, apierror.BadRequest(apierror.CodeBadRequest, "User id is required", "id"))
		return
	}

	var payload model.UpdateRoleRequest
	if err := respond.DecodeJSON(r, &payload); err != nil {
		respond.Error(w, r, err)
		return
	}

	summary, err := h.users.UpdateRole(r.Context(), userID, payload.Role)
	h.audit.Log(r.Context(), model.AuditRole, actorFromRequest(r, nil), "user:"+userID+" role:"+string(payload.Role), err)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	respond.Success(w, http.StatusOK, "Role updated; it applies from the next token refresh", summary)
}
