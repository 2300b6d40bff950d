package handler

import (
	"context"
	"net/http"
	"time"

	"estate-api/internal/respond"
	"estate-api/pkg/apierror"
)

const healthCheckTimeout = 2 * time.Second

// HealthHandler reports liveness and, when a checker is set, storage reachability.
type HealthHandler struct {
	check func(ctx context.Context) error
}

func NewHealthHandler(check func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{check: check}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.check != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := h.check(ctx); err != nil {
			respond.Error(w, r, apierror.Wrap(err, apierror.CodeUnavailable, "Storage unavailable", http.StatusServiceUnavailable))
			return
		}
	}

	respond.Success(w, http.StatusOK, "ok", map[string]string{"status": "healthy"})
}
