package handler

import (
	"net/http"
	"strings"

	"estate-api/internal/middleware"
	"estate-api/internal/model"
	"estate-api/internal/respond"
	"estate-api/pkg/apierror"
)

func writeTokenHeaders(w http.ResponseWriter, pair model.TokenPair) {
	w.Header().Set(middleware.HeaderAccessToken, pair.AccessToken)
	w.Header().Set(middleware.HeaderRefreshToken, pair.RefreshToken)
	w.Header().Set(middleware.HeaderDeviceID, pair.DeviceID)
}

// headerOr prefers the request header and falls back to the body value.
func headerOr(r *http.Request, header string, fallback string) string {
	if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

func respondNotAuthenticated(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, apierror.Unauthorized(apierror.CodeNotAuthenticated, "Authentication required"))
}
