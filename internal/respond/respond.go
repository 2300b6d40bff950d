// Package respond writes the JSON envelope every endpoint returns and is the
// only place where errors are converted into HTTP responses.
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"estate-api/internal/model"
	"estate-api/pkg/apierror"
)

const RequestIDHeader = "X-Request-ID"

func JSON(w http.ResponseWriter, status int, payload model.APIResponse) {
	payload.Status = status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, model.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func SuccessWithMeta(w http.ResponseWriter, status int, message string, data any, meta *model.Meta) {
	JSON(w, status, model.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	})
}

// Error converts err into the failure envelope. Typed errors keep their status
// and code; known sentinels are mapped; everything else becomes a generic 500
// and is logged with the request id.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)

	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"request_id", w.Header().Get(RequestIDHeader),
			"method", r.Method,
			"path", r.URL.Path,
			"code", body.Code,
			"error", err,
		)
	}

	JSON(w, status, model.APIResponse{
		Success: false,
		Message: body.Message,
		Error:   body,
	})
}

func classify(err error) (int, *model.APIError) {
	if apiErr, ok := apierror.As(err); ok {
		return apiErr.HTTPStatus, &model.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}
	}

	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return http.StatusNotFound, &model.APIError{Code: apierror.CodeNotFound, Message: "User not found"}
	case errors.Is(err, model.ErrUserAlreadyExists):
		return http.StatusBadRequest, &model.APIError{Code: apierror.CodeUserExists, Message: "User already exists"}
	case errors.Is(err, model.ErrSessionNotFound), errors.Is(err, model.ErrSessionExpired):
		return http.StatusNotFound, &model.APIError{Code: apierror.CodeSessionNotFound, Message: "Session not found"}
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, &model.APIError{Code: apierror.CodeUnauthorized, Message: "Authentication required"}
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, &model.APIError{Code: apierror.CodeForbidden, Message: "Access denied"}
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest, &model.APIError{Code: apierror.CodeBadRequest, Message: "Invalid input"}
	}

	return http.StatusInternalServerError, &model.APIError{Code: apierror.CodeInternal, Message: "Internal server error"}
}

// DecodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return apierror.BadRequest(apierror.CodeBadRequest, "Invalid JSON body", "")
	}
	return nil
}
