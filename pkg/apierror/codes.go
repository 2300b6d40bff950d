package apierror

import "net/http"

const (
	CodeBadRequest          = "BAD_REQUEST"
	CodeMissingCredentials  = "MISSING_CREDENTIALS"
	CodeMissingFields       = "MISSING_FIELDS"
	CodeWeakPassword        = "WEAK_PASSWORD"
	CodeInvalidEmail        = "INVALID_EMAIL"
	CodeMissingRefreshToken = "MISSING_REFRESH_TOKEN"
	CodeMissingSessionInfo  = "MISSING_SESSION_INFO"
	CodeInvalidCode         = "INVALID_CODE"
	CodeCodeExpired         = "CODE_EXPIRED"
	CodeDeviceMismatch      = "DEVICE_MISMATCH"

	CodeMissingToken        = "MISSING_TOKEN"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeNotAuthenticated    = "NOT_AUTHENTICATED"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInactiveAccount     = "INACTIVE_ACCOUNT"
	CodeInvalidRefreshToken = "INVALID_REFRESH_TOKEN"
	CodeRefreshTokenExpired = "REFRESH_TOKEN_EXPIRED"

	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeUserExists      = "USER_EXISTS"

	CodeServerMisconfigured = "SERVER_MISCONFIGURED"
	CodeInternal            = "INTERNAL_ERROR"
	CodeRateLimited         = "RATE_LIMITED"
	CodeUnavailable         = "SERVICE_UNAVAILABLE"
)

func BadRequest(code string, message string, details string) *APIError {
	return New(code, message, details, http.StatusBadRequest)
}

func Unauthorized(code string, message string) *APIError {
	return New(code, message, "", http.StatusUnauthorized)
}

func Forbidden(message string) *APIError {
	return New(CodeForbidden, message, "", http.StatusForbidden)
}

func NotFound(code string, message string) *APIError {
	return New(code, message, "", http.StatusNotFound)
}

// Misconfigured reports a server configuration problem. The client only sees a
// generic message; cause is kept for the logs.
func Misconfigured(cause error) *APIError {
	return Wrap(cause, CodeServerMisconfigured, "Internal server error", http.StatusInternalServerError)
}
