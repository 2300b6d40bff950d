package middleware

import (
	"net/http"
	"time"
)

const timeoutBody = `{"status":503,"success":false,"message":"Request timed out","error":{"code":"REQUEST_TIMEOUT","message":"Request timed out"}}`

func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, timeoutBody)
	}
}
