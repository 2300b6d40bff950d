package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"estate-api/internal/respond"
	"estate-api/pkg/apierror"
)

func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				slog.Error("panic recovered",
					"request_id", w.Header().Get(respond.RequestIDHeader),
					"error", fmt.Sprintf("%v", recovered),
					"stack", string(debug.Stack()),
				)
				respond.Error(w, r, apierror.New(apierror.CodeInternal, "Internal server error", "", http.StatusInternalServerError))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
