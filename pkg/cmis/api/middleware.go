package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tendant/simple-cmis/pkg/cmis"
)

// PrincipalHeader carries the acting principal.
const PrincipalHeader = "X-CMIS-User"

// PrincipalMiddleware puts the acting principal into the request context.
// It is read from PrincipalHeader, then from the basic auth user name.
// Requests without either run as the anonymous principal. Credentials are
// not verified.
func PrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := r.Header.Get(PrincipalHeader)
		if principal == "" {
			if user, _, ok := r.BasicAuth(); ok {
				principal = user
			}
		}
		next.ServeHTTP(w, r.WithContext(cmis.WithPrincipal(r.Context(), principal)))
	})
}

// LoggingMiddleware logs each request with its status, size and duration
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("Request handled",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
