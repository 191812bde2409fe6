package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	apperrors "tripmarket/pkg/errors"
	httputil "tripmarket/pkg/http"
	"tripmarket/pkg/logger"
)

// Recovery turns a handler panic into an opaque 500. http.ErrAbortHandler is
// re-raised so the server can drop the connection as intended.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("Panic recovered",
					"request_id", RequestIDFromContext(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				if err := httputil.WriteError(w, apperrors.Internal("Panic while handling request", fmt.Errorf("%v", rec))); err != nil {
					log.Error("failed to write error response", "handler", "Recovery", "operation", "WriteError", "error", err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
