package middleware

import (
	"mime"
	"net/http"
	apperrors "tripmarket/pkg/errors"
	httputil "tripmarket/pkg/http"
	"tripmarket/pkg/logger"
)

// ContentTypeValidation rejects request bodies that are not JSON. Methods
// that carry no body, such as a cancel via DELETE, are not checked.
func ContentTypeValidation(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
				if mediaType := mediaTypeOf(r); mediaType != "application/json" {
					log.Warn("Rejected request body",
						"request_id", RequestIDFromContext(r.Context()),
						"content_type", mediaType,
						"method", r.Method,
						"path", r.URL.Path,
					)
					err := apperrors.New(apperrors.CodeInvalidInput, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
					if writeErr := httputil.WriteError(w, err); writeErr != nil {
						log.Error("failed to write error response", "handler", "ContentTypeValidation", "operation", "WriteError", "error", writeErr)
					}
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// mediaTypeOf returns the lowercased media type without parameters, or "" when
// the header is missing or malformed.
func mediaTypeOf(r *http.Request) string {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mediaType
}
