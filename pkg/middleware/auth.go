package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	apperrors "tripmarket/pkg/errors"
	httputil "tripmarket/pkg/http"
	"tripmarket/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const RiderIDKey contextKey = "rider_id"

// Claims identify the rider behind a bearer token.
type Claims struct {
	RiderID string `json:"rider_id"`
	jwt.RegisteredClaims
}

func GenerateToken(riderID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RiderID: riderID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   riderID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.RiderID == "" {
		return nil, jwt.ErrTokenMalformed
	}

	return claims, nil
}

// Authenticate resolves the rider from an "Authorization: Bearer" header.
// Requests without the header pass through anonymously; handlers that need a
// rider reject them. A header that is present but invalid is always a 401.
func Authenticate(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				rejectUnauthorized(w, log, r, "Invalid authorization header format", nil)
				return
			}

			claims, err := ValidateToken(strings.TrimSpace(tokenString), secret)
			if err != nil {
				rejectUnauthorized(w, log, r, "Invalid token", err)
				return
			}

			ctx := context.WithValue(r.Context(), RiderIDKey, claims.RiderID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func rejectUnauthorized(w http.ResponseWriter, log *logger.Logger, r *http.Request, message string, cause error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
		if errors.Is(cause, jwt.ErrTokenExpired) {
			message = "Token expired"
		}
	}

	log.Warn("Rejected unauthenticated request",
		"request_id", RequestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"reason", reason,
	)

	if writeErr := httputil.WriteError(w, apperrors.Unauthorized(message)); writeErr != nil {
		log.Error("failed to write error response", "handler", "Authenticate", "operation", "WriteError", "error", writeErr)
	}
}

// RiderIDFromContext returns the authenticated rider, or "" for anonymous requests.
func RiderIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RiderIDKey).(string); ok {
		return id
	}
	return ""
}

// WithRiderID is used by tests and internal callers to act as a rider.
func WithRiderID(ctx context.Context, riderID string) context.Context {
	return context.WithValue(ctx, RiderIDKey, riderID)
}
