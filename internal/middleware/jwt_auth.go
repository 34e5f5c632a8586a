package middleware

import (
	"net/http"

	"github.com/mir00r/lb-dashboard/internal/auth"
	"github.com/mir00r/lb-dashboard/internal/errors"
	"github.com/mir00r/lb-dashboard/internal/handler"
	"github.com/mir00r/lb-dashboard/pkg/logger"
)

// JWTAuthMiddleware verifies the HS256 bearer token the dashboard signs for
// each feed request
type JWTAuthMiddleware struct {
	secret string
	logger *logger.Logger
}

// NewJWTAuthMiddleware returns nil when secret is empty, meaning the feeds
// are served without authentication
func NewJWTAuthMiddleware(secret string, log *logger.Logger) *JWTAuthMiddleware {
	if secret == "" {
		return nil
	}
	return &JWTAuthMiddleware{
		secret: secret,
		logger: log.MiddlewareLogger("jwt_auth"),
	}
}

// JWTAuth returns the JWT authentication middleware
func (jm *JWTAuthMiddleware) JWTAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.ExtractBearer(r)
			if token == "" {
				jm.reject(w, r, "token missing")
				return
			}

			claims, err := auth.Verify(token, jm.secret)
			if err != nil {
				jm.reject(w, r, err.Error())
				return
			}

			jm.logger.WithFields(map[string]interface{}{
				"request_id": RequestID(r.Context()),
				"subject":    claims.Subject,
			}).Debug("Token accepted")

			next.ServeHTTP(w, r)
		})
	}
}

func (jm *JWTAuthMiddleware) reject(w http.ResponseWriter, r *http.Request, reason string) {
	jm.logger.WithFields(map[string]interface{}{
		"request_id": RequestID(r.Context()),
		"path":       r.URL.Path,
		"ip":         r.RemoteAddr,
		"reason":     reason,
	}).Warn("JWT validation failed")

	handler.WriteError(w, errors.NewAuthenticationError(reason))
}
