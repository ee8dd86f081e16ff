package middleware

import (
	"net/http"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"

	"github.com/musclelog/backend/internal/auth"
	"github.com/musclelog/backend/internal/telemetry/tracing"
	"github.com/musclelog/backend/pkg"
)

type tokenVerifier interface {
	Verify(tokenString string) (string, error)
}

type AuthMiddlewareHandler struct {
	tokens       tokenVerifier
	allowedPaths map[string]bool
}

func NewAuthMiddlewareHandler(tokens tokenVerifier) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		tokens: tokens,
		allowedPaths: map[string]bool{
			"/api/register": true,
			"/api/login":    true,
		},
	}
}

// AuthCheck guards every route except registration and login. A missing
// token is 401, a bad or expired one is 403; on success the decoded user id
// rides the request context, the database is never touched here.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			tokenString, err := auth.ParseBearerToken(r.Header.Get("Authorization"))
			if err != nil {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				pkg.SendJSONError(w, "authentication token missing", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			userID, err := h.tokens.Verify(tokenString)
			if err != nil {
				log.Tracef("[invalid token] [auth middleware] forbidden => %s", r.URL.Path)
				pkg.SendJSONError(w, "token invalid or expired", http.StatusForbidden)
				span.SetStatus(codes.Error, "invalid-token")
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.ContextWithUserID(ctx, userID)))
		})
	}
}
