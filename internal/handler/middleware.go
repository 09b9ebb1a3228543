package handler

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/guard"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/service"
)

type contextKey string

const (
	sessionIDKey contextKey = "sessionID"
	rolesKey     contextKey = "roles"
)

// SessionAuthMiddleware validates gateway Bearer tokens and injects the
// session ID and roles into the request context. Only the token is checked
// here; whether the session pair still exists is the service layer's
// concern, so an invalidated session fails inside the operation rather
// than at the door.
func SessionAuthMiddleware(tokens *service.TokenIssuer, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeErrorRedirect(w, http.StatusUnauthorized, "Token de autenticação não fornecido", guard.LoginPath)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeErrorRedirect(w, http.StatusUnauthorized, "Formato de token inválido", guard.LoginPath)
				return
			}

			claims, err := tokens.Validate(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeErrorRedirect(w, http.StatusUnauthorized, err.Error(), guard.LoginPath)
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, claims.SID)
			ctx = context.WithValue(ctx, rolesKey, domain.ParseRoles(claims.Roles))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route group on a role through the same decision
// function the frontend consults, so API enforcement and navigation can
// never disagree.
func RequireRole(required domain.Role, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roles := RolesFromContext(r.Context())

			decision := guard.Decide(guard.StateAuthenticated, true, required, roles)
			switch decision.Kind {
			case guard.Render:
				next.ServeHTTP(w, r)
			case guard.RedirectToLogin:
				writeErrorRedirect(w, http.StatusUnauthorized, "Sessão inválida", decision.Target)
			default:
				logger.Warn("role denied",
					zap.String("path", r.URL.Path),
					zap.String("required", string(required)),
				)
				writeErrorRedirect(w, http.StatusForbidden, "Acesso não permitido para este perfil", decision.Target)
			}
		})
	}
}

// SessionIDFromContext extracts the authenticated gateway session ID.
func SessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// RolesFromContext extracts the authenticated roles.
func RolesFromContext(ctx context.Context) []domain.Role {
	v, _ := ctx.Value(rolesKey).([]domain.Role)
	return v
}
