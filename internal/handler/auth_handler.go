package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/guard"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/port"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/service"
)

// ============================================================
// Autenticação
// ============================================================

func authSignInHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/signin")
		defer span.End()

		var req domain.SignInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := authSvc.Login(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func authRegisterCustomerHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/register/customer")
		defer span.End()

		var req domain.RegisterCustomerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := authSvc.RegisterCustomer(ctx, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, domain.SuccessResponse{
			Message: "Cadastro realizado com sucesso! Faça login para continuar.",
		})
	}
}

func authRegisterPharmacyHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/register/pharmacy")
		defer span.End()

		var req domain.RegisterPharmacyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := authSvc.RegisterPharmacy(ctx, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, domain.SuccessResponse{
			Message: "Cadastro realizado com sucesso! Faça login para continuar.",
		})
	}
}

func authSignOutHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/signout")
		defer span.End()

		sid := SessionIDFromContext(ctx)
		authSvc.Logout(ctx, sid)

		w.WriteHeader(http.StatusNoContent)
	}
}

func authForgotPasswordHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/forgot-password")
		defer span.End()

		var req domain.ForgotPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := authSvc.RequestPasswordReset(ctx, req.Email); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// Always the same message once upstream accepted the request, so the
		// response does not disclose whether the account exists.
		writeJSON(w, http.StatusOK, domain.SuccessResponse{
			Message: "Se o e-mail estiver cadastrado, você receberá as instruções de redefinição",
		})
	}
}

func authResetPasswordHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/reset-password")
		defer span.End()

		var req domain.ResetPasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := authSvc.ConfirmPasswordReset(ctx, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Senha redefinida com sucesso"})
	}
}

func authChangePasswordHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/change-password")
		defer span.End()

		var req domain.ChangePasswordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sid := SessionIDFromContext(ctx)
		if err := authSvc.ChangePassword(ctx, sid, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Senha alterada com sucesso"})
	}
}

func sessionHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/session")
		defer span.End()

		sid := SessionIDFromContext(ctx)
		profile, err := authSvc.Current(ctx, sid)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, profile)
	}
}

// ============================================================
// Route guard decision
// ============================================================

type routeDecisionResponse struct {
	Action string `json:"action"`
	Target string `json:"target,omitempty"`
}

func decisionAction(k guard.Kind) string {
	switch k {
	case guard.Render:
		return "render"
	case guard.RedirectToLogin:
		return "redirect_to_login"
	case guard.RedirectToHome:
		return "redirect_to_home"
	default:
		return "suspend"
	}
}

// routeDecisionHandler answers GET /v1/route/decision for the frontend
// router. Query: requiresAuth (bool), requiredRole (optional). The visitor
// state comes from the Authorization header when present; a missing or
// invalid token means anonymous, never an error, because the guard is asked
// about public routes too.
func routeDecisionHandler(tokens *service.TokenIssuer, sessions port.SessionStore, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/route/decision")
		defer span.End()

		requiresAuth, _ := strconv.ParseBool(r.URL.Query().Get("requiresAuth"))

		var required domain.Role
		if raw := r.URL.Query().Get("requiredRole"); raw != "" {
			parsed, ok := domain.ParseRole(raw)
			if !ok {
				writeError(w, http.StatusBadRequest, "perfil desconhecido")
				return
			}
			required = parsed
		}

		state := guard.StateAnonymous
		var roles []domain.Role
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				if claims, err := tokens.Validate(parts[1]); err == nil {
					if sess, ok := sessions.Load(claims.SID); ok {
						state = guard.StateAuthenticated
						roles = sess.Profile.Roles
					}
				}
			}
		}

		d := guard.Decide(state, requiresAuth, required, roles)
		writeJSON(w, http.StatusOK, routeDecisionResponse{
			Action: decisionAction(d.Kind),
			Target: d.Target,
		})
	}
}
