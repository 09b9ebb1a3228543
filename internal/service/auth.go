// Package service — AuthService is the gateway between the browser and the
// upstream auth endpoints: sign-in, sign-out, password recovery and password
// change. It owns the session-store side effects: a successful login
// overwrites the session wholesale, a logout or upstream 401 clears it.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/observability"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

const minPasswordLen = 8

// AuthService orchestrates authentication flows.
type AuthService struct {
	upstream port.UpstreamAuth
	sessions port.SessionStore
	tokens   *TokenIssuer
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(upstream port.UpstreamAuth, sessions port.SessionStore, tokens *TokenIssuer, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		upstream: upstream,
		sessions: sessions,
		tokens:   tokens,
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// Login — POST /v1/auth/signin
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.SignInRequest) (*domain.SignInResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()
	span.SetAttributes(attribute.String("username", req.Username))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("login", time.Since(start)) }()

	if strings.TrimSpace(req.Username) == "" {
		return nil, &domain.ErrValidation{Field: "username", Message: "Informe o usuário"}
	}
	if req.Password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "Informe a senha"}
	}

	payload, err := s.upstream.SignIn(ctx, req.Username, req.Password)
	if err != nil {
		switch err.(type) {
		case *domain.ErrInvalidCredentials:
			s.metrics.IncrLogin("invalid")
			s.logger.Warn("login: credentials rejected", zap.String("username", req.Username))
		default:
			s.metrics.IncrLogin("error")
		}
		return nil, err
	}

	profile := domain.UserProfile{
		ID:        payload.ID,
		Username:  payload.Username,
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Roles:     domain.ParseRoles(payload.Roles),
	}

	sid := uuid.NewString()
	s.sessions.Save(sid, payload.Token, profile)

	sessionToken, err := s.tokens.Sign(sid, profile.Roles)
	if err != nil {
		s.sessions.Clear(sid)
		s.metrics.IncrLogin("error")
		return nil, err
	}

	role, _ := profile.PrimaryRole()
	s.metrics.IncrLogin("success")
	s.logger.Info("user logged in",
		zap.String("session_id", sid),
		zap.String("username", profile.Username),
		zap.String("role", string(role)),
	)

	return &domain.SignInResponse{
		SessionToken: sessionToken,
		ExpiresIn:    int(s.tokens.TTL().Seconds()),
		User:         profile,
	}, nil
}

// ============================================================
// Logout — POST /v1/auth/signout
// ============================================================

// Logout clears the session pair. Local-only and never fails: the upstream
// token simply stops being used and expires on its own.
func (s *AuthService) Logout(ctx context.Context, sid string) {
	_, span := authTracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	s.sessions.Clear(sid)
	s.logger.Info("user logged out", zap.String("session_id", sid))
}

// ============================================================
// Current — GET /v1/session
// ============================================================

// Current returns the cached profile for a live session.
func (s *AuthService) Current(ctx context.Context, sid string) (*domain.UserProfile, error) {
	_, span := authTracer.Start(ctx, "AuthService.Current")
	defer span.End()

	sess, err := requireSession(s.sessions, sid)
	if err != nil {
		return nil, err
	}
	return &sess.Profile, nil
}

// ============================================================
// RequestPasswordReset — POST /v1/auth/forgot-password
// ============================================================

// RequestPasswordReset asks upstream to mail a reset link. Once the call
// returns 2xx the caller always sees success, whether or not the address
// exists — account existence is not disclosed.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.RequestPasswordReset")
	defer span.End()

	if strings.TrimSpace(email) == "" {
		return &domain.ErrValidation{Field: "email", Message: "Informe o e-mail"}
	}

	if err := s.upstream.ForgotPassword(ctx, email); err != nil {
		return err
	}

	s.logger.Info("password reset requested")
	return nil
}

// ============================================================
// ConfirmPasswordReset — POST /v1/auth/reset-password
// ============================================================

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, req *domain.ResetPasswordRequest) error {
	ctx, span := authTracer.Start(ctx, "AuthService.ConfirmPasswordReset")
	defer span.End()

	if strings.TrimSpace(req.Token) == "" {
		return &domain.ErrValidation{Field: "token", Message: "Link de redefinição inválido"}
	}
	if err := validateNewPassword(req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}

	if err := s.upstream.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		return err
	}

	s.logger.Info("password reset completed")
	return nil
}

// ============================================================
// ChangePassword — POST /v1/auth/change-password
// ============================================================

func (s *AuthService) ChangePassword(ctx context.Context, sid string, req *domain.ChangePasswordRequest) error {
	ctx, span := authTracer.Start(ctx, "AuthService.ChangePassword")
	defer span.End()

	sess, err := requireSession(s.sessions, sid)
	if err != nil {
		return err
	}

	if req.CurrentPassword == "" {
		return &domain.ErrValidation{Field: "currentPassword", Message: "Informe a senha atual"}
	}
	if err := validateNewPassword(req.NewPassword, req.ConfirmPassword); err != nil {
		return err
	}

	if err := s.upstream.ChangePassword(ctx, sess.Token, req.CurrentPassword, req.NewPassword); err != nil {
		return invalidateOnAuthErr(s.sessions, s.logger, sid, err)
	}

	s.logger.Info("password changed", zap.String("session_id", sid))
	return nil
}

// validateNewPassword enforces the length and confirmation rules shared by
// reset and change. Both fail before any network call.
func validateNewPassword(newPassword, confirm string) error {
	if len(newPassword) < minPasswordLen {
		return &domain.ErrValidation{Field: "newPassword", Message: "A senha deve ter pelo menos 8 caracteres"}
	}
	if newPassword != confirm {
		return &domain.ErrValidation{Field: "confirmPassword", Message: "As senhas não coincidem"}
	}
	return nil
}
