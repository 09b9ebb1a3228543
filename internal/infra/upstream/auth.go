package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// --- Auth endpoints (implements port.UpstreamAuth) ---

// SignIn calls POST /auth/signin. A 400/401 answer means bad credentials;
// the upstream message, when present, is carried into the error.
func (c *Client) SignIn(ctx context.Context, username, password string) (*domain.SignInPayload, error) {
	ctx, span := tracer.Start(ctx, "Upstream.SignIn")
	defer span.End()
	span.SetAttributes(attribute.String("username", username))

	body, err := c.postJSON(ctx, "/auth/signin", "", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		err = c.wrapErr("signin", err)
		var status *statusError
		if errors.As(err, &status) && status.Status < 500 {
			return nil, &domain.ErrInvalidCredentials{Message: status.Message}
		}
		return nil, err
	}

	var payload domain.SignInPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &domain.ErrExternalService{Service: "pharmacy-api/signin", Err: fmt.Errorf("decode sign-in payload: %w", err)}
	}
	if payload.Token == "" {
		return nil, &domain.ErrExternalService{Service: "pharmacy-api/signin", Err: errors.New("sign-in payload missing token")}
	}
	return &payload, nil
}

// RegisterCustomer calls POST /users/register. A 409 means the username or
// email is already taken; other 4xx answers carry the backend's validation
// message when one is present.
func (c *Client) RegisterCustomer(ctx context.Context, req *domain.RegisterCustomerRequest) error {
	ctx, span := tracer.Start(ctx, "Upstream.RegisterCustomer")
	defer span.End()
	span.SetAttributes(attribute.String("username", req.Username))

	_, err := c.postJSON(ctx, "/users/register", "", req)
	if err != nil {
		err = c.wrapErr("users/register", err)
		var status *statusError
		if errors.As(err, &status) && status.Status < 500 {
			if status.Status == http.StatusConflict {
				return &domain.ErrConflict{Message: "Usuário ou email já cadastrado no sistema"}
			}
			return &domain.ErrValidation{Field: "register", Message: registerMessage(status)}
		}
		return err
	}
	return nil
}

// RegisterPharmacy calls POST /pharmacy/register. Same status mapping as
// customer registration, with the CNPJ included in the conflict message.
func (c *Client) RegisterPharmacy(ctx context.Context, req *domain.RegisterPharmacyRequest) error {
	ctx, span := tracer.Start(ctx, "Upstream.RegisterPharmacy")
	defer span.End()
	span.SetAttributes(attribute.String("username", req.Username))

	_, err := c.postJSON(ctx, "/pharmacy/register", "", req)
	if err != nil {
		err = c.wrapErr("pharmacy/register", err)
		var status *statusError
		if errors.As(err, &status) && status.Status < 500 {
			if status.Status == http.StatusConflict {
				return &domain.ErrConflict{Message: "CNPJ, usuário ou email já cadastrado no sistema"}
			}
			return &domain.ErrValidation{Field: "register", Message: registerMessage(status)}
		}
		return err
	}
	return nil
}

func registerMessage(status *statusError) string {
	if status.Message != "" {
		return status.Message
	}
	return "Erro ao processar cadastro. Verifique seus dados e tente novamente."
}

// ForgotPassword calls POST /auth/forgot-password. The backend answers 2xx
// whether or not the address exists; this client does not second-guess that.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	ctx, span := tracer.Start(ctx, "Upstream.ForgotPassword")
	defer span.End()

	_, err := c.postJSON(ctx, "/auth/forgot-password", "", map[string]string{"email": email})
	if err != nil {
		return c.wrapErr("forgot-password", err)
	}
	return nil
}

// ResetPassword calls POST /auth/reset-password. A 4xx answer means the
// reset token was rejected.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	ctx, span := tracer.Start(ctx, "Upstream.ResetPassword")
	defer span.End()

	_, err := c.postJSON(ctx, "/auth/reset-password", "", map[string]string{
		"token":       token,
		"newPassword": newPassword,
	})
	if err != nil {
		err = c.wrapErr("reset-password", err)
		var status *statusError
		if errors.As(err, &status) && status.Status < 500 {
			return &domain.ErrTokenInvalid{}
		}
		return err
	}
	return nil
}

// ChangePassword calls POST /auth/change-password with the session bearer.
// A 400-class answer means the current password check failed.
func (c *Client) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error {
	ctx, span := tracer.Start(ctx, "Upstream.ChangePassword")
	defer span.End()

	_, err := c.postJSON(ctx, "/auth/change-password", token, map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	})
	if err != nil {
		err = c.wrapErr("change-password", err)
		var status *statusError
		if errors.As(err, &status) && (status.Status == http.StatusBadRequest || status.Status == http.StatusForbidden) {
			return &domain.ErrUnauthorized{Message: "Senha atual incorreta"}
		}
		return err
	}
	return nil
}
