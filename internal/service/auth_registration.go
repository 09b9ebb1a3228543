package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"

	"go.uber.org/zap"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// requiredField is one entry of an ordered presence check, so validation
// errors always name the first missing field.
type requiredField struct {
	name  string
	value string
}

func checkRequired(fields []requiredField) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return &domain.ErrValidation{Field: f.name, Message: "O campo " + f.name + " é obrigatório"}
		}
	}
	return nil
}

func checkPassword(password, confirm string) error {
	if len(password) < minPasswordLen {
		return &domain.ErrValidation{Field: "password", Message: "A senha deve ter pelo menos 8 caracteres"}
	}
	if password != confirm {
		return &domain.ErrValidation{Field: "confirmPassword", Message: "As senhas não correspondem"}
	}
	return nil
}

// ============================================================
// RegisterCustomer — POST /v1/auth/register/customer
// ============================================================

// RegisterCustomer validates and forwards a customer sign-up. Masked fields
// are normalized to their full format before validation, so raw digits and
// masked input are both accepted. Registration never creates a session; the
// user signs in afterwards.
func (s *AuthService) RegisterCustomer(ctx context.Context, req *domain.RegisterCustomerRequest) error {
	ctx, span := authTracer.Start(ctx, "AuthService.RegisterCustomer")
	defer span.End()

	if err := checkRequired([]requiredField{
		{"username", req.Username},
		{"email", req.Email},
		{"password", req.Password},
		{"firstName", req.FirstName},
		{"lastName", req.LastName},
		{"street", req.Street},
		{"number", req.Number},
		{"neighborhood", req.Neighborhood},
		{"city", req.City},
		{"state", req.State},
		{"zipCode", req.ZipCode},
	}); err != nil {
		return err
	}

	if !emailRe.MatchString(req.Email) {
		return &domain.ErrValidation{Field: "email", Message: "Email inválido"}
	}
	if err := checkPassword(req.Password, req.ConfirmPassword); err != nil {
		return err
	}

	req.ZipCode = domain.FormatZipCode(req.ZipCode)
	if !domain.ValidZipCode(req.ZipCode) {
		return &domain.ErrValidation{Field: "zipCode", Message: "CEP inválido. Use o formato: XXXXX-XXX"}
	}

	// The confirmation stays at the gateway.
	req.ConfirmPassword = ""

	if err := s.upstream.RegisterCustomer(ctx, req); err != nil {
		return err
	}

	s.logger.Info("customer registered", zap.String("username", req.Username))
	return nil
}

// ============================================================
// RegisterPharmacy — POST /v1/auth/register/pharmacy
// ============================================================

// RegisterPharmacy validates and forwards a pharmacy sign-up: the legal
// entity plus its administrator account.
func (s *AuthService) RegisterPharmacy(ctx context.Context, req *domain.RegisterPharmacyRequest) error {
	ctx, span := authTracer.Start(ctx, "AuthService.RegisterPharmacy")
	defer span.End()

	if err := checkRequired([]requiredField{
		{"name", req.Name},
		{"cnpj", req.CNPJ},
		{"street", req.Street},
		{"number", req.Number},
		{"neighborhood", req.Neighborhood},
		{"city", req.City},
		{"state", req.State},
		{"zipCode", req.ZipCode},
		{"phoneNumber", req.PhoneNumber},
		{"email", req.Email},
		{"username", req.Username},
		{"password", req.Password},
		{"adminFirstName", req.AdminFirstName},
		{"adminLastName", req.AdminLastName},
	}); err != nil {
		return err
	}

	req.CNPJ = domain.FormatCNPJ(req.CNPJ)
	if !domain.ValidCNPJ(req.CNPJ) {
		return &domain.ErrValidation{Field: "cnpj", Message: "CNPJ inválido. Use o formato: XX.XXX.XXX/XXXX-XX"}
	}
	if !emailRe.MatchString(req.Email) {
		return &domain.ErrValidation{Field: "email", Message: "Email inválido"}
	}
	req.ZipCode = domain.FormatZipCode(req.ZipCode)
	if !domain.ValidZipCode(req.ZipCode) {
		return &domain.ErrValidation{Field: "zipCode", Message: "CEP inválido. Use o formato: XXXXX-XXX"}
	}
	req.PhoneNumber = domain.FormatPhone(req.PhoneNumber)
	if !domain.ValidPhone(req.PhoneNumber) {
		return &domain.ErrValidation{Field: "phoneNumber", Message: "Telefone inválido. Use o formato: (XX) XXXXX-XXXX"}
	}
	if err := checkPassword(req.Password, req.ConfirmPassword); err != nil {
		return err
	}

	req.ConfirmPassword = ""

	if err := s.upstream.RegisterPharmacy(ctx, req); err != nil {
		return err
	}

	s.logger.Info("pharmacy registered",
		zap.String("username", req.Username),
		zap.String("cnpj", req.CNPJ),
	)
	return nil
}
