package domain

import "fmt"

// Error types for consistent error handling across the gateway.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an upstream service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
// An operation that fails validation never reaches the upstream API.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInvalidCredentials indicates the upstream API rejected a sign-in.
type ErrInvalidCredentials struct {
	Message string
}

func (e *ErrInvalidCredentials) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "Usuário ou senha inválidos"
}

// ErrUnauthorized indicates the gateway session is missing, invalid or expired.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrUpstreamAuth indicates the upstream API answered 401 to a bearer call.
// The transport raises it without side effects; the session layer reacts by
// clearing the session, whichever operation triggered it.
type ErrUpstreamAuth struct{}

func (e *ErrUpstreamAuth) Error() string {
	return "Sessão expirada. Faça login novamente"
}

// ErrTokenInvalid indicates a password-reset token was rejected upstream.
type ErrTokenInvalid struct{}

func (e *ErrTokenInvalid) Error() string {
	return "Link de redefinição inválido ou expirado"
}

// ErrForbidden indicates the user lacks the role for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrConflict indicates the operation conflicts with current state
// (e.g. advancing a wizard draft that is mid-submission).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}
