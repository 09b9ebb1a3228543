// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service layer
// from concrete implementations: the upstream HTTP client on one side, the
// in-memory stores on the other.
package port

import (
	"context"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
)

// UpstreamAuth covers the pharmacy API auth endpoints.
type UpstreamAuth interface {
	SignIn(ctx context.Context, username, password string) (*domain.SignInPayload, error)
	RegisterCustomer(ctx context.Context, req *domain.RegisterCustomerRequest) error
	RegisterPharmacy(ctx context.Context, req *domain.RegisterPharmacyRequest) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error
}

// UpstreamQuotes covers the pharmacy API quote endpoints.
type UpstreamQuotes interface {
	ListQuotes(ctx context.Context, token, status string) ([]domain.Quote, error)
	ListPendingQuotes(ctx context.Context, token string) ([]domain.Quote, error)
	GetQuote(ctx context.Context, token string, id int64) (*domain.QuoteDetail, error)
	CancelQuote(ctx context.Context, token string, id int64) error
	GetPrescriptionImage(ctx context.Context, token string, imageID int64) ([]byte, string, error)
	CreateQuote(ctx context.Context, token string, body []byte, contentType string) error
}

// UpstreamOrders covers the pharmacy API order endpoints.
type UpstreamOrders interface {
	ListOrdersByUser(ctx context.Context, token string) ([]domain.Order, error)
	ListOrdersByPharmacy(ctx context.Context, token, status string) ([]domain.Order, error)
	CreateOrder(ctx context.Context, token string, req *domain.CreateOrderRequest) error
}

// SessionStore persists the token/profile pair per gateway session.
type SessionStore interface {
	Save(sid, token string, profile domain.UserProfile)
	Load(sid string) (domain.Session, bool)
	Clear(sid string)
	Len() int
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
