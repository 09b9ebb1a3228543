package service_test

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/observability"
)

// fakeSessions is an in-memory port.SessionStore for tests.
type fakeSessions struct {
	mu    sync.Mutex
	items map[string]domain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{items: make(map[string]domain.Session)}
}

func (f *fakeSessions) Save(sid, token string, profile domain.UserProfile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[sid] = domain.Session{Token: token, Profile: profile}
}

func (f *fakeSessions) Load(sid string) (domain.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.items[sid]
	return s, ok
}

func (f *fakeSessions) Clear(sid string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, sid)
}

func (f *fakeSessions) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// seed installs a live session directly and returns its sid.
func (f *fakeSessions) seed(sid, token string, roles ...domain.Role) string {
	f.Save(sid, token, domain.UserProfile{
		ID:       1,
		Username: "maria",
		Roles:    roles,
	})
	return sid
}

// fakeUpstream implements the upstream ports with per-call hit counters, so
// tests can assert which operations reached the network.
type fakeUpstream struct {
	mu   sync.Mutex
	hits map[string]int

	signInPayload *domain.SignInPayload
	signInErr     error

	forgotErr error
	resetErr  error
	changeErr error

	registerCustomerErr  error
	registerPharmacyErr  error
	lastCustomerRegister *domain.RegisterCustomerRequest
	lastPharmacyRegister *domain.RegisterPharmacyRequest

	quotes     []domain.Quote
	listErr    error
	detail     *domain.QuoteDetail
	detailErr  error
	cancelErr  error
	image      []byte
	imageType  string
	imageErr   error
	createErr  error
	lastCreate struct {
		body        []byte
		contentType string
	}

	orders         []domain.Order
	ordersErr      error
	createOrderErr error
	lastOrder      *domain.CreateOrderRequest
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{hits: make(map[string]int)}
}

func (f *fakeUpstream) hit(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[op]++
}

func (f *fakeUpstream) hitCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[op]
}

func (f *fakeUpstream) totalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.hits {
		n += c
	}
	return n
}

func (f *fakeUpstream) SignIn(ctx context.Context, username, password string) (*domain.SignInPayload, error) {
	f.hit("signin")
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return f.signInPayload, nil
}

func (f *fakeUpstream) RegisterCustomer(ctx context.Context, req *domain.RegisterCustomerRequest) error {
	f.hit("register_customer")
	if f.registerCustomerErr != nil {
		return f.registerCustomerErr
	}
	f.mu.Lock()
	f.lastCustomerRegister = req
	f.mu.Unlock()
	return nil
}

func (f *fakeUpstream) RegisterPharmacy(ctx context.Context, req *domain.RegisterPharmacyRequest) error {
	f.hit("register_pharmacy")
	if f.registerPharmacyErr != nil {
		return f.registerPharmacyErr
	}
	f.mu.Lock()
	f.lastPharmacyRegister = req
	f.mu.Unlock()
	return nil
}

func (f *fakeUpstream) ForgotPassword(ctx context.Context, email string) error {
	f.hit("forgot")
	return f.forgotErr
}

func (f *fakeUpstream) ResetPassword(ctx context.Context, token, newPassword string) error {
	f.hit("reset")
	return f.resetErr
}

func (f *fakeUpstream) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error {
	f.hit("change")
	return f.changeErr
}

func (f *fakeUpstream) ListQuotes(ctx context.Context, token, status string) ([]domain.Quote, error) {
	f.hit("list_quotes")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.quotes, nil
}

func (f *fakeUpstream) ListPendingQuotes(ctx context.Context, token string) ([]domain.Quote, error) {
	f.hit("list_pending")
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.quotes, nil
}

func (f *fakeUpstream) GetQuote(ctx context.Context, token string, id int64) (*domain.QuoteDetail, error) {
	f.hit("get_quote")
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return f.detail, nil
}

func (f *fakeUpstream) CancelQuote(ctx context.Context, token string, id int64) error {
	f.hit("cancel_quote")
	return f.cancelErr
}

func (f *fakeUpstream) GetPrescriptionImage(ctx context.Context, token string, imageID int64) ([]byte, string, error) {
	f.hit("get_image")
	if f.imageErr != nil {
		return nil, "", f.imageErr
	}
	return f.image, f.imageType, nil
}

func (f *fakeUpstream) CreateQuote(ctx context.Context, token string, body []byte, contentType string) error {
	f.hit("create_quote")
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	f.lastCreate.body = body
	f.lastCreate.contentType = contentType
	f.mu.Unlock()
	return nil
}

func (f *fakeUpstream) ListOrdersByUser(ctx context.Context, token string) ([]domain.Order, error) {
	f.hit("list_orders_user")
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return f.orders, nil
}

func (f *fakeUpstream) ListOrdersByPharmacy(ctx context.Context, token, status string) ([]domain.Order, error) {
	f.hit("list_orders_pharmacy")
	if f.ordersErr != nil {
		return nil, f.ordersErr
	}
	return f.orders, nil
}

func (f *fakeUpstream) CreateOrder(ctx context.Context, token string, req *domain.CreateOrderRequest) error {
	f.hit("create_order")
	if f.createOrderErr != nil {
		return f.createOrderErr
	}
	f.mu.Lock()
	f.lastOrder = req
	f.mu.Unlock()
	return nil
}

func testMetrics() *observability.Metrics {
	return observability.NewMetrics(nil, nil)
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
