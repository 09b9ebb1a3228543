package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/coalesce"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/observability"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/port"
)

var ordersTracer = otel.Tracer("service/orders")

// OrdersService reads and creates orders against the pharmacy API. Like
// quotes, list reads coalesce per session; creation is a straight
// write-through since it is user-initiated and never concurrent with itself.
type OrdersService struct {
	upstream port.UpstreamOrders
	sessions port.SessionStore
	flights  *coalesce.Group
	metrics  *observability.Metrics
	logger   *zap.Logger
}

func NewOrdersService(
	upstream port.UpstreamOrders,
	sessions port.SessionStore,
	flights *coalesce.Group,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *OrdersService {
	return &OrdersService{
		upstream: upstream,
		sessions: sessions,
		flights:  flights,
		metrics:  metrics,
		logger:   logger,
	}
}

// ListByUser returns the session customer's orders.
func (s *OrdersService) ListByUser(ctx context.Context, sid string) ([]domain.Order, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.ListByUser")
	defer span.End()

	sess, err := requireSession(s.sessions, sid)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("orders:%s:user", sid)
	orders, shared, err := coalesce.Do(s.flights, ctx, key, func(ctx context.Context) ([]domain.Order, error) {
		return s.upstream.ListOrdersByUser(ctx, sess.Token)
	})
	s.metrics.IncrCoalesced(shared)
	if err != nil {
		return nil, invalidateOnAuthErr(s.sessions, s.logger, sid, err)
	}
	return orders, nil
}

// ListByPharmacy returns the session pharmacy's orders, optionally filtered
// by status.
func (s *OrdersService) ListByPharmacy(ctx context.Context, sid, status string) ([]domain.Order, error) {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.ListByPharmacy")
	defer span.End()
	span.SetAttributes(attribute.String("orders.status_filter", status))

	sess, err := requireSession(s.sessions, sid)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("orders:%s:pharmacy:status=%s", sid, status)
	orders, shared, err := coalesce.Do(s.flights, ctx, key, func(ctx context.Context) ([]domain.Order, error) {
		return s.upstream.ListOrdersByPharmacy(ctx, sess.Token, status)
	})
	s.metrics.IncrCoalesced(shared)
	if err != nil {
		return nil, invalidateOnAuthErr(s.sessions, s.logger, sid, err)
	}
	return orders, nil
}

// Create submits an order proposal for a quote. The total is recomputed
// server-side from the line items so a stale client figure never reaches
// upstream.
func (s *OrdersService) Create(ctx context.Context, sid string, req *domain.CreateOrderRequest) error {
	ctx, span := ordersTracer.Start(ctx, "OrdersService.Create")
	defer span.End()
	span.SetAttributes(attribute.Int64("quote.id", req.QuoteID))

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("order_create", time.Since(start)) }()

	if err := validateOrder(req); err != nil {
		return err
	}

	sess, err := requireSession(s.sessions, sid)
	if err != nil {
		return err
	}

	req.Total = ComputeTotal(req.Items, req.ShippingCost, req.DiscountValue)

	if err := s.upstream.CreateOrder(ctx, sess.Token, req); err != nil {
		return invalidateOnAuthErr(s.sessions, s.logger, sid, err)
	}

	s.flights.Forget(fmt.Sprintf("orders:%s:pharmacy:status=", sid))
	s.logger.Info("order created",
		zap.String("session_id", sid),
		zap.Int64("quote_id", req.QuoteID),
		zap.Float64("total", req.Total))
	return nil
}

// PreviewTotal computes the running total for a proposal being edited. Pure
// arithmetic, no session required beyond the caller being authenticated.
func (s *OrdersService) PreviewTotal(req *domain.OrderTotalRequest) *domain.OrderTotalResponse {
	total := ComputeTotal(req.Items, req.ShippingCost, req.DiscountValue)
	return &domain.OrderTotalResponse{
		Total:   total,
		Display: FormatTotal(total),
	}
}

func validateOrder(req *domain.CreateOrderRequest) error {
	if req.QuoteID <= 0 {
		return &domain.ErrValidation{Field: "quoteId", Message: "Orçamento inválido"}
	}
	for i, item := range req.Items {
		if item.UnitPrice < 0 {
			return &domain.ErrValidation{
				Field:   fmt.Sprintf("items[%d].unitPrice", i),
				Message: "Preço unitário não pode ser negativo",
			}
		}
		if item.TotalQuantity < 0 {
			return &domain.ErrValidation{
				Field:   fmt.Sprintf("items[%d].totalQuantity", i),
				Message: "Quantidade não pode ser negativa",
			}
		}
	}
	if req.ShippingCost < 0 {
		return &domain.ErrValidation{Field: "shippingCost", Message: "Frete não pode ser negativo"}
	}
	if req.DiscountValue < 0 {
		return &domain.ErrValidation{Field: "discountValue", Message: "Desconto não pode ser negativo"}
	}
	return nil
}
