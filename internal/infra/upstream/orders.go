package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// --- Order endpoints (implements port.UpstreamOrders) ---

// ListOrdersByUser calls GET /order/get-orders-by-user.
func (c *Client) ListOrdersByUser(ctx context.Context, token string) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Upstream.ListOrdersByUser")
	defer span.End()

	body, _, err := c.get(ctx, "/order/get-orders-by-user", token)
	if err != nil {
		return nil, c.wrapErr("order/by-user", err)
	}

	orders := []domain.Order{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &orders); err != nil {
			return nil, &domain.ErrExternalService{Service: "pharmacy-api/order/by-user", Err: fmt.Errorf("decode orders: %w", err)}
		}
	}
	return orders, nil
}

// ListOrdersByPharmacy calls GET /order/get-orders-by-pharmacy, optionally
// filtered by status.
func (c *Client) ListOrdersByPharmacy(ctx context.Context, token, status string) ([]domain.Order, error) {
	ctx, span := tracer.Start(ctx, "Upstream.ListOrdersByPharmacy")
	defer span.End()
	span.SetAttributes(attribute.String("order.status", status))

	path := "/order/get-orders-by-pharmacy"
	if status != "" {
		path += "?status=" + url.QueryEscape(status)
	}

	body, _, err := c.get(ctx, path, token)
	if err != nil {
		return nil, c.wrapErr("order/by-pharmacy", err)
	}

	orders := []domain.Order{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &orders); err != nil {
			return nil, &domain.ErrExternalService{Service: "pharmacy-api/order/by-pharmacy", Err: fmt.Errorf("decode orders: %w", err)}
		}
	}
	return orders, nil
}

// CreateOrder calls POST /order/create.
func (c *Client) CreateOrder(ctx context.Context, token string, req *domain.CreateOrderRequest) error {
	ctx, span := tracer.Start(ctx, "Upstream.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.quote_id", req.QuoteID))

	_, err := c.postJSON(ctx, "/order/create", token, req)
	if err != nil {
		err = c.wrapErr("order/create", err)
		var status *statusError
		if errors.As(err, &status) {
			return &domain.ErrConflict{Message: status.Error()}
		}
		return err
	}
	return nil
}
