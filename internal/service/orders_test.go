package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/coalesce"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/service"
)

func newOrdersService(up *fakeUpstream, sessions *fakeSessions) *service.OrdersService {
	return service.NewOrdersService(up, sessions, coalesce.New(), testMetrics(), testLogger())
}

func TestCreateOrder_ComputesTotalServerSide(t *testing.T) {
	up := newFakeUpstream()
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RolePharmacy)
	svc := newOrdersService(up, sessions)

	req := &domain.CreateOrderRequest{
		QuoteID:       12,
		ShippingCost:  3,
		DiscountValue: 5,
		Total:         999, // stale client figure, must be overwritten
		Items: []domain.OrderLineItem{
			{QuoteItemID: 1, UnitPrice: 10, TotalQuantity: 3},
			{QuoteItemID: 2, UnitPrice: 2.5, TotalQuantity: 2},
			{QuoteItemID: 3, UnitPrice: 100, TotalQuantity: 1, Ignore: true},
		},
	}

	if err := svc.Create(context.Background(), sid, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.lastOrder == nil {
		t.Fatal("order never reached upstream")
	}
	if up.lastOrder.Total != 33 {
		t.Errorf("total = %v, want 33", up.lastOrder.Total)
	}
}

func TestCreateOrder_RejectsNegativeValues(t *testing.T) {
	up := newFakeUpstream()
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "bearer", domain.RolePharmacy)
	svc := newOrdersService(up, sessions)

	cases := []*domain.CreateOrderRequest{
		{QuoteID: 0},
		{QuoteID: 1, Items: []domain.OrderLineItem{{UnitPrice: -1, TotalQuantity: 1}}},
		{QuoteID: 1, Items: []domain.OrderLineItem{{UnitPrice: 1, TotalQuantity: -1}}},
		{QuoteID: 1, ShippingCost: -1},
		{QuoteID: 1, DiscountValue: -1},
	}

	for i, req := range cases {
		err := svc.Create(context.Background(), sid, req)
		var validation *domain.ErrValidation
		if !errors.As(err, &validation) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
	if up.hitCount("create_order") != 0 {
		t.Error("invalid orders must not reach the network")
	}
}

func TestListByUser_Upstream401ClearsSession(t *testing.T) {
	up := newFakeUpstream()
	up.ordersErr = &domain.ErrUpstreamAuth{}
	sessions := newFakeSessions()
	sid := sessions.seed("sid-1", "stale", domain.RoleCustomer)
	svc := newOrdersService(up, sessions)

	_, err := svc.ListByUser(context.Background(), sid)
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, ok := sessions.Load(sid); ok {
		t.Fatal("upstream 401 must clear the session pair")
	}
}

func TestPreviewTotal(t *testing.T) {
	svc := newOrdersService(newFakeUpstream(), newFakeSessions())

	resp := svc.PreviewTotal(&domain.OrderTotalRequest{
		ShippingCost:  3,
		DiscountValue: 5,
		Items: []domain.OrderLineItem{
			{UnitPrice: 10, TotalQuantity: 3},
			{UnitPrice: 2.5, TotalQuantity: 2},
		},
	})

	if resp.Total != 33 {
		t.Errorf("total = %v", resp.Total)
	}
	if resp.Display != "33.00" {
		t.Errorf("display = %q", resp.Display)
	}
}
