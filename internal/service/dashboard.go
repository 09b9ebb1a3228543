package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
)

var dashboardTracer = otel.Tracer("service/dashboard")

// DashboardService composes the landing page payloads out of the quote and
// order services. The two reads per page run in parallel; either failing
// fails the page, since a half-rendered dashboard is worse than a retry.
type DashboardService struct {
	quotes *QuotesService
	orders *OrdersService
}

func NewDashboardService(quotes *QuotesService, orders *OrdersService) *DashboardService {
	return &DashboardService{quotes: quotes, orders: orders}
}

// CustomerHome fetches the customer's quotes and orders concurrently.
func (s *DashboardService) CustomerHome(ctx context.Context, sid string) (*domain.CustomerHome, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.CustomerHome")
	defer span.End()

	home := &domain.CustomerHome{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		quotes, err := s.quotes.ListQuotes(ctx, sid, "")
		if err != nil {
			return err
		}
		home.Quotes = quotes
		return nil
	})
	g.Go(func() error {
		orders, err := s.orders.ListByUser(ctx, sid)
		if err != nil {
			return err
		}
		home.Orders = orders
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return home, nil
}

// PharmacyHome fetches the pending quote queue and the pharmacy's orders
// concurrently.
func (s *DashboardService) PharmacyHome(ctx context.Context, sid string) (*domain.PharmacyHome, error) {
	ctx, span := dashboardTracer.Start(ctx, "DashboardService.PharmacyHome")
	defer span.End()

	home := &domain.PharmacyHome{}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pending, err := s.quotes.ListPending(ctx, sid)
		if err != nil {
			return err
		}
		home.PendingQuotes = pending
		return nil
	})
	g.Go(func() error {
		orders, err := s.orders.ListByPharmacy(ctx, sid, "")
		if err != nil {
			return err
		}
		home.Orders = orders
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return home, nil
}
