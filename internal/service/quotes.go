package service

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/coalesce"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/observability"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/port"
)

var quotesTracer = otel.Tracer("service/quotes")

// QuotesService reads quotes from the pharmacy API on behalf of a gateway
// session. List fetches are coalesced per session and filter so concurrent
// refreshes share one upstream call; quote details are cached briefly since
// a submitted quote rarely changes between a list click and the detail view.
type QuotesService struct {
	upstream    port.UpstreamQuotes
	sessions    port.SessionStore
	flights     *coalesce.Group
	detailCache port.Cache[*domain.QuoteDetail]
	metrics     *observability.Metrics
	logger      *zap.Logger
}

func NewQuotesService(
	upstream port.UpstreamQuotes,
	sessions port.SessionStore,
	flights *coalesce.Group,
	detailCache port.Cache[*domain.QuoteDetail],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *QuotesService {
	return &QuotesService{
		upstream:    upstream,
		sessions:    sessions,
		flights:     flights,
		detailCache: detailCache,
		metrics:     metrics,
		logger:      logger,
	}
}

// ListQuotes returns the session user's quotes, optionally filtered by
// status. The coalescing key is scoped to the session and filter so distinct
// users or filters never share a flight.
func (s *QuotesService) ListQuotes(ctx context.Context, sid, status string) ([]domain.Quote, error) {
	ctx, span := quotesTracer.Start(ctx, "QuotesService.ListQuotes")
	defer span.End()
	span.SetAttributes(attribute.String("quotes.status_filter", status))

	sess, err := requireSession(s.sessions, sid)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("quotes:%s:status=%s", sid, status)
	quotes, shared, err := coalesce.Do(s.flights, ctx, key, func(ctx context.Context) ([]domain.Quote, error) {
		return s.upstream.ListQuotes(ctx, sess.Token, status)
	})
	s.metrics.IncrCoalesced(shared)
	if err != nil {
		return nil, invalidateOnAuthErr(s.sessions, s.logger, sid, err)
	}
	return quotes, nil
}

// ListPending returns the quotes awaiting a pharmacy response. Pharmacy-side
// view of the same coalescing pattern as ListQuotes.
func (s *QuotesService) ListPending(ctx context.Context, sid string) ([]domain.Quote, error) {
	ctx, span := quotesTracer.Start(ctx, "QuotesService.ListPending")
	defer span.End()

	sess, err := requireSession(s.sessions, sid)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("quotes:%s:pending", sid)
	quotes, shared, err := coalesce.Do(s.flights, ctx, key, func(ctx context.Context) ([]domain.Quote, error) {
		return s.upstream.ListPendingQuotes(ctx, sess.Token)
	})
	s.metrics.IncrCoalesced(shared)
	if err != nil {
		return nil, invalidateOnAuthErr(s.sessions, s.logger, sid, err)
	}
	return quotes, nil
}

// QuoteDetail fetches one quote, serving from the per-session cache when
// possible.
func (s *QuotesService) QuoteDetail(ctx context.Context, sid string, id int64) (*domain.QuoteDetail, error) {
	ctx, span := quotesTracer.Start(ctx, "QuotesService.QuoteDetail")
	defer span.End()
	span.SetAttributes(attribute.Int64("quote.id", id))

	sess, err := requireSession(s.sessions, sid)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("quote:%s:%d", sid, id)
	if detail, ok := s.detailCache.Get(key); ok {
		s.metrics.IncrCacheHit("quote_detail")
		return detail, nil
	}
	s.metrics.IncrCacheMiss("quote_detail")

	detail, err := s.upstream.GetQuote(ctx, sess.Token, id)
	if err != nil {
		return nil, invalidateOnAuthErr(s.sessions, s.logger, sid, err)
	}

	s.detailCache.Set(key, detail)
	return detail, nil
}

// PrescriptionImage streams the prescription attachment bytes for a quote.
// The quote detail resolves the image ID, usually out of the detail cache
// since the image is viewed from the detail screen. Image bytes themselves
// are never cached: the payloads are large and viewed once.
func (s *QuotesService) PrescriptionImage(ctx context.Context, sid string, quoteID int64) ([]byte, string, error) {
	ctx, span := quotesTracer.Start(ctx, "QuotesService.PrescriptionImage")
	defer span.End()
	span.SetAttributes(attribute.Int64("quote.id", quoteID))

	detail, err := s.QuoteDetail(ctx, sid, quoteID)
	if err != nil {
		return nil, "", err
	}
	if detail.PrescriptionImageID == 0 {
		return nil, "", &domain.ErrNotFound{Resource: "prescription image", ID: strconv.FormatInt(quoteID, 10)}
	}

	sess, err := requireSession(s.sessions, sid)
	if err != nil {
		return nil, "", err
	}

	data, contentType, err := s.upstream.GetPrescriptionImage(ctx, sess.Token, detail.PrescriptionImageID)
	if err != nil {
		return nil, "", invalidateOnAuthErr(s.sessions, s.logger, sid, err)
	}
	return data, contentType, nil
}

// CancelQuote cancels a quote, then drops the cached detail and any pending
// list flight so the next read reflects the cancellation.
func (s *QuotesService) CancelQuote(ctx context.Context, sid string, id int64) error {
	ctx, span := quotesTracer.Start(ctx, "QuotesService.CancelQuote")
	defer span.End()
	span.SetAttributes(attribute.Int64("quote.id", id))

	sess, err := requireSession(s.sessions, sid)
	if err != nil {
		return err
	}

	if err := s.upstream.CancelQuote(ctx, sess.Token, id); err != nil {
		return invalidateOnAuthErr(s.sessions, s.logger, sid, err)
	}

	s.detailCache.Delete(fmt.Sprintf("quote:%s:%d", sid, id))
	s.flights.Forget(fmt.Sprintf("quotes:%s:status=", sid))
	s.logger.Info("quote cancelled",
		zap.String("session_id", sid),
		zap.Int64("quote_id", id))
	return nil
}
