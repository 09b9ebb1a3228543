package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/service"
)

// ============================================================
// Orçamentos (quotes)
// ============================================================

func listQuotesHandler(quotesSvc *service.QuotesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/quotes")
		defer span.End()

		sid := SessionIDFromContext(ctx)
		status := r.URL.Query().Get("status")

		quotes, err := quotesSvc.ListQuotes(ctx, sid, status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, quotes)
	}
}

func listPendingQuotesHandler(quotesSvc *service.QuotesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/quotes/pending")
		defer span.End()

		sid := SessionIDFromContext(ctx)

		quotes, err := quotesSvc.ListPending(ctx, sid)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, quotes)
	}
}

func getQuoteHandler(quotesSvc *service.QuotesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/quotes/{quoteId}")
		defer span.End()

		id, err := idParam(r, "quoteId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int64("quote.id", id))

		sid := SessionIDFromContext(ctx)
		detail, err := quotesSvc.QuoteDetail(ctx, sid, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, detail)
	}
}

func getPrescriptionHandler(quotesSvc *service.QuotesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/quotes/{quoteId}/prescription")
		defer span.End()

		id, err := idParam(r, "quoteId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int64("quote.id", id))

		sid := SessionIDFromContext(ctx)
		data, contentType, err := quotesSvc.PrescriptionImage(ctx, sid, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func cancelQuoteHandler(quotesSvc *service.QuotesService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotes/{quoteId}/cancel")
		defer span.End()

		id, err := idParam(r, "quoteId")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int64("quote.id", id))

		sid := SessionIDFromContext(ctx)
		if err := quotesSvc.CancelQuote(ctx, sid, id); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Home dashboards
// ============================================================

func customerHomeHandler(dashSvc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/home/customer")
		defer span.End()

		sid := SessionIDFromContext(ctx)
		home, err := dashSvc.CustomerHome(ctx, sid)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, home)
	}
}

func pharmacyHomeHandler(dashSvc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/home/pharmacy")
		defer span.End()

		sid := SessionIDFromContext(ctx)
		home, err := dashSvc.PharmacyHome(ctx, sid)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, home)
	}
}
