package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/service"
)

// ============================================================
// Pedidos (orders)
// ============================================================

func listOrdersHandler(ordersSvc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/orders")
		defer span.End()

		sid := SessionIDFromContext(ctx)
		orders, err := ordersSvc.ListByUser(ctx, sid)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

func listPharmacyOrdersHandler(ordersSvc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/orders/pharmacy")
		defer span.End()

		sid := SessionIDFromContext(ctx)
		status := r.URL.Query().Get("status")

		orders, err := ordersSvc.ListByPharmacy(ctx, sid, status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, orders)
	}
}

func createOrderHandler(ordersSvc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/orders")
		defer span.End()

		var req domain.CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sid := SessionIDFromContext(ctx)
		if err := ordersSvc.Create(ctx, sid, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, domain.SuccessResponse{Message: "Pedido criado com sucesso"})
	}
}

func previewOrderTotalHandler(ordersSvc *service.OrdersService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/orders/preview-total")
		defer span.End()

		var req domain.OrderTotalRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		writeJSON(w, http.StatusOK, ordersSvc.PreviewTotal(&req))
	}
}
