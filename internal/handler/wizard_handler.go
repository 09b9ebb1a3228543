package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/service"
)

// ============================================================
// Quote composition wizard
// ============================================================

const maxUploadBytes = 12 << 20

func startDraftHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotes/draft")
		defer span.End()

		draft, err := wizardSvc.Start(SessionIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, draft)
	}
}

func getDraftHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/quotes/draft")
		defer span.End()

		draft, err := wizardSvc.Current(SessionIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, draft)
	}
}

func cancelDraftHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/quotes/draft")
		defer span.End()

		if err := wizardSvc.Cancel(SessionIDFromContext(ctx)); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func setAttachmentHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/quotes/draft/attachment")
		defer span.End()

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}

		file, header, err := r.FormFile("prescription")
		if err != nil {
			writeError(w, http.StatusBadRequest, "Anexe a receita médica")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "error reading upload")
			return
		}

		att := &domain.PrescriptionAttachment{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}

		draft, err := wizardSvc.SetAttachment(SessionIDFromContext(ctx), att)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, draft)
	}
}

func addLineItemHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotes/draft/items")
		defer span.End()

		var item domain.LineItemDraft
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		draft, err := wizardSvc.AddLineItem(SessionIDFromContext(ctx), item)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, draft)
	}
}

func updateLineItemHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/quotes/draft/items/{itemIndex}")
		defer span.End()

		idx, err := indexParam(r, "itemIndex")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var item domain.LineItemDraft
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		draft, err := wizardSvc.UpdateLineItem(SessionIDFromContext(ctx), idx, item)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, draft)
	}
}

func removeLineItemHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/quotes/draft/items/{itemIndex}")
		defer span.End()

		idx, err := indexParam(r, "itemIndex")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		draft, err := wizardSvc.RemoveLineItem(SessionIDFromContext(ctx), idx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, draft)
	}
}

func addComponentHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotes/draft/items/{itemIndex}/components")
		defer span.End()

		idx, err := indexParam(r, "itemIndex")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var comp domain.ComponentDraft
		if err := json.NewDecoder(r.Body).Decode(&comp); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		draft, err := wizardSvc.AddComponent(SessionIDFromContext(ctx), idx, comp)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, draft)
	}
}

func updateComponentHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/quotes/draft/items/{itemIndex}/components/{componentIndex}")
		defer span.End()

		idx, err := indexParam(r, "itemIndex")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		compIdx, err := indexParam(r, "componentIndex")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var comp domain.ComponentDraft
		if err := json.NewDecoder(r.Body).Decode(&comp); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		draft, err := wizardSvc.UpdateComponent(SessionIDFromContext(ctx), idx, compIdx, comp)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, draft)
	}
}

func removeComponentHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/quotes/draft/items/{itemIndex}/components/{componentIndex}")
		defer span.End()

		idx, err := indexParam(r, "itemIndex")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		compIdx, err := indexParam(r, "componentIndex")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		draft, err := wizardSvc.RemoveComponent(SessionIDFromContext(ctx), idx, compIdx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, draft)
	}
}

func setAddressHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/quotes/draft/address")
		defer span.End()

		var addr domain.AddressDraft
		if err := json.NewDecoder(r.Body).Decode(&addr); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		draft, err := wizardSvc.SetAddress(SessionIDFromContext(ctx), addr)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, draft)
	}
}

func advanceDraftHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotes/draft/advance")
		defer span.End()

		draft, err := wizardSvc.Advance(SessionIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, draft)
	}
}

func submitDraftHandler(wizardSvc *service.WizardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quotes/draft/submit")
		defer span.End()

		if err := wizardSvc.Submit(ctx, SessionIDFromContext(ctx)); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Orçamento enviado com sucesso"})
	}
}
