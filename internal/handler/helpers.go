package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/guard"
)

// ============================================================
// Shared helper functions
// ============================================================

// errorResponse carries the user-facing message plus, for auth failures,
// the frontend route to navigate to.
type errorResponse struct {
	Error      string `json:"error"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeErrorRedirect(w http.ResponseWriter, status int, msg, redirectTo string) {
	writeJSON(w, status, errorResponse{Error: msg, RedirectTo: redirectTo})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// idParam parses a positive int64 chi URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ErrValidation{Field: name, Message: "identificador inválido"}
	}
	return id, nil
}

// indexParam parses a non-negative index chi URL parameter.
func indexParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	idx, err := strconv.Atoi(raw)
	if err != nil || idx < 0 {
		return 0, &domain.ErrValidation{Field: name, Message: "índice inválido"}
	}
	return idx, nil
}

// handleServiceError maps domain errors to HTTP responses. Unauthorized
// carries the sign-in route so the frontend router knows where to send the
// user without interpreting status codes itself.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var validation *domain.ErrValidation
	var invalidCredentials *domain.ErrInvalidCredentials
	var unauthorized *domain.ErrUnauthorized
	var tokenInvalid *domain.ErrTokenInvalid
	var forbidden *domain.ErrForbidden
	var conflict *domain.ErrConflict
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &invalidCredentials):
		logger.Debug("invalid credentials")
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeErrorRedirect(w, http.StatusUnauthorized, err.Error(), guard.LoginPath)
	case errors.As(err, &tokenInvalid):
		logger.Debug("invalid reset token")
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflict):
		logger.Debug("conflict", zap.String("error", err.Error()))
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &external):
		logger.Error("upstream failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
