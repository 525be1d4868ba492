package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/cats-den/internal/catalog"
	"github.com/fjod/cats-den/internal/payment"
	"github.com/fjod/cats-den/internal/repository"
	"github.com/fjod/cats-den/internal/service"
	"github.com/fjod/cats-den/internal/validation"
)

const (
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeValidation         = "VALIDATION_ERROR"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeAlreadyExists      = "ALREADY_EXISTS"
	CodeInternal           = "INTERNAL_ERROR"
	CodeDatabase           = "DATABASE_ERROR"
	CodeNetwork            = "NETWORK_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeRateLimited        = "RATE_LIMITED"
)

const msgTechnicalDifficulties = "We're experiencing technical difficulties. Please try again later."

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: ErrorBody{Code: code, Message: message}})
}

func respondUnauthorized(w http.ResponseWriter) {
	respondError(w, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
}

// handleServiceError converts a service error into the API error envelope.
// Causes of infrastructure failures are logged, never returned.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var fieldErr *validation.FieldError
	switch {
	case errors.As(err, &fieldErr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
			Code:    CodeValidation,
			Message: fieldErr.Message,
			Field:   fieldErr.Field,
		}})
	case errors.Is(err, service.ErrUnauthenticated):
		respondUnauthorized(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, CodeUnauthorized, "Invalid email or password")
	case errors.Is(err, repository.ErrEmailTaken):
		respondError(w, http.StatusConflict, CodeAlreadyExists, "An account with this email already exists")
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "Order not found")
	case errors.Is(err, repository.ErrUserNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "User not found")
	case errors.Is(err, service.ErrAddressNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "Address not found")
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "Content not found")
	case errors.Is(err, service.ErrIllegalTransition):
		respondError(w, http.StatusConflict, CodeInvalidInput, "Order cannot move to the requested status")
	case errors.Is(err, service.ErrOrderNotPayable):
		respondError(w, http.StatusConflict, CodeInvalidInput, "Order is not awaiting payment")
	case errors.Is(err, payment.ErrIntentNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, "Payment intent not found")
	case errors.Is(err, payment.ErrNotRefundable):
		respondError(w, http.StatusConflict, CodeInvalidInput, "Payment intent has not succeeded")
	case errors.Is(err, context.DeadlineExceeded):
		log.WarnContext(r.Context(), "request timed out", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusServiceUnavailable, CodeServiceUnavailable, "Service is temporarily unavailable. Please try again later.")
	default:
		log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusServiceUnavailable, CodeDatabase, msgTechnicalDifficulties)
	}
}

// decodeJSON reads a JSON body and answers 400 when it is malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidInput, "Invalid JSON body")
		return false
	}
	return true
}
