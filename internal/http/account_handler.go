package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/cats-den/internal/auth"
	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/service"
)

type AccountAPI interface {
	Profile(ctx context.Context, userID string) (*domain.User, error)
	AddAddress(ctx context.Context, userID string, req service.AddAddressRequest) ([]domain.SavedAddress, error)
	RemoveAddress(ctx context.Context, userID, addressID string) ([]domain.SavedAddress, error)
	AddToWishlist(ctx context.Context, userID, kittenID string) error
	RemoveFromWishlist(ctx context.Context, userID, kittenID string) error
}

type AccountHandler struct {
	account AccountAPI
	timeout time.Duration
	log     *slog.Logger
}

func NewAccountHandler(account AccountAPI, timeout time.Duration, log *slog.Logger) *AccountHandler {
	return &AccountHandler{account: account, timeout: timeout, log: logger.OrDefault(log)}
}

type AddressesResponseDTO struct {
	Addresses []domain.SavedAddress `json:"addresses"`
}

// withUser resolves the caller, answering 401 when there is none.
func (h *AccountHandler) withUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		respondUnauthorized(w)
		return "", false
	}
	return userID, true
}

// GET /api/account
func (h *AccountHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.withUser(w, r)
	if !ok {
		return
	}

	user, err := h.account.Profile(ctx, userID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// POST /api/account/addresses
func (h *AccountHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.withUser(w, r)
	if !ok {
		return
	}

	var req service.AddAddressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	addresses, err := h.account.AddAddress(ctx, userID, req)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusCreated, AddressesResponseDTO{Addresses: addresses})
}

// DELETE /api/account/addresses/{id}
func (h *AccountHandler) RemoveAddress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.withUser(w, r)
	if !ok {
		return
	}

	addresses, err := h.account.RemoveAddress(ctx, userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, AddressesResponseDTO{Addresses: addresses})
}

// PUT /api/account/wishlist/{kittenId}
func (h *AccountHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.withUser(w, r)
	if !ok {
		return
	}

	if err := h.account.AddToWishlist(ctx, userID, chi.URLParam(r, "kittenId")); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DELETE /api/account/wishlist/{kittenId}
func (h *AccountHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := h.withUser(w, r)
	if !ok {
		return
	}

	if err := h.account.RemoveFromWishlist(ctx, userID, chi.URLParam(r, "kittenId")); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
