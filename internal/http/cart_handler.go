package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fjod/cats-den/internal/cart"
	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
)

const cartSessionHeader = "X-Cart-Session"

type KittenLookup interface {
	KittenByID(ctx context.Context, id string) (*domain.Kitten, error)
}

// CartHandler exposes the session cart. Each request rehydrates the cart
// from storage, so any instance can serve any session.
type CartHandler struct {
	storage cart.Storage
	kittens KittenLookup
	timeout time.Duration
	log     *slog.Logger
}

func NewCartHandler(storage cart.Storage, kittens KittenLookup, timeout time.Duration, log *slog.Logger) *CartHandler {
	return &CartHandler{storage: storage, kittens: kittens, timeout: timeout, log: logger.OrDefault(log)}
}

type AddItemRequestDTO struct {
	KittenID string `json:"kittenId"`
}

type CartResponseDTO struct {
	SessionID string            `json:"sessionId"`
	Items     []domain.CartItem `json:"items"`
	Total     float64           `json:"total"`
	Count     int               `json:"count"`
}

// session returns the caller's cart session, minting one when the header is
// absent or malformed. The id is always echoed back in the response header.
func session(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(cartSessionHeader))
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	w.Header().Set(cartSessionHeader, id)
	return id
}

func (h *CartHandler) open(ctx context.Context, sessionID string) (*cart.Store, error) {
	store, err := cart.Open(ctx, h.storage, cart.SessionKey(sessionID), cart.WithLogger(h.log))
	if err != nil {
		return nil, fmt.Errorf("open cart: %w", err)
	}
	return store, nil
}

func cartResponse(sessionID string, store *cart.Store) CartResponseDTO {
	return CartResponseDTO{
		SessionID: sessionID,
		Items:     store.Items(),
		Total:     store.Total(),
		Count:     store.Count(),
	}
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := session(w, r)
	store, err := h.open(ctx, sessionID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(sessionID, store))
}

// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := session(w, r)

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.KittenID) == "" {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
			Code: CodeValidation, Message: "Kitten id is required", Field: "kittenId",
		}})
		return
	}

	kitten, err := h.kittens.KittenByID(ctx, req.KittenID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if kitten.Availability != domain.AvailabilityAvailable {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
			Code: CodeValidation, Message: kitten.Name + " is no longer available", Field: "kittenId",
		}})
		return
	}

	store, err := h.open(ctx, sessionID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	added, err := store.Add(ctx, *kitten)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	respondJSON(w, status, cartResponse(sessionID, store))
}

// DELETE /api/cart/items/{kittenId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := session(w, r)
	store, err := h.open(ctx, sessionID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if err := store.Remove(ctx, chi.URLParam(r, "kittenId")); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(sessionID, store))
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := session(w, r)
	store, err := h.open(ctx, sessionID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	if err := store.Clear(ctx); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(sessionID, store))
}
