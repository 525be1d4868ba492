// Package checkout turns a cart and a checkout form into an order-creation
// request against the storefront API.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/pricing"
)

var ErrEmptyCart = errors.New("cart is empty")

// Cart is the part of the cart store the submitter needs.
type Cart interface {
	Items() []domain.CartItem
	Clear(ctx context.Context) error
}

// OrderRequest is the body of POST /api/orders.
type OrderRequest struct {
	Items           []domain.OrderItem `json:"items"`
	ShippingAddress domain.Address     `json:"shippingAddress"`
	Subtotal        float64            `json:"subtotal"`
	Shipping        float64            `json:"shipping"`
	Tax             float64            `json:"tax"`
	Total           float64            `json:"total"`
	Notes           string             `json:"notes,omitempty"`
}

type OrderResponse struct {
	OrderNumber string `json:"orderNumber"`
	Message     string `json:"message"`
}

// APIError is a non-201 answer from the order endpoint.
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("order request failed (%d %s): %s", e.Status, e.Code, e.Message)
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"error"`
}

type Submitter struct {
	baseURL string
	client  *http.Client
	policy  pricing.Policy
}

func NewSubmitter(baseURL string, client *http.Client, policy pricing.Policy) *Submitter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Submitter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		policy:  policy,
	}
}

// BuildRequest snapshots the cart into an order request with computed totals.
func (s *Submitter) BuildRequest(form Form, items []domain.CartItem) OrderRequest {
	orderItems := make([]domain.OrderItem, 0, len(items))
	prices := make([]float64, 0, len(items))
	for _, item := range items {
		k := item.Kitten
		orderItems = append(orderItems, domain.OrderItem{
			KittenID:    k.ID,
			KittenName:  k.Name,
			KittenBreed: k.Breed.Name,
			Price:       k.Price,
			Image:       k.PrimaryImageURL(),
		})
		prices = append(prices, k.Price)
	}
	totals := s.policy.Compute(prices)
	return OrderRequest{
		Items:           orderItems,
		ShippingAddress: form.Address(),
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Notes:           strings.TrimSpace(form.Notes),
	}
}

// Submit validates the form, posts one order-creation request and clears the
// cart once the order is accepted. Nothing is sent for an empty cart or an
// invalid form.
func (s *Submitter) Submit(ctx context.Context, token string, form Form, cart Cart) (string, error) {
	items := cart.Items()
	if len(items) == 0 {
		return "", ErrEmptyCart
	}
	if err := form.Validate(); err != nil {
		return "", err
	}

	body, err := json.Marshal(s.BuildRequest(form, items))
	if err != nil {
		return "", fmt.Errorf("marshal order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send order request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read order response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		apiErr := &APIError{Status: resp.StatusCode, Code: "UNKNOWN", Message: http.StatusText(resp.StatusCode)}
		var env errorEnvelope
		if json.Unmarshal(raw, &env) == nil && env.Error.Code != "" {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Field = env.Error.Field
		}
		return "", apiErr
	}

	var out OrderResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode order response: %w", err)
	}

	// The order exists at this point; a failure to clear only leaves stale items.
	if err := cart.Clear(ctx); err != nil {
		return out.OrderNumber, fmt.Errorf("order %s created but cart not cleared: %w", out.OrderNumber, err)
	}
	return out.OrderNumber, nil
}
