package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/cats-den/internal/auth"
	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/payment"
	"github.com/fjod/cats-den/internal/service"
)

// --- helpers ---

func withUser(r *http.Request) *http.Request {
	return r.WithContext(auth.WithUserID(r.Context(), "user-1"))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- mocks ---

type OrderServiceMock struct {
	m      sync.RWMutex
	order  *domain.Order
	orders []*domain.Order
	intent *payment.Intent
	err    error
	calls  int

	gotUserID string
	gotStatus domain.OrderStatus
	gotReq    service.CreateOrderRequest
}

func (o *OrderServiceMock) record(userID string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.calls++
	o.gotUserID = userID
}

func (o *OrderServiceMock) Calls() int {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.calls
}

func (o *OrderServiceMock) CreateOrder(_ context.Context, userID string, req service.CreateOrderRequest) (*domain.Order, error) {
	o.record(userID)
	o.m.Lock()
	o.gotReq = req
	o.m.Unlock()
	return o.order, o.err
}

func (o *OrderServiceMock) ListOrders(_ context.Context, userID string) ([]*domain.Order, error) {
	o.record(userID)
	return o.orders, o.err
}

func (o *OrderServiceMock) GetOrder(_ context.Context, userID, _ string) (*domain.Order, error) {
	o.record(userID)
	return o.order, o.err
}

func (o *OrderServiceMock) CreatePaymentIntent(_ context.Context, userID, _ string) (*payment.Intent, error) {
	o.record(userID)
	return o.intent, o.err
}

func (o *OrderServiceMock) UpdateStatus(_ context.Context, _ string, to domain.OrderStatus) (*domain.Order, error) {
	o.record("")
	o.m.Lock()
	o.gotStatus = to
	o.m.Unlock()
	return o.order, o.err
}

type AuthServiceMock struct {
	user    *domain.User
	session *service.Session
	err     error
}

func (a AuthServiceMock) Register(context.Context, service.RegisterRequest) (*domain.User, error) {
	return a.user, a.err
}

func (a AuthServiceMock) Login(context.Context, service.LoginRequest) (*service.Session, error) {
	return a.session, a.err
}

type AccountServiceMock struct {
	m         sync.RWMutex
	user      *domain.User
	addresses []domain.SavedAddress
	err       error
	wishlist  []string
}

func (a *AccountServiceMock) Profile(context.Context, string) (*domain.User, error) {
	return a.user, a.err
}

func (a *AccountServiceMock) AddAddress(context.Context, string, service.AddAddressRequest) ([]domain.SavedAddress, error) {
	return a.addresses, a.err
}

func (a *AccountServiceMock) RemoveAddress(context.Context, string, string) ([]domain.SavedAddress, error) {
	return a.addresses, a.err
}

func (a *AccountServiceMock) AddToWishlist(_ context.Context, _ string, kittenID string) error {
	a.m.Lock()
	defer a.m.Unlock()
	if a.err == nil {
		a.wishlist = append(a.wishlist, kittenID)
	}
	return a.err
}

func (a *AccountServiceMock) RemoveFromWishlist(context.Context, string, string) error {
	return a.err
}

type PaymentEventsMock struct {
	m       sync.RWMutex
	events  []*payment.Event
	outcome service.Outcome
	err     error
}

func (p *PaymentEventsMock) HandlePaymentEvent(_ context.Context, event *payment.Event) (service.Outcome, error) {
	p.m.Lock()
	defer p.m.Unlock()
	p.events = append(p.events, event)
	return p.outcome, p.err
}

func (p *PaymentEventsMock) Events() []*payment.Event {
	p.m.RLock()
	defer p.m.RUnlock()
	return append([]*payment.Event(nil), p.events...)
}

type InvalidatorMock struct {
	m      sync.RWMutex
	models []string
	err    error
}

func (i *InvalidatorMock) Invalidate(_ context.Context, model string) error {
	i.m.Lock()
	defer i.m.Unlock()
	i.models = append(i.models, model)
	return i.err
}

func (i *InvalidatorMock) Models() []string {
	i.m.RLock()
	defer i.m.RUnlock()
	return append([]string(nil), i.models...)
}
