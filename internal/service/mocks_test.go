package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fjod/cats-den/internal/catalog"
	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/events"
	"github.com/fjod/cats-den/internal/repository"
)

// MockOrderRepository keeps orders in memory and applies the same
// conditional updates as the real stores.
type MockOrderRepository struct {
	m        sync.RWMutex
	byNumber map[string]*domain.Order

	// Collisions makes the next N CreateOrder calls report a duplicate number.
	Collisions int
	CreateErr  error
	UpdateErr  error
	Attempts   []string
}

func NewMockOrderRepository(orders ...*domain.Order) *MockOrderRepository {
	repo := &MockOrderRepository{byNumber: make(map[string]*domain.Order)}
	for _, o := range orders {
		repo.byNumber[o.OrderNumber] = o
	}
	return repo
}

func (m *MockOrderRepository) Get(number string) *domain.Order {
	m.m.RLock()
	defer m.m.RUnlock()
	o, ok := m.byNumber[number]
	if !ok {
		return nil
	}
	c := *o
	return &c
}

func (m *MockOrderRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.Attempts = append(m.Attempts, order.OrderNumber)
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if m.Collisions > 0 {
		m.Collisions--
		return repository.ErrDuplicateOrderNumber
	}
	if _, ok := m.byNumber[order.OrderNumber]; ok {
		return repository.ErrDuplicateOrderNumber
	}
	c := *order
	m.byNumber[order.OrderNumber] = &c
	return nil
}

func (m *MockOrderRepository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	for _, o := range m.byNumber {
		if o.ID == id {
			c := *o
			return &c, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *MockOrderRepository) GetOrderByNumber(_ context.Context, number string) (*domain.Order, error) {
	if o := m.Get(number); o != nil {
		return o, nil
	}
	return nil, repository.ErrOrderNotFound
}

func (m *MockOrderRepository) ListOrdersByUserID(_ context.Context, userID string) ([]*domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	var out []*domain.Order
	for _, o := range m.byNumber {
		if o.UserID == userID {
			c := *o
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *MockOrderRepository) UpdatePayment(_ context.Context, u repository.PaymentUpdate) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	o, ok := m.byNumber[u.OrderNumber]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if !slices.Contains(u.From, o.PaymentStatus) {
		return repository.ErrStatusConflict
	}
	o.PaymentStatus = u.To
	if u.Status != "" && slices.Contains(u.StatusFrom, o.Status) {
		o.Status = u.Status
	}
	if u.PaymentIntentID != "" {
		o.PaymentIntentID = u.PaymentIntentID
	}
	return nil
}

func (m *MockOrderRepository) UpdateOrderStatus(_ context.Context, number string, from, to domain.OrderStatus) error {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.byNumber[number]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	return nil
}

func (m *MockOrderRepository) SetPaymentIntent(_ context.Context, number, intentID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	o, ok := m.byNumber[number]
	if !ok {
		return repository.ErrOrderNotFound
	}
	o.PaymentIntentID = intentID
	return nil
}

// MockUserRepository keeps users in memory with a unique email index.
type MockUserRepository struct {
	m     sync.RWMutex
	users map[string]*domain.User
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

func (m *MockUserRepository) CreateUser(_ context.Context, user *domain.User) error {
	m.m.Lock()
	defer m.m.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	c := *user
	m.users[user.ID] = &c
	return nil
}

func (m *MockUserRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	c.Addresses = slices.Clone(u.Addresses)
	c.Wishlist = slices.Clone(u.Wishlist)
	return &c, nil
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.m.RLock()
	var id string
	for _, u := range m.users {
		if u.Email == email {
			id = u.ID
		}
	}
	m.m.RUnlock()
	return m.GetUserByID(ctx, id)
}

func (m *MockUserRepository) SaveAddresses(_ context.Context, userID string, addresses []domain.SavedAddress) error {
	m.m.Lock()
	defer m.m.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Addresses = slices.Clone(addresses)
	return nil
}

func (m *MockUserRepository) AddToWishlist(_ context.Context, userID, kittenID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if !slices.Contains(u.Wishlist, kittenID) {
		u.Wishlist = append(u.Wishlist, kittenID)
	}
	return nil
}

func (m *MockUserRepository) RemoveFromWishlist(_ context.Context, userID, kittenID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.Wishlist = slices.DeleteFunc(u.Wishlist, func(id string) bool { return id == kittenID })
	return nil
}

// MockPublisher records published events.
type MockPublisher struct {
	m      sync.RWMutex
	Events []events.OrderEvent
	Err    error
}

func (p *MockPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, e)
	return nil
}

func (p *MockPublisher) Close() error { return nil }

func (p *MockPublisher) Types() []events.Type {
	p.m.RLock()
	defer p.m.RUnlock()
	out := make([]events.Type, 0, len(p.Events))
	for _, e := range p.Events {
		out = append(out, e.Type)
	}
	return out
}

// MockKittenLookup serves kittens from a fixed map.
type MockKittenLookup map[string]domain.Kitten

func (m MockKittenLookup) KittenByID(_ context.Context, id string) (*domain.Kitten, error) {
	k, ok := m[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &k, nil
}

// MockTokenIssuer returns a token derived from the user id.
type MockTokenIssuer struct{}

func (MockTokenIssuer) Issue(userID string) (string, time.Time, error) {
	return "token-" + userID, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}
