package repository

import (
	"context"
	"errors"

	"github.com/fjod/cats-den/internal/domain"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateOrderNumber = errors.New("order number already exists")
	ErrStatusConflict       = errors.New("order is not in the expected state")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already registered")
)

// PaymentUpdate moves an order's payment status to To, but only while the
// current payment status is one of From.
type PaymentUpdate struct {
	OrderNumber string
	From        []domain.PaymentStatus
	To          domain.PaymentStatus
	// Status, when set, is written together with the payment status but only
	// while the order status is one of StatusFrom. Otherwise the payment is
	// still recorded and the order status is left alone.
	Status          domain.OrderStatus
	StatusFrom      []domain.OrderStatus
	PaymentIntentID string
}

// OrderRepository defines the interface for order data operations.
// Consumers define this interface, not the storage implementations.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	UpdatePayment(ctx context.Context, update PaymentUpdate) error
	UpdateOrderStatus(ctx context.Context, orderNumber string, from, to domain.OrderStatus) error
	SetPaymentIntent(ctx context.Context, orderNumber, paymentIntentID string) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	SaveAddresses(ctx context.Context, userID string, addresses []domain.SavedAddress) error
	AddToWishlist(ctx context.Context, userID, kittenID string) error
	RemoveFromWishlist(ctx context.Context, userID, kittenID string) error
}

// Store bundles the repositories of one storage backend.
type Store interface {
	Orders() OrderRepository
	Users() UserRepository
	// Setup creates indexes or applies migrations.
	Setup(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
