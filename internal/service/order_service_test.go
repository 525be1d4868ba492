package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/events"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/fjod/cats-den/internal/payment"
	"github.com/fjod/cats-den/internal/pricing"
	"github.com/fjod/cats-den/internal/repository"
)

var orderNumberPattern = regexp.MustCompile(`^CD-\d{8}-\d{4}$`)

func testAddress() domain.Address {
	return domain.Address{
		Name:       "Jane Doe",
		Street:     "1 Main St",
		City:       "Springfield",
		State:      "IL",
		PostalCode: "62701",
		Country:    "US",
		Phone:      "555-0100",
	}
}

// validRequest orders two kittens priced 1200 and 800 with default pricing.
func validRequest() CreateOrderRequest {
	return CreateOrderRequest{
		Items: []domain.OrderItem{
			{KittenID: "k1", KittenName: "Luna", KittenBreed: "Maine Coon", Price: 1200},
			{KittenID: "k2", KittenName: "Milo", KittenBreed: "Ragdoll", Price: 800},
		},
		ShippingAddress: testAddress(),
		Subtotal:        2000,
		Shipping:        150,
		Tax:             160,
		Total:           2310,
	}
}

func newTestOrderService(repo *MockOrderRepository, pub *MockPublisher) *OrderService {
	svc := NewOrderService(OrderDeps{
		Orders:    repo,
		Publisher: pub,
		Payments:  payment.NewMockProvider(payment.MockConfig{Outcome: payment.FixedOutcome(true)}),
		Pricing:   pricing.Default(),
		Logger:    logger.Discard(),
	})
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC) }
	return svc
}

func pendingOrder(number, userID string) *domain.Order {
	return &domain.Order{
		ID:            "id-" + number,
		OrderNumber:   number,
		UserID:        userID,
		Items:         []domain.OrderItem{{KittenID: "k1", KittenName: "Luna", Price: 1200}},
		Totals:        domain.Totals{Subtotal: 1200, Shipping: 150, Tax: 96, Total: 1446},
		Status:        domain.OrderStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
	}
}

func TestCreateOrder_Success(t *testing.T) {
	repo := NewMockOrderRepository()
	pub := &MockPublisher{}
	svc := newTestOrderService(repo, pub)
	svc.digits = func() int { return 42 }

	order, err := svc.CreateOrder(context.Background(), "user-1", validRequest())

	require.NoError(t, err)
	assert.Equal(t, "CD-20260314-0042", order.OrderNumber)
	assert.Equal(t, "user-1", order.UserID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, domain.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, 2310.0, order.Total)
	assert.NotEmpty(t, order.ID)
	assert.NotNil(t, repo.Get(order.OrderNumber))
	assert.Equal(t, []events.Type{events.OrderCreated}, pub.Types())
}

func TestCreateOrder_RequiresUser(t *testing.T) {
	svc := newTestOrderService(NewMockOrderRepository(), &MockPublisher{})

	_, err := svc.CreateOrder(context.Background(), "", validRequest())

	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateOrderRequest)
		field  string
	}{
		{"no items", func(r *CreateOrderRequest) { r.Items = nil }, "items"},
		{"missing postal code", func(r *CreateOrderRequest) { r.ShippingAddress.PostalCode = "  " }, "shippingAddress.postalCode"},
		{"missing kitten name", func(r *CreateOrderRequest) { r.Items[1].KittenName = "" }, "items[1].kittenName"},
		{"duplicate kitten", func(r *CreateOrderRequest) { r.Items[1].KittenID = "k1" }, "items[1].kittenId"},
		{"total off by a cent", func(r *CreateOrderRequest) { r.Total = 2310.01 }, "total"},
		{"tax mismatch", func(r *CreateOrderRequest) { r.Tax = 0 }, "tax"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewMockOrderRepository()
			svc := newTestOrderService(repo, &MockPublisher{})
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreateOrder(context.Background(), "user-1", req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, repo.Attempts)
		})
	}
}

func TestCreateOrder_RetriesOnCollision(t *testing.T) {
	repo := NewMockOrderRepository()
	repo.Collisions = 2
	svc := newTestOrderService(repo, &MockPublisher{})
	n := 0
	svc.digits = func() int { n++; return n }

	order, err := svc.CreateOrder(context.Background(), "user-1", validRequest())

	require.NoError(t, err)
	assert.Equal(t, []string{"CD-20260314-0001", "CD-20260314-0002", "CD-20260314-0003"}, repo.Attempts)
	assert.Equal(t, "CD-20260314-0003", order.OrderNumber)
}

func TestCreateOrder_GivesUpAfterRepeatedCollisions(t *testing.T) {
	repo := NewMockOrderRepository()
	repo.Collisions = maxOrderNumberAttempts
	svc := newTestOrderService(repo, &MockPublisher{})

	_, err := svc.CreateOrder(context.Background(), "user-1", validRequest())

	assert.ErrorIs(t, err, repository.ErrDuplicateOrderNumber)
	assert.Len(t, repo.Attempts, maxOrderNumberAttempts)
}

func TestCreateOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	repo := NewMockOrderRepository()
	svc := newTestOrderService(repo, &MockPublisher{Err: errors.New("broker down")})

	order, err := svc.CreateOrder(context.Background(), "user-1", validRequest())

	require.NoError(t, err)
	assert.NotNil(t, repo.Get(order.OrderNumber))
}

func TestCreateOrder_VerifiesCatalog(t *testing.T) {
	kittens := MockKittenLookup{
		"k1": {ID: "k1", Name: "Luna", Price: 1200, Availability: domain.AvailabilityAvailable},
		"k2": {ID: "k2", Name: "Milo", Price: 800, Availability: domain.AvailabilityAvailable},
	}

	tests := []struct {
		name   string
		adjust func(MockKittenLookup)
		field  string
	}{
		{"all good", func(MockKittenLookup) {}, ""},
		{"unlisted", func(m MockKittenLookup) { delete(m, "k2") }, "items[1].kittenId"},
		{"sold", func(m MockKittenLookup) {
			k := m["k1"]
			k.Availability = domain.AvailabilitySold
			m["k1"] = k
		}, "items[0].kittenId"},
		{"repriced", func(m MockKittenLookup) {
			k := m["k2"]
			k.Price = 900
			m["k2"] = k
		}, "items[1].price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := MockKittenLookup{}
			for id, k := range kittens {
				lookup[id] = k
			}
			tt.adjust(lookup)

			svc := newTestOrderService(NewMockOrderRepository(), &MockPublisher{})
			svc.catalog = lookup
			svc.verifyCatalog = true

			_, err := svc.CreateOrder(context.Background(), "user-1", validRequest())
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestOrderNumberFormat(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("order numbers are CD-YYYYMMDD-NNNN in UTC", prop.ForAll(
		func(unix int64, digits int) bool {
			svc := newTestOrderService(NewMockOrderRepository(), &MockPublisher{})
			at := time.Unix(unix, 0).In(time.FixedZone("east", 14*3600))
			svc.now = func() time.Time { return at }
			svc.digits = func() int { return digits }

			number := svc.orderNumber()
			return orderNumberPattern.MatchString(number) &&
				number[3:11] == at.UTC().Format("20060102")
		},
		gen.Int64Range(0, 4102444800),
		gen.IntRange(0, 9999),
	))

	properties.TestingRun(t)
}

func TestGetOrder_OwnerOnly(t *testing.T) {
	repo := NewMockOrderRepository(pendingOrder("CD-20260314-0001", "user-1"))
	svc := newTestOrderService(repo, &MockPublisher{})

	order, err := svc.GetOrder(context.Background(), "user-1", "CD-20260314-0001")
	require.NoError(t, err)
	assert.Equal(t, "user-1", order.UserID)

	_, err = svc.GetOrder(context.Background(), "user-2", "CD-20260314-0001")
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	_, err = svc.GetOrder(context.Background(), "", "CD-20260314-0001")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestListOrders(t *testing.T) {
	repo := NewMockOrderRepository(
		pendingOrder("CD-20260314-0001", "user-1"),
		pendingOrder("CD-20260314-0002", "user-2"),
	)
	svc := newTestOrderService(repo, &MockPublisher{})

	orders, err := svc.ListOrders(context.Background(), "user-1")

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "CD-20260314-0001", orders[0].OrderNumber)
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.OrderStatus
		to      domain.OrderStatus
		wantErr error
	}{
		{"confirm", domain.OrderStatusPending, domain.OrderStatusConfirmed, nil},
		{"ship", domain.OrderStatusProcessing, domain.OrderStatusShipped, nil},
		{"backwards", domain.OrderStatusShipped, domain.OrderStatusPending, ErrIllegalTransition},
		{"after delivery", domain.OrderStatusDelivered, domain.OrderStatusCancelled, ErrIllegalTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := pendingOrder("CD-20260314-0001", "user-1")
			o.Status = tt.from
			repo := NewMockOrderRepository(o)
			pub := &MockPublisher{}
			svc := newTestOrderService(repo, pub)

			_, err := svc.UpdateStatus(context.Background(), o.OrderNumber, tt.to)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.from, repo.Get(o.OrderNumber).Status)
				assert.Empty(t, pub.Types())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, repo.Get(o.OrderNumber).Status)
			assert.Equal(t, []events.Type{events.OrderStatusUpdated}, pub.Types())
		})
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	repo := NewMockOrderRepository(pendingOrder("CD-20260314-0001", "user-1"))
	svc := newTestOrderService(repo, &MockPublisher{})

	_, err := svc.UpdateStatus(context.Background(), "CD-20260314-0001", domain.OrderStatus("lost"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "status", verr.Field)
}

func TestCreatePaymentIntent(t *testing.T) {
	repo := NewMockOrderRepository(pendingOrder("CD-20260314-0001", "user-1"))
	svc := newTestOrderService(repo, &MockPublisher{})

	intent, err := svc.CreatePaymentIntent(context.Background(), "user-1", "CD-20260314-0001")

	require.NoError(t, err)
	assert.Equal(t, int64(144600), intent.Amount.Amount)
	assert.Equal(t, "usd", intent.Amount.Currency)
	assert.Equal(t, "CD-20260314-0001", intent.Metadata["orderId"])
	assert.Equal(t, intent.ID, repo.Get("CD-20260314-0001").PaymentIntentID)
}

func TestCreatePaymentIntent_NotPayable(t *testing.T) {
	paid := pendingOrder("CD-20260314-0001", "user-1")
	paid.PaymentStatus = domain.PaymentStatusPaid
	cancelled := pendingOrder("CD-20260314-0002", "user-1")
	cancelled.Status = domain.OrderStatusCancelled
	repo := NewMockOrderRepository(paid, cancelled)
	svc := newTestOrderService(repo, &MockPublisher{})

	_, err := svc.CreatePaymentIntent(context.Background(), "user-1", paid.OrderNumber)
	assert.ErrorIs(t, err, ErrOrderNotPayable)

	_, err = svc.CreatePaymentIntent(context.Background(), "user-1", cancelled.OrderNumber)
	assert.ErrorIs(t, err, ErrOrderNotPayable)

	_, err = svc.CreatePaymentIntent(context.Background(), "user-2", paid.OrderNumber)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}
