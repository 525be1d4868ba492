package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fjod/cats-den/internal/domain"
)

type mongoOrderRepository struct {
	collection *mongo.Collection
}

func (m *mongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	_, err := m.collection.InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrderNumber
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (m *mongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*domain.Order, error) {
	var order domain.Order
	err := m.collection.FindOne(ctx, filter).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

func (m *mongoOrderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *mongoOrderRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return m.findOne(ctx, bson.M{"order_number": orderNumber})
}

func (m *mongoOrderRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (m *mongoOrderRepository) UpdatePayment(ctx context.Context, u PaymentUpdate) error {
	set := bson.M{
		"payment_status": u.To,
		"updated_at":     time.Now().UTC(),
	}
	if u.Status != "" && len(u.StatusFrom) > 0 {
		set["status"] = bson.M{"$cond": bson.A{
			bson.M{"$in": bson.A{"$status", u.StatusFrom}},
			u.Status,
			"$status",
		}}
	}
	if u.PaymentIntentID != "" {
		set["payment_intent_id"] = u.PaymentIntentID
	}

	filter := bson.M{
		"order_number":   u.OrderNumber,
		"payment_status": bson.M{"$in": u.From},
	}
	// A pipeline update so the order status condition reads the stored value.
	result, err := m.collection.UpdateOne(ctx, filter, bson.A{bson.M{"$set": set}})
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if result.MatchedCount == 0 {
		return m.missOrConflict(ctx, bson.M{"order_number": u.OrderNumber})
	}
	return nil
}

func (m *mongoOrderRepository) UpdateOrderStatus(ctx context.Context, orderNumber string, from, to domain.OrderStatus) error {
	filter := bson.M{"order_number": orderNumber, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if result.MatchedCount == 0 {
		return m.missOrConflict(ctx, bson.M{"order_number": orderNumber})
	}
	return nil
}

func (m *mongoOrderRepository) SetPaymentIntent(ctx context.Context, orderNumber, paymentIntentID string) error {
	update := bson.M{"$set": bson.M{
		"payment_intent_id": paymentIntentID,
		"payment_method":    "card",
		"updated_at":        time.Now().UTC(),
	}}
	result, err := m.collection.UpdateOne(ctx, bson.M{"order_number": orderNumber}, update)
	if err != nil {
		return fmt.Errorf("failed to set payment intent: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// missOrConflict tells an absent order apart from one whose state did not match.
func (m *mongoOrderRepository) missOrConflict(ctx context.Context, filter bson.M) error {
	n, err := m.collection.CountDocuments(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to count orders: %w", err)
	}
	if n == 0 {
		return ErrOrderNotFound
	}
	return ErrStatusConflict
}

func (m *mongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "order_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create order indexes: %w", err)
	}
	return nil
}
