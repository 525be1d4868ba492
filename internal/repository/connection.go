package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

// MongoStore serves orders and users from one Mongo database.
type MongoStore struct {
	db     *mongo.Database
	orders *mongoOrderRepository
	users  *mongoUserRepository
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		db:     db,
		orders: &mongoOrderRepository{collection: db.Collection("orders")},
		users:  &mongoUserRepository{collection: db.Collection("users")},
	}
}

func (s *MongoStore) Orders() OrderRepository { return s.orders }
func (s *MongoStore) Users() UserRepository   { return s.users }

func (s *MongoStore) Setup(ctx context.Context) error {
	if err := s.orders.CreateIndexes(ctx); err != nil {
		return err
	}
	return s.users.CreateIndexes(ctx)
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}
