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

type mongoUserRepository struct {
	collection *mongo.Collection
}

func (m *mongoUserRepository) CreateUser(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	// $addToSet and $pull need arrays, not nulls.
	if user.Addresses == nil {
		user.Addresses = []domain.SavedAddress{}
	}
	if user.Wishlist == nil {
		user.Wishlist = []string{}
	}

	if _, err := m.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (m *mongoUserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	if err := m.collection.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (m *mongoUserRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *mongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.findOne(ctx, bson.M{"email": email})
}

func (m *mongoUserRepository) update(ctx context.Context, userID string, update bson.M) error {
	result, err := m.collection.UpdateOne(ctx, bson.M{"_id": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (m *mongoUserRepository) SaveAddresses(ctx context.Context, userID string, addresses []domain.SavedAddress) error {
	if addresses == nil {
		addresses = []domain.SavedAddress{}
	}
	return m.update(ctx, userID, bson.M{"$set": bson.M{
		"addresses":  addresses,
		"updated_at": time.Now().UTC(),
	}})
}

func (m *mongoUserRepository) AddToWishlist(ctx context.Context, userID, kittenID string) error {
	return m.update(ctx, userID, bson.M{
		"$addToSet": bson.M{"wishlist": kittenID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

func (m *mongoUserRepository) RemoveFromWishlist(ctx context.Context, userID, kittenID string) error {
	return m.update(ctx, userID, bson.M{
		"$pull": bson.M{"wishlist": kittenID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

func (m *mongoUserRepository) CreateIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}
