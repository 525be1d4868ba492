package domain

import "time"

type SavedAddress struct {
	ID        string `json:"id" bson:"id"`
	Address   `bson:",inline"`
	IsDefault bool `json:"isDefault" bson:"is_default"`
}

type User struct {
	ID            string         `json:"id" bson:"_id"`
	Email         string         `json:"email" bson:"email"`
	PasswordHash  string         `json:"-" bson:"password_hash"`
	Name          string         `json:"name" bson:"name"`
	Image         string         `json:"image,omitempty" bson:"image,omitempty"`
	Addresses     []SavedAddress `json:"addresses" bson:"addresses"`
	Wishlist      []string       `json:"wishlist" bson:"wishlist"`
	EmailVerified *time.Time     `json:"emailVerified,omitempty" bson:"email_verified,omitempty"`
	CreatedAt     time.Time      `json:"createdAt" bson:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" bson:"updated_at"`
}
