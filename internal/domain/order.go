package domain

import "time"

type OrderItem struct {
	KittenID    string  `json:"kittenId" bson:"kitten_id" validate:"required"`
	KittenName  string  `json:"kittenName" bson:"kitten_name" validate:"required"`
	KittenBreed string  `json:"kittenBreed" bson:"kitten_breed"`
	Price       float64 `json:"price" bson:"price" validate:"gte=0"`
	Image       string  `json:"image,omitempty" bson:"image"`
}

type Address struct {
	Name       string `json:"name" bson:"name" validate:"required"`
	Street     string `json:"street" bson:"street" validate:"required"`
	City       string `json:"city" bson:"city" validate:"required"`
	State      string `json:"state" bson:"state" validate:"required"`
	PostalCode string `json:"postalCode" bson:"postal_code" validate:"required"`
	Country    string `json:"country" bson:"country" validate:"required"`
	Phone      string `json:"phone" bson:"phone" validate:"required"`
}

type Totals struct {
	Subtotal float64 `json:"subtotal" bson:"subtotal" validate:"gte=0"`
	Shipping float64 `json:"shipping" bson:"shipping" validate:"gte=0"`
	Tax      float64 `json:"tax" bson:"tax" validate:"gte=0"`
	Total    float64 `json:"total" bson:"total" validate:"gte=0"`
}

// Order is an immutable snapshot of a checkout. Only Status, PaymentStatus and
// PaymentIntentID change after creation.
type Order struct {
	ID              string        `json:"id" bson:"_id"`
	OrderNumber     string        `json:"orderNumber" bson:"order_number"`
	UserID          string        `json:"userId" bson:"user_id"`
	Items           []OrderItem   `json:"items" bson:"items"`
	Totals          `bson:",inline"`
	Status          OrderStatus   `json:"status" bson:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus" bson:"payment_status"`
	PaymentMethod   string        `json:"paymentMethod,omitempty" bson:"payment_method,omitempty"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty" bson:"payment_intent_id,omitempty"`
	ShippingAddress Address       `json:"shippingAddress" bson:"shipping_address"`
	BillingAddress  *Address      `json:"billingAddress,omitempty" bson:"billing_address,omitempty"`
	Notes           string        `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt       time.Time     `json:"createdAt" bson:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" bson:"updated_at"`
}
