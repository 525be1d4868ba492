package domain

import "time"

// CartItem is a single adoptable kitten held in a cart. Kittens are unique,
// so there is no quantity.
type CartItem struct {
	Kitten  Kitten    `json:"kitten"`
	AddedAt time.Time `json:"addedAt"`
}
