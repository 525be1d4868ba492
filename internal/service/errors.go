package service

import (
	"errors"

	"github.com/fjod/cats-den/internal/validation"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrIllegalTransition  = errors.New("illegal transition of order status")
	ErrOrderNotPayable    = errors.New("order is not awaiting payment")
	ErrAddressNotFound    = errors.New("address not found")
)

// ValidationError names the first invalid input field.
type ValidationError = validation.FieldError

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
