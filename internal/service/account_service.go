package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/repository"
	"github.com/fjod/cats-den/internal/validation"
)

type AddAddressRequest struct {
	Address   domain.Address `json:"address"`
	IsDefault bool           `json:"isDefault"`
}

type AccountService struct {
	users repository.UserRepository
}

func NewAccountService(users repository.UserRepository) *AccountService {
	return &AccountService{users: users}
}

func (s *AccountService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// AddAddress saves a new address. The first address is always the default,
// and making one default clears the flag on the others.
func (s *AccountService) AddAddress(ctx context.Context, userID string, req AddAddressRequest) ([]domain.SavedAddress, error) {
	addr := trimAddress(req.Address)
	if err := validation.Struct(addr); err != nil {
		return nil, err
	}
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	saved := domain.SavedAddress{
		ID:        uuid.NewString(),
		Address:   addr,
		IsDefault: req.IsDefault || len(user.Addresses) == 0,
	}
	addresses := make([]domain.SavedAddress, 0, len(user.Addresses)+1)
	for _, a := range user.Addresses {
		if saved.IsDefault {
			a.IsDefault = false
		}
		addresses = append(addresses, a)
	}
	addresses = append(addresses, saved)

	if err := s.users.SaveAddresses(ctx, userID, addresses); err != nil {
		return nil, fmt.Errorf("failed to save addresses: %w", err)
	}
	return addresses, nil
}

// RemoveAddress deletes an address. When the default goes, the oldest
// remaining address takes its place.
func (s *AccountService) RemoveAddress(ctx context.Context, userID, addressID string) ([]domain.SavedAddress, error) {
	user, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	addresses := make([]domain.SavedAddress, 0, len(user.Addresses))
	var removed *domain.SavedAddress
	for _, a := range user.Addresses {
		if a.ID == addressID {
			removed = &a
			continue
		}
		addresses = append(addresses, a)
	}
	if removed == nil {
		return nil, ErrAddressNotFound
	}
	if removed.IsDefault && len(addresses) > 0 {
		addresses[0].IsDefault = true
	}

	if err := s.users.SaveAddresses(ctx, userID, addresses); err != nil {
		return nil, fmt.Errorf("failed to save addresses: %w", err)
	}
	return addresses, nil
}

func (s *AccountService) AddToWishlist(ctx context.Context, userID, kittenID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	kittenID = strings.TrimSpace(kittenID)
	if kittenID == "" {
		return invalid("kittenId", "Kitten id is required")
	}
	if err := s.users.AddToWishlist(ctx, userID, kittenID); err != nil {
		return fmt.Errorf("failed to update wishlist: %w", err)
	}
	return nil
}

func (s *AccountService) RemoveFromWishlist(ctx context.Context, userID, kittenID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if err := s.users.RemoveFromWishlist(ctx, userID, kittenID); err != nil {
		return fmt.Errorf("failed to update wishlist: %w", err)
	}
	return nil
}
