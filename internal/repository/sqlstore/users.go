package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/repository"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) CreateUser(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	var verified any
	if user.EmailVerified != nil {
		verified = user.EmailVerified.UTC()
	}

	query := r.s.rebind(`INSERT INTO users (id, email, password_hash, name, image, email_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.s.db.ExecContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Image, verified, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *userRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id", id)
}

func (r *userRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email", email)
}

func (r *userRepository) getOne(ctx context.Context, column, value string) (*domain.User, error) {
	query := r.s.rebind(`SELECT id, email, password_hash, name, image, email_verified, created_at, updated_at
		FROM users WHERE ` + column + ` = ?`)

	var (
		user     domain.User
		verified sql.NullTime
	)
	err := r.s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Image, &verified, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by %s: %w", column, err)
	}
	if verified.Valid {
		t := verified.Time.UTC()
		user.EmailVerified = &t
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()

	if user.Addresses, err = r.addresses(ctx, user.ID); err != nil {
		return nil, err
	}
	if user.Wishlist, err = r.wishlist(ctx, user.ID); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) addresses(ctx context.Context, userID string) ([]domain.SavedAddress, error) {
	query := r.s.rebind(`SELECT id, name, street, city, state, postal_code, country, phone, is_default
		FROM user_addresses WHERE user_id = ? ORDER BY position`)
	rows, err := r.s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query addresses: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SavedAddress, 0)
	for rows.Next() {
		var a domain.SavedAddress
		if err := rows.Scan(&a.ID, &a.Name, &a.Street, &a.City, &a.State, &a.PostalCode, &a.Country, &a.Phone, &a.IsDefault); err != nil {
			return nil, fmt.Errorf("scan address row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (r *userRepository) wishlist(ctx context.Context, userID string) ([]string, error) {
	query := r.s.rebind(`SELECT kitten_id FROM wishlist_items WHERE user_id = ? ORDER BY added_at, kitten_id`)
	rows, err := r.s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query wishlist: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan wishlist row: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// SaveAddresses replaces the user's address book in one transaction.
func (r *userRepository) SaveAddresses(ctx context.Context, userID string, addresses []domain.SavedAddress) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := r.touch(ctx, tx, userID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, r.s.rebind(`DELETE FROM user_addresses WHERE user_id = ?`), userID); err != nil {
		return fmt.Errorf("delete addresses: %w", err)
	}

	insert := r.s.rebind(`INSERT INTO user_addresses
		(user_id, id, position, name, street, city, state, postal_code, country, phone, is_default)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for i, a := range addresses {
		if _, err := tx.ExecContext(ctx, insert,
			userID, a.ID, i, a.Name, a.Street, a.City, a.State, a.PostalCode, a.Country, a.Phone, a.IsDefault); err != nil {
			return fmt.Errorf("insert address: %w", err)
		}
	}
	return tx.Commit()
}

func (r *userRepository) AddToWishlist(ctx context.Context, userID, kittenID string) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := r.touch(ctx, tx, userID); err != nil {
		return err
	}
	query := r.s.rebind(`INSERT INTO wishlist_items (user_id, kitten_id, added_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, kitten_id) DO NOTHING`)
	if _, err := tx.ExecContext(ctx, query, userID, kittenID, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert wishlist item: %w", err)
	}
	return tx.Commit()
}

func (r *userRepository) RemoveFromWishlist(ctx context.Context, userID, kittenID string) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := r.touch(ctx, tx, userID); err != nil {
		return err
	}
	query := r.s.rebind(`DELETE FROM wishlist_items WHERE user_id = ? AND kitten_id = ?`)
	if _, err := tx.ExecContext(ctx, query, userID, kittenID); err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	return tx.Commit()
}

// touch bumps updated_at and reports ErrUserNotFound for an unknown user.
func (r *userRepository) touch(ctx context.Context, tx *sql.Tx, userID string) error {
	res, err := tx.ExecContext(ctx, r.s.rebind(`UPDATE users SET updated_at = ? WHERE id = ?`), time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}
