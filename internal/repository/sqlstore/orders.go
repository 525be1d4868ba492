package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/repository"
)

type orderRepository struct {
	s *Store
}

const orderColumns = `id, order_number, user_id, items, subtotal, shipping, tax, total, status,
	payment_status, payment_method, payment_intent_id, shipping_address, billing_address, notes,
	created_at, updated_at`

func (r *orderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}
	shippingJSON, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}
	var billingJSON []byte
	if order.BillingAddress != nil {
		if billingJSON, err = json.Marshal(order.BillingAddress); err != nil {
			return fmt.Errorf("failed to marshal billing address: %w", err)
		}
	}

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	order.UpdatedAt = order.CreatedAt

	query := r.s.rebind(`INSERT INTO orders (` + orderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.s.db.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.UserID,
		string(itemsJSON),
		order.Subtotal,
		order.Shipping,
		order.Tax,
		order.Total,
		string(order.Status),
		string(order.PaymentStatus),
		order.PaymentMethod,
		order.PaymentIntentID,
		string(shippingJSON),
		nullableJSON(billingJSON),
		order.Notes,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, "id", id)
}

func (r *orderRepository) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return r.getOne(ctx, "order_number", orderNumber)
}

func (r *orderRepository) getOne(ctx context.Context, column, value string) (*domain.Order, error) {
	query := r.s.rebind(`SELECT ` + orderColumns + ` FROM orders WHERE ` + column + ` = ?`)
	order, err := scanOrder(r.s.db.QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by %s: %w", column, err)
	}
	return order, nil
}

func (r *orderRepository) ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error) {
	query := r.s.rebind(`SELECT ` + orderColumns + ` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`)

	rows, err := r.s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) UpdatePayment(ctx context.Context, u repository.PaymentUpdate) error {
	if len(u.From) == 0 {
		return repository.ErrStatusConflict
	}
	args := []any{string(u.To), time.Now().UTC()}
	set := `payment_status = ?, updated_at = ?`
	if u.Status != "" && len(u.StatusFrom) > 0 {
		set += `, status = CASE WHEN status IN (` + placeholders(len(u.StatusFrom)) + `) THEN ? ELSE status END`
		for _, from := range u.StatusFrom {
			args = append(args, string(from))
		}
		args = append(args, string(u.Status))
	}
	set += `, payment_intent_id = COALESCE(NULLIF(?, ''), payment_intent_id)`
	args = append(args, u.PaymentIntentID, u.OrderNumber)
	for _, from := range u.From {
		args = append(args, string(from))
	}

	query := r.s.rebind(`UPDATE orders SET ` + set +
		` WHERE order_number = ? AND payment_status IN (` + placeholders(len(u.From)) + `)`)

	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return r.checkAffected(ctx, res, "order_number", u.OrderNumber)
}

func (r *orderRepository) UpdateOrderStatus(ctx context.Context, orderNumber string, from, to domain.OrderStatus) error {
	query := r.s.rebind(`UPDATE orders SET status = ?, updated_at = ? WHERE order_number = ? AND status = ?`)
	res, err := r.s.db.ExecContext(ctx, query, string(to), time.Now().UTC(), orderNumber, string(from))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return r.checkAffected(ctx, res, "order_number", orderNumber)
}

func (r *orderRepository) SetPaymentIntent(ctx context.Context, orderNumber, paymentIntentID string) error {
	query := r.s.rebind(`UPDATE orders SET payment_intent_id = ?, payment_method = 'card', updated_at = ? WHERE order_number = ?`)
	res, err := r.s.db.ExecContext(ctx, query, paymentIntentID, time.Now().UTC(), orderNumber)
	if err != nil {
		return fmt.Errorf("set payment intent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return repository.ErrOrderNotFound
	}
	return nil
}

// checkAffected tells an absent order apart from one whose state did not match.
func (r *orderRepository) checkAffected(ctx context.Context, res sql.Result, column, value string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	query := r.s.rebind(`SELECT COUNT(*) FROM orders WHERE ` + column + ` = ?`)
	if err := r.s.db.QueryRowContext(ctx, query, value).Scan(&exists); err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	if exists == 0 {
		return repository.ErrOrderNotFound
	}
	return repository.ErrStatusConflict
}

func scanOrder(row scanner) (*domain.Order, error) {
	var (
		order                   domain.Order
		status, paymentStatus   string
		itemsJSON, shippingJSON []byte
		billingJSON             []byte
	)
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&itemsJSON,
		&order.Subtotal,
		&order.Shipping,
		&order.Tax,
		&order.Total,
		&status,
		&paymentStatus,
		&order.PaymentMethod,
		&order.PaymentIntentID,
		&shippingJSON,
		&billingJSON,
		&order.Notes,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.Status = domain.OrderStatus(status)
	order.PaymentStatus = domain.PaymentStatus(paymentStatus)
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if len(billingJSON) > 0 {
		order.BillingAddress = &domain.Address{}
		if err := json.Unmarshal(billingJSON, order.BillingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal billing address: %w", err)
		}
	}
	return &order, nil
}

func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
