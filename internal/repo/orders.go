package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/noah-isme/promoquoter/internal/order"
)

// OrderStore persists confirmed orders and their items.
type OrderStore struct {
	db DBTX
}

func (s *OrderStore) scanOrder(ctx context.Context, row pgx.Row) (order.Order, error) {
	var o order.Order
	var key *string
	err := row.Scan(&o.ID, &o.Status, &o.CustomerSegment, &o.Subtotal, &o.Discount, &o.Total, &key, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, order.ErrNotFound
		}
		return order.Order{}, err
	}
	if key != nil {
		o.IdempotencyKey = *key
	}
	items, err := s.loadItems(ctx, o.ID)
	if err != nil {
		return order.Order{}, err
	}
	o.Items = items
	return o, nil
}

const orderColumns = "id, status, customer_segment, subtotal, discount, total, idempotency_key, created_at"

// FindByID loads one order with its items.
func (s *OrderStore) FindByID(ctx context.Context, id uuid.UUID) (order.Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return s.scanOrder(ctx, row)
}

// FindByIdempotencyKey loads the order holding the key, if any.
func (s *OrderStore) FindByIdempotencyKey(ctx context.Context, key string) (order.Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
	return s.scanOrder(ctx, row)
}

// FindByKeyForUpdate locks and loads the order holding the key. Only
// meaningful inside a transaction.
func (s *OrderStore) FindByKeyForUpdate(ctx context.Context, key string) (order.Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1 FOR UPDATE`, key)
	return s.scanOrder(ctx, row)
}

// Create inserts the order and its items. A unique violation on the
// idempotency key maps to order.ErrDuplicateKey so callers can resolve the
// race to the winning order.
func (s *OrderStore) Create(ctx context.Context, o order.Order) (order.Order, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	var key *string
	if o.IdempotencyKey != "" {
		key = &o.IdempotencyKey
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO orders (id, status, customer_segment, subtotal, discount, total, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		o.ID, o.Status, o.CustomerSegment, o.Subtotal, o.Discount, o.Total, key)
	if err := row.Scan(&o.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return order.Order{}, order.ErrDuplicateKey
		}
		return order.Order{}, fmt.Errorf("insert order: %w", err)
	}
	for pos, item := range o.Items {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, name, qty, unit_price, line_total, line_discount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New(), o.ID, pos, item.ProductID, item.Name, item.Qty, item.UnitPrice, item.LineTotal, item.LineDiscount); err != nil {
			return order.Order{}, fmt.Errorf("insert order item: %w", err)
		}
	}
	return o, nil
}

func (s *OrderStore) loadItems(ctx context.Context, orderID uuid.UUID) ([]order.Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT product_id, name, qty, unit_price, line_total, line_discount
		FROM order_items WHERE order_id = $1 ORDER BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()
	var items []order.Item
	for rows.Next() {
		var item order.Item
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Qty, &item.UnitPrice, &item.LineTotal, &item.LineDiscount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
