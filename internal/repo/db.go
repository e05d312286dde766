package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/promoquoter/internal/catalog"
	"github.com/noah-isme/promoquoter/internal/checkout"
	"github.com/noah-isme/promoquoter/internal/order"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

// DBTX is the query surface shared by pools and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Stores bundles the repositories over one connection pool.
type Stores struct {
	Pool       *pgxpool.Pool
	Products   *ProductStore
	Orders     *OrderStore
	Promotions *PromotionStore
	Events     *EventStore
}

// NewStores wires all repositories to the pool.
func NewStores(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Pool:       pool,
		Products:   &ProductStore{db: pool},
		Orders:     &OrderStore{db: pool},
		Promotions: &PromotionStore{db: pool},
		Events:     &EventStore{db: pool},
	}
}

// InTx runs fn inside one transaction. Any error rolls the transaction back.
func (s *Stores) InTx(ctx context.Context, fn func(checkout.TxOps) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	ops := &txOps{
		products: &ProductStore{db: tx},
		orders:   &OrderStore{db: tx},
	}
	if err := fn(ops); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// txOps adapts the transactional repositories to the confirmation protocol.
type txOps struct {
	products *ProductStore
	orders   *OrderStore
}

func (t *txOps) FindOrderByKeyForUpdate(ctx context.Context, key string) (order.Order, error) {
	return t.orders.FindByKeyForUpdate(ctx, key)
}

func (t *txOps) GetProductForUpdate(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	return t.products.GetForUpdate(ctx, id)
}

func (t *txOps) AdjustStock(ctx context.Context, id uuid.UUID, delta int32, expectedVersion int64) error {
	return t.products.AdjustStock(ctx, id, delta, expectedVersion)
}

func (t *txOps) CreateOrder(ctx context.Context, o order.Order) (order.Order, error) {
	return t.orders.Create(ctx, o)
}
