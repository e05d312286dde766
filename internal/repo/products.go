package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/promoquoter/internal/catalog"
)

// ProductStore persists catalog products.
type ProductStore struct {
	db DBTX
}

const productColumns = "id, name, category, price, stock, version, created_at"

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.Version, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, catalog.ErrNotFound
		}
		return catalog.Product{}, err
	}
	return p, nil
}

// Create inserts a product and returns the stored row.
func (s *ProductStore) Create(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO products (id, name, category, price, stock)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+productColumns,
		p.ID, p.Name, p.Category, p.Price, p.Stock)
	return scanProduct(row)
}

// GetByID loads one product.
func (s *ProductStore) GetByID(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// GetByIDs loads products keyed by id. Missing ids are simply absent from the
// result; callers decide whether that is an error.
func (s *ProductStore) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]catalog.Product{}, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()
	out := make(map[uuid.UUID]catalog.Product, len(ids))
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.Version, &p.CreatedAt); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// List returns all products ordered by creation time.
func (s *ProductStore) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := s.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var out []catalog.Product
	for rows.Next() {
		var p catalog.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.Version, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetForUpdate loads one product with a row lock. Only meaningful inside a
// transaction.
func (s *ProductStore) GetForUpdate(ctx context.Context, id uuid.UUID) (catalog.Product, error) {
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
	return scanProduct(row)
}

// AdjustStock applies a stock delta guarded by the expected version. The
// update only lands when the version still matches and stock stays
// non-negative; a zero-row result is disambiguated by re-reading the row.
func (s *ProductStore) AdjustStock(ctx context.Context, id uuid.UUID, delta int32, expectedVersion int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE products
		SET stock = stock + $2, version = version + 1
		WHERE id = $1 AND version = $3 AND stock + $2 >= 0`,
		id, delta, expectedVersion)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Version != expectedVersion {
		return catalog.ErrVersionConflict
	}
	return catalog.ErrInsufficientStock
}
