package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/promoquoter/internal/promo"
)

// PromotionStore persists promotion rules.
type PromotionStore struct {
	db DBTX
}

const promotionColumns = "id, name, kind, category, percent_bps, product_id, buy_qty, get_qty, priority, active, created_at"

// ListActive returns active promotions ordered by priority with creation time
// as the tiebreak, matching evaluation order.
func (s *PromotionStore) ListActive(ctx context.Context) ([]promo.Promotion, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+promotionColumns+`
		FROM promotions
		WHERE active
		ORDER BY priority, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()
	var out []promo.Promotion
	for rows.Next() {
		var p promo.Promotion
		if err := rows.Scan(&p.ID, &p.Name, &p.Kind, &p.Category, &p.PercentBps, &p.ProductID,
			&p.BuyQty, &p.GetQty, &p.Priority, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Create inserts a promotion rule. Used by the seeder.
func (s *PromotionStore) Create(ctx context.Context, p promo.Promotion) (promo.Promotion, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO promotions (id, name, kind, category, percent_bps, product_id, buy_qty, get_qty, priority, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		p.ID, p.Name, p.Kind, p.Category, p.PercentBps, p.ProductID, p.BuyQty, p.GetQty, p.Priority, p.Active)
	if err := row.Scan(&p.CreatedAt); err != nil {
		return promo.Promotion{}, fmt.Errorf("insert promotion: %w", err)
	}
	return p, nil
}
