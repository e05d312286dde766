package cart

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promoquoter/internal/catalog"
	"github.com/noah-isme/promoquoter/internal/common"
	"github.com/noah-isme/promoquoter/internal/obs"
	"github.com/noah-isme/promoquoter/internal/pricing"
	"github.com/noah-isme/promoquoter/internal/promo"
)

// Line is a requested cart entry before pricing.
type Line struct {
	ProductID uuid.UUID
	Qty       int32
}

// LineItem is a priced cart entry in a quote. FinalPrice is the line subtotal
// net of the line's allocated discount.
type LineItem struct {
	ProductID         uuid.UUID        `json:"productId"`
	Name              string           `json:"name"`
	Category          catalog.Category `json:"category"`
	Qty               int32            `json:"qty"`
	UnitPrice         pricing.Money    `json:"unitPrice"`
	LineSubtotal      pricing.Money    `json:"lineSubtotal"`
	AllocatedDiscount pricing.Money    `json:"allocatedDiscount"`
	FinalPrice        pricing.Money    `json:"finalPrice"`
}

// AppliedPromotion describes one promotion that contributed discount to a quote.
type AppliedPromotion struct {
	PromotionID uuid.UUID     `json:"promotionId"`
	Kind        promo.Kind    `json:"kind"`
	Description string        `json:"description"`
	Discount    pricing.Money `json:"discount"`
}

// Quote is the full pricing result for a cart.
type Quote struct {
	ID                uuid.UUID          `json:"quoteId"`
	Lines             []LineItem         `json:"lineItems"`
	AppliedPromotions []AppliedPromotion `json:"appliedPromotions"`
	Subtotal          pricing.Money      `json:"subtotal"`
	TotalDiscount     pricing.Money      `json:"totalDiscount"`
	Total             pricing.Money      `json:"total"`
}

// CatalogStore loads products for quoting.
type CatalogStore interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error)
}

// PromotionStore loads promotions eligible for evaluation.
type PromotionStore interface {
	ListActive(ctx context.Context) ([]promo.Promotion, error)
}

// Service computes quotes. It never mutates catalog or order state.
type Service struct {
	Catalog    CatalogStore
	Promotions PromotionStore
	Engine     *promo.Engine
	Logger     zerolog.Logger
}

// CollapseLines merges duplicate product entries additively and drops
// non-positive quantities, preserving first-seen order.
func CollapseLines(lines []Line) []Line {
	index := make(map[uuid.UUID]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 {
			continue
		}
		if at, ok := index[line.ProductID]; ok {
			out[at].Qty += line.Qty
			continue
		}
		index[line.ProductID] = len(out)
		out = append(out, line)
	}
	return out
}

// Quote prices the given cart lines against current catalog data and active
// promotions. Unknown products fail the whole quote.
func (s *Service) Quote(ctx context.Context, lines []Line) (Quote, error) {
	start := time.Now()
	quote, err := s.quote(ctx, lines)
	result := "ok"
	if err != nil {
		result = "error"
	}
	if obs.QuoteTotal != nil {
		obs.QuoteTotal.WithLabelValues(result).Inc()
	}
	if obs.QuoteDuration != nil {
		obs.QuoteDuration.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
	}
	return quote, err
}

func (s *Service) quote(ctx context.Context, lines []Line) (Quote, error) {
	collapsed := CollapseLines(lines)
	if len(collapsed) == 0 {
		return Quote{}, common.NewAppError("BAD_REQUEST", "cart has no purchasable lines", http.StatusBadRequest, nil)
	}

	ids := make([]uuid.UUID, 0, len(collapsed))
	quantities := make(map[uuid.UUID]int32, len(collapsed))
	for _, line := range collapsed {
		ids = append(ids, line.ProductID)
		quantities[line.ProductID] = line.Qty
	}

	products, err := s.Catalog.GetByIDs(ctx, ids)
	if err != nil {
		return Quote{}, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return Quote{}, common.NewAppError("NOT_FOUND", "product not found: "+id.String(), http.StatusNotFound, catalog.ErrNotFound)
		}
	}

	items := make([]LineItem, 0, len(collapsed))
	pricingItems := make([]pricing.Item, 0, len(collapsed))
	for _, line := range collapsed {
		product := products[line.ProductID]
		lineSubtotal := product.Price * pricing.Money(line.Qty)
		items = append(items, LineItem{
			ProductID:    line.ProductID,
			Name:         product.Name,
			Category:     product.Category,
			Qty:          line.Qty,
			UnitPrice:    product.Price,
			LineSubtotal: lineSubtotal,
			FinalPrice:   lineSubtotal,
		})
		pricingItems = append(pricingItems, pricing.Item{Qty: int(line.Qty), UnitPrice: product.Price})
	}
	subtotal := pricing.Subtotal(pricingItems)

	promotions, err := s.Promotions.ListActive(ctx)
	if err != nil {
		return Quote{}, err
	}
	evaluation := s.Engine.Evaluate(promotions, products, quantities)

	applied := make([]AppliedPromotion, 0, len(evaluation.Applied))
	for _, a := range evaluation.Applied {
		applied = append(applied, AppliedPromotion{
			PromotionID: a.Promotion.ID,
			Kind:        a.Promotion.Kind,
			Description: a.Description,
			Discount:    a.Discount,
		})
		if obs.PromotionsApplied != nil {
			obs.PromotionsApplied.WithLabelValues(string(a.Promotion.Kind)).Inc()
		}
	}

	discount := evaluation.TotalDiscount
	if discount > subtotal {
		discount = subtotal
	}
	summary := pricing.Compute(subtotal, discount)

	s.Logger.Debug().
		Int("lines", len(items)).
		Int("promotions_applied", len(applied)).
		Int64("subtotal", summary.Subtotal).
		Int64("discount", summary.Discount).
		Int64("total", summary.Total).
		Msg("quote computed")

	return Quote{
		ID:                uuid.New(),
		Lines:             items,
		AppliedPromotions: applied,
		Subtotal:          summary.Subtotal,
		TotalDiscount:     summary.Discount,
		Total:             summary.Total,
	}, nil
}
