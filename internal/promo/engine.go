package promo

import (
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promoquoter/internal/catalog"
	"github.com/noah-isme/promoquoter/internal/pricing"
)

// Applied records a promotion that contributed a positive discount, in
// evaluation order.
type Applied struct {
	Promotion   Promotion
	Discount    pricing.Money
	Description string
}

// Evaluation is the aggregate result of running the engine over a cart.
type Evaluation struct {
	TotalDiscount pricing.Money
	Applied       []Applied
}

// Engine orders promotions by priority and folds each strategy's discount into
// a running total. Discounts are additive and independent: every strategy sees
// the full original quantities and prices.
type Engine struct {
	Registry *Registry
	Logger   zerolog.Logger
}

// Evaluate applies the active promotions to the cart snapshot. Promotions
// whose kind has no registered strategy, or whose parameters do not pass the
// strategy's Supports check, are skipped without failing the quote. Given
// identical inputs the result is identical: the sort is stable and strategies
// are pure.
func (e *Engine) Evaluate(promotions []Promotion, products map[uuid.UUID]catalog.Product, quantities map[uuid.UUID]int32) Evaluation {
	active := make([]Promotion, 0, len(promotions))
	for _, p := range promotions {
		if p.Active {
			active = append(active, p)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Priority < active[j].Priority
	})

	var result Evaluation
	for _, p := range active {
		strategy, ok := e.Registry.Lookup(p.Kind)
		if !ok {
			e.Logger.Warn().
				Str("promotion", p.Name).
				Str("kind", string(p.Kind)).
				Msg("no strategy registered for promotion kind, skipping")
			continue
		}
		if !strategy.Supports(p) {
			continue
		}
		applied := strategy.Apply(p, products, quantities)
		if applied.Discount <= 0 {
			continue
		}
		result.TotalDiscount += applied.Discount
		result.Applied = append(result.Applied, Applied{
			Promotion:   p,
			Discount:    applied.Discount,
			Description: applied.Description,
		})
	}
	return result
}
