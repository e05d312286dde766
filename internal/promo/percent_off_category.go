package promo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/promoquoter/internal/catalog"
	"github.com/noah-isme/promoquoter/internal/pricing"
)

// PercentOffCategory discounts every cart line whose product belongs to the
// promotion's target category. Rounding happens per line, not on the
// aggregate.
type PercentOffCategory struct{}

// Supports reports whether the promotion is a valid percent-off-category rule.
func (PercentOffCategory) Supports(p Promotion) bool {
	return p.Kind == KindPercentOffCategory &&
		p.Category != nil && strings.TrimSpace(*p.Category) != "" &&
		p.PercentBps != nil && *p.PercentBps > 0
}

// Apply sums the per-line half-up rounded discount across matching lines.
// Lines with a non-positive unit price are not eligible.
func (PercentOffCategory) Apply(p Promotion, products map[uuid.UUID]catalog.Product, quantities map[uuid.UUID]int32) Result {
	var discount pricing.Money
	affected := 0
	for productID, qty := range quantities {
		product, ok := products[productID]
		if !ok || qty <= 0 {
			continue
		}
		if string(product.Category) != *p.Category || product.Price <= 0 {
			continue
		}
		lineSubtotal := product.Price * pricing.Money(qty)
		discount += pricing.PercentOf(lineSubtotal, *p.PercentBps)
		affected++
	}
	if affected == 0 {
		return Result{}
	}
	return Result{
		Discount: discount,
		Description: fmt.Sprintf("%s%% off %s category (applied to %d items)",
			formatPercent(*p.PercentBps), *p.Category, affected),
	}
}

// formatPercent renders basis points as a human percentage, dropping trailing
// fraction when whole.
func formatPercent(bps int32) string {
	if bps%100 == 0 {
		return strconv.Itoa(int(bps / 100))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", float64(bps)/100), "0"), ".")
}
