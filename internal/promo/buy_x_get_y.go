package promo

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/promoquoter/internal/catalog"
	"github.com/noah-isme/promoquoter/internal/pricing"
)

// BuyXGetY grants the "get" quantity free for every complete buy+get bundle of
// the target product present in the cart. There is no partial-set credit: a
// customer holding exactly buy+get units earns one free set, 2x(buy+get)
// earns two.
type BuyXGetY struct{}

// Supports reports whether the promotion is a valid buy-x-get-y rule.
func (BuyXGetY) Supports(p Promotion) bool {
	return p.Kind == KindBuyXGetY &&
		p.ProductID != nil &&
		p.BuyQty != nil && *p.BuyQty > 0 &&
		p.GetQty != nil && *p.GetQty > 0
}

// Apply computes the free-set discount for the target product only.
func (BuyXGetY) Apply(p Promotion, products map[uuid.UUID]catalog.Product, quantities map[uuid.UUID]int32) Result {
	qty, ok := quantities[*p.ProductID]
	if !ok || qty < *p.BuyQty {
		return Result{}
	}
	product, ok := products[*p.ProductID]
	if !ok || product.Price <= 0 {
		return Result{}
	}
	setSize := *p.BuyQty + *p.GetQty
	freeSets := qty / setSize
	if freeSets == 0 {
		return Result{}
	}
	freeItems := freeSets * *p.GetQty
	return Result{
		Discount: product.Price * pricing.Money(freeItems),
		Description: fmt.Sprintf("Buy %d Get %d Free - %s (%d free items)",
			*p.BuyQty, *p.GetQty, product.Name, freeItems),
	}
}
