package pricing

// Money represents a monetary value stored in minor units.
type Money = int64

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money
	Discount Money
	Total    Money
}

// Subtotal sums unit price times quantity across the provided items. Lines
// with non-positive quantity do not contribute.
func Subtotal(items []Item) Money {
	var subtotal Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
	}
	return subtotal
}

// PercentOf applies a basis-point percentage to an amount, rounding half-up to
// whole minor units. Prices stored in cents therefore round exactly like
// two-decimal values rounded half-up.
func PercentOf(amount Money, bps int32) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*Money(bps) + 5000) / 10000
}

// Compute derives cart totals from a subtotal and an aggregate discount. The
// total is floored at zero.
func Compute(subtotal, discount Money) Summary {
	if discount < 0 {
		discount = 0
	}
	total := subtotal - discount
	if total < 0 {
		total = 0
	}
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
	}
}
