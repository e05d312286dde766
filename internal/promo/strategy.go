package promo

import (
	"github.com/google/uuid"

	"github.com/noah-isme/promoquoter/internal/catalog"
	"github.com/noah-isme/promoquoter/internal/pricing"
)

// Result is the outcome of applying a single promotion to a cart. The
// discount is always non-negative; a zero discount means the promotion did
// not take effect.
type Result struct {
	Discount    pricing.Money
	Description string
}

// Strategy evaluates one promotion kind. Implementations are pure: they never
// mutate their inputs, never block, and never return an error. Ineligible or
// malformed input yields a zero-discount Result so one broken promotion cannot
// block the rest of the quote.
type Strategy interface {
	// Supports reports whether the strategy can evaluate the promotion. It
	// checks both the kind and the presence/validity of the kind-specific
	// parameters.
	Supports(p Promotion) bool
	// Apply computes the discount for the promotion against a catalog
	// snapshot and the aggregate cart quantities.
	Apply(p Promotion, products map[uuid.UUID]catalog.Product, quantities map[uuid.UUID]int32) Result
}
