package promo

// Registry maps a promotion kind to the strategy evaluating it. The table is
// built once at startup; lookups never allocate.
type Registry struct {
	strategies map[Kind]Strategy
}

// NewRegistry builds the default registry with one strategy per known kind.
func NewRegistry() *Registry {
	return &Registry{strategies: map[Kind]Strategy{
		KindPercentOffCategory: PercentOffCategory{},
		KindBuyXGetY:           BuyXGetY{},
	}}
}

// Register adds or replaces the strategy for a kind.
func (r *Registry) Register(kind Kind, s Strategy) {
	if r.strategies == nil {
		r.strategies = map[Kind]Strategy{}
	}
	r.strategies[kind] = s
}

// Lookup returns the strategy for the kind, if any.
func (r *Registry) Lookup(kind Kind) (Strategy, bool) {
	s, ok := r.strategies[kind]
	return s, ok
}
