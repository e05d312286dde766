package promo

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/promoquoter/internal/catalog"
)

func newTestEngine() *Engine {
	return &Engine{Registry: NewRegistry(), Logger: zerolog.Nop()}
}

func TestEvaluateOrdersByPriority(t *testing.T) {
	target := uuid.New()
	products := map[uuid.UUID]catalog.Product{
		target: {ID: target, Name: "Monitor", Category: catalog.CategoryElectronics, Price: 10_000},
	}
	quantities := map[uuid.UUID]int32{target: 3}

	bundle := buyXGetYPromotion(target, 2, 1)
	bundle.Priority = 1
	percent := percentPromotion("ELECTRONICS", 1000)
	percent.Priority = 0

	result := newTestEngine().Evaluate([]Promotion{bundle, percent}, products, quantities)
	require.Len(t, result.Applied, 2)
	require.Equal(t, percent.ID, result.Applied[0].Promotion.ID)
	require.Equal(t, bundle.ID, result.Applied[1].Promotion.ID)
	// 10% of 300.00 plus one free unit at 100.00, additive.
	require.EqualValues(t, 13_000, result.TotalDiscount)
}

func TestEvaluatePriorityTiesPreserveInputOrder(t *testing.T) {
	target := uuid.New()
	products := map[uuid.UUID]catalog.Product{
		target: {ID: target, Category: catalog.CategoryElectronics, Price: 10_000},
	}
	quantities := map[uuid.UUID]int32{target: 3}

	first := percentPromotion("ELECTRONICS", 1000)
	second := buyXGetYPromotion(target, 2, 1)

	result := newTestEngine().Evaluate([]Promotion{second, first}, products, quantities)
	require.Len(t, result.Applied, 2)
	require.Equal(t, second.ID, result.Applied[0].Promotion.ID)
	require.Equal(t, first.ID, result.Applied[1].Promotion.ID)
}

func TestEvaluateSkipsInactiveAndUnknownKinds(t *testing.T) {
	target := uuid.New()
	products := map[uuid.UUID]catalog.Product{
		target: {ID: target, Category: catalog.CategoryElectronics, Price: 10_000},
	}
	quantities := map[uuid.UUID]int32{target: 3}

	inactive := percentPromotion("ELECTRONICS", 1000)
	inactive.Active = false
	unknown := Promotion{ID: uuid.New(), Name: "mystery", Kind: Kind("FLASH_SALE"), Active: true}
	valid := buyXGetYPromotion(target, 2, 1)

	result := newTestEngine().Evaluate([]Promotion{inactive, unknown, valid}, products, quantities)
	require.Len(t, result.Applied, 1)
	require.Equal(t, valid.ID, result.Applied[0].Promotion.ID)
	require.EqualValues(t, 10_000, result.TotalDiscount)
}

func TestEvaluateSkipsZeroDiscountPromotions(t *testing.T) {
	target := uuid.New()
	products := map[uuid.UUID]catalog.Product{
		target: {ID: target, Category: catalog.CategoryElectronics, Price: 10_000},
	}
	// Below the buy threshold, so the bundle yields zero and is not recorded.
	quantities := map[uuid.UUID]int32{target: 1}

	result := newTestEngine().Evaluate([]Promotion{buyXGetYPromotion(target, 2, 1)}, products, quantities)
	require.Empty(t, result.Applied)
	require.Zero(t, result.TotalDiscount)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	products := map[uuid.UUID]catalog.Product{
		a: {ID: a, Category: catalog.CategoryElectronics, Price: 33_333},
		b: {ID: b, Category: catalog.CategoryElectronics, Price: 7_777},
	}
	quantities := map[uuid.UUID]int32{a: 3, b: 5}
	promotions := []Promotion{
		percentPromotion("ELECTRONICS", 1250),
		buyXGetYPromotion(a, 2, 1),
		percentPromotion("ELECTRONICS", 500),
	}

	engine := newTestEngine()
	first := engine.Evaluate(promotions, products, quantities)
	second := engine.Evaluate(promotions, products, quantities)

	require.Equal(t, first.TotalDiscount, second.TotalDiscount)
	require.Equal(t, len(first.Applied), len(second.Applied))
	for i := range first.Applied {
		require.Equal(t, first.Applied[i].Promotion.ID, second.Applied[i].Promotion.ID)
		require.Equal(t, first.Applied[i].Discount, second.Applied[i].Discount)
		require.Equal(t, first.Applied[i].Description, second.Applied[i].Description)
	}
}
