package pricing

import "testing"

func TestSubtotalSkipsNonPositiveQty(t *testing.T) {
	items := []Item{
		{Qty: 2, UnitPrice: 10_000},
		{Qty: 0, UnitPrice: 99_999},
		{Qty: -1, UnitPrice: 50_000},
		{Qty: 3, UnitPrice: 2_500},
	}
	if got := Subtotal(items); got != 27_500 {
		t.Fatalf("expected subtotal 27500, got %d", got)
	}
}

func TestPercentOfRoundsHalfUp(t *testing.T) {
	cases := []struct {
		amount Money
		bps    int32
		want   Money
	}{
		{10_000, 2000, 2_000}, // 20% of 100.00 = 20.00
		{999, 1000, 100},      // 9.99 * 10% = 0.999 -> 1.00
		{125, 1000, 13},       // 1.25 * 10% = 0.125 -> 0.13 (half-up)
		{124, 1000, 12},       // 1.24 * 10% = 0.124 -> 0.12
		{100, 50, 1},          // 1.00 * 0.5% = 0.005 -> 0.01
		{0, 2000, 0},
		{10_000, 0, 0},
		{-500, 2000, 0},
	}
	for _, tc := range cases {
		if got := PercentOf(tc.amount, tc.bps); got != tc.want {
			t.Fatalf("PercentOf(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
		}
	}
}

func TestComputeFloorsTotalAtZero(t *testing.T) {
	summary := Compute(5_000, 8_000)
	if summary.Total != 0 {
		t.Fatalf("expected total 0, got %d", summary.Total)
	}
	if summary.Subtotal != 5_000 || summary.Discount != 8_000 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestComputeTotalMatchesSubtotalMinusDiscount(t *testing.T) {
	summary := Compute(100_000, 20_000)
	if summary.Total != 80_000 {
		t.Fatalf("expected total 80000, got %d", summary.Total)
	}
	if summary.Total != summary.Subtotal-summary.Discount {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
