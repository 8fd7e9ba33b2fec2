package finance

import (
	"errors"
	"testing"

	"github.com/framehaus/callsheet/internal/production/domain"
)

func int64ptr(v int64) *int64 { return &v }

func TestComputeScenario(t *testing.T) {
	// items 120000 + 30000, expense 5000, crew fee 10000, 10% tax.
	result, err := Compute(Inputs{
		ItemTotals:    []int64{120000, 30000},
		ExpenseValues: []int64{5000},
		CrewFees:      []*int64{int64ptr(10000)},
		Discount:      0,
		TaxRateBps:    int64ptr(1000),
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	totals := result.Totals
	if totals.Subtotal != 150000 {
		t.Fatalf("subtotal = %d, want 150000", totals.Subtotal)
	}
	if totals.TaxAmount != 15000 {
		t.Fatalf("tax_amount = %d, want 15000", totals.TaxAmount)
	}
	if totals.TotalValue != 165000 {
		t.Fatalf("total_value = %d, want 165000", totals.TotalValue)
	}
	if totals.TotalCost != 15000 {
		t.Fatalf("total_cost = %d, want 15000", totals.TotalCost)
	}
	if totals.Profit != 150000 {
		t.Fatalf("profit = %d, want 150000", totals.Profit)
	}
	if result.DiscountClamped {
		t.Fatal("discount must not clamp")
	}
}

func TestComputeProfitIdentity(t *testing.T) {
	cases := []Inputs{
		{ItemTotals: []int64{100}, TaxRateBps: int64ptr(725)},
		{ItemTotals: []int64{99999, 1}, ExpenseValues: []int64{12345}, TaxRateBps: int64ptr(10000)},
		{ItemTotals: []int64{50000}, CrewFees: []*int64{int64ptr(1), nil, int64ptr(49999)}, Discount: 1000, TaxRateBps: int64ptr(0)},
		{ItemTotals: nil, ExpenseValues: []int64{500}, DefaultTaxRateBps: 1500},
		{ItemTotals: []int64{1}, Discount: 1, TaxRateBps: int64ptr(9999)},
	}

	for i, in := range cases {
		result, err := Compute(in)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		totals := result.Totals
		if totals.TotalValue-totals.TaxAmount-totals.TotalCost != totals.Profit {
			t.Fatalf("case %d: identity broken: total_value=%d tax=%d cost=%d profit=%d",
				i, totals.TotalValue, totals.TaxAmount, totals.TotalCost, totals.Profit)
		}
		if totals.TaxAmount < 0 || totals.TotalValue < 0 || totals.Subtotal < 0 {
			t.Fatalf("case %d: negative derived total", i)
		}
	}
}

func TestComputeDiscountClamp(t *testing.T) {
	// discount exceeds subtotal: clamp, do not fail.
	result, err := Compute(Inputs{
		ItemTotals:    []int64{100000},
		ExpenseValues: []int64{7000},
		Discount:      150000,
		TaxRateBps:    int64ptr(2000),
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !result.DiscountClamped {
		t.Fatal("expected discount clamp")
	}
	if result.AppliedDiscount != 100000 {
		t.Fatalf("applied discount = %d, want 100000", result.AppliedDiscount)
	}

	totals := result.Totals
	if totals.TaxAmount != 0 {
		t.Fatalf("tax_amount = %d, want 0", totals.TaxAmount)
	}
	if totals.TotalValue != 0 {
		t.Fatalf("total_value = %d, want 0", totals.TotalValue)
	}
	if totals.Profit != -7000 {
		t.Fatalf("profit = %d, want -7000", totals.Profit)
	}
}

func TestComputeNegativeInputs(t *testing.T) {
	cases := []struct {
		name  string
		in    Inputs
		field string
	}{
		{"negative item", Inputs{ItemTotals: []int64{-1}}, "item.total_price"},
		{"negative expense", Inputs{ExpenseValues: []int64{-500}}, "expense.value"},
		{"negative fee", Inputs{CrewFees: []*int64{int64ptr(-10)}}, "crew.fee"},
		{"negative discount", Inputs{ItemTotals: []int64{100}, Discount: -1}, "discount"},
		{"rate too high", Inputs{ItemTotals: []int64{100}, TaxRateBps: int64ptr(10001)}, "tax_rate_bps"},
		{"rate negative", Inputs{ItemTotals: []int64{100}, TaxRateBps: int64ptr(-1)}, "tax_rate_bps"},
		{"bad inherited rate", Inputs{ItemTotals: []int64{100}, DefaultTaxRateBps: 20000}, "tax_rate_bps"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compute(tc.in)
			var calcErr *domain.CalculationError
			if !errors.As(err, &calcErr) {
				t.Fatalf("expected CalculationError, got %v", err)
			}
			if calcErr.Field != tc.field {
				t.Fatalf("field = %q, want %q", calcErr.Field, tc.field)
			}
		})
	}
}

func TestComputeExplicitZeroRateNotInherited(t *testing.T) {
	// An explicit zero must not be overwritten by the organization default.
	result, err := Compute(Inputs{
		ItemTotals:        []int64{100000},
		TaxRateBps:        int64ptr(0),
		DefaultTaxRateBps: 1000,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if result.Totals.TaxAmount != 0 {
		t.Fatalf("tax_amount = %d, want 0 (explicit zero rate)", result.Totals.TaxAmount)
	}
	if result.Totals.EffectiveRateBps != 0 {
		t.Fatalf("effective rate = %d, want 0", result.Totals.EffectiveRateBps)
	}

	// Unset rate inherits the default.
	result, err = Compute(Inputs{
		ItemTotals:        []int64{100000},
		DefaultTaxRateBps: 1000,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if result.Totals.TaxAmount != 10000 {
		t.Fatalf("tax_amount = %d, want 10000 (inherited rate)", result.Totals.TaxAmount)
	}
}

func TestComputeIdempotent(t *testing.T) {
	in := Inputs{
		ItemTotals:    []int64{120000, 30000},
		ExpenseValues: []int64{5000},
		CrewFees:      []*int64{int64ptr(10000)},
		Discount:      20000,
		TaxRateBps:    int64ptr(1050),
	}

	first, err := Compute(in)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := Compute(in)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if first != second {
		t.Fatalf("compute not idempotent: %+v vs %+v", first, second)
	}
}
