// Package finance implements the financial recalculation math as a pure
// function of the production's current child state. All amounts are integer
// minor units; rates are basis points.
package finance

import (
	"github.com/framehaus/callsheet/internal/production/domain"
	"github.com/framehaus/callsheet/pkg/money"
)

// Inputs are the recalculation inputs loaded by the caller inside its
// transaction.
type Inputs struct {
	ItemTotals    []int64
	ExpenseValues []int64
	CrewFees      []*int64

	Discount int64

	// TaxRateBps nil means the production inherits DefaultTaxRateBps; an
	// explicit zero is preserved.
	TaxRateBps        *int64
	DefaultTaxRateBps int64
}

// Result carries the derived totals plus the corrections that were applied.
type Result struct {
	Totals domain.Totals

	// AppliedDiscount is the discount after clamping to subtotal.
	AppliedDiscount int64
	// DiscountClamped reports that the stored discount exceeded the
	// subtotal and was capped. Recoverable; the caller logs a warning.
	DiscountClamped bool
}

// Compute derives subtotal, tax, total value, total cost and profit.
// Negative child amounts and out-of-range rates fail with a
// *domain.CalculationError; they indicate an upstream invariant violation
// and must never be persisted. Computing twice on unchanged inputs yields
// identical results.
func Compute(in Inputs) (Result, error) {
	var subtotal int64
	for _, total := range in.ItemTotals {
		if total < 0 {
			return Result{}, &domain.CalculationError{
				Field:  "item.total_price",
				Value:  total,
				Reason: "negative item amount",
			}
		}
		subtotal += total
	}

	var totalCost int64
	for _, value := range in.ExpenseValues {
		if value < 0 {
			return Result{}, &domain.CalculationError{
				Field:  "expense.value",
				Value:  value,
				Reason: "negative expense amount",
			}
		}
		totalCost += value
	}
	for _, fee := range in.CrewFees {
		if fee == nil {
			continue
		}
		if *fee < 0 {
			return Result{}, &domain.CalculationError{
				Field:  "crew.fee",
				Value:  *fee,
				Reason: "negative crew fee",
			}
		}
		totalCost += *fee
	}

	rate := in.DefaultTaxRateBps
	if in.TaxRateBps != nil {
		rate = *in.TaxRateBps
	}
	if !money.ValidRateBps(rate) {
		return Result{}, &domain.CalculationError{
			Field:  "tax_rate_bps",
			Value:  rate,
			Reason: "tax rate out of range",
		}
	}

	if in.Discount < 0 {
		return Result{}, &domain.CalculationError{
			Field:  "discount",
			Value:  in.Discount,
			Reason: "negative discount",
		}
	}
	discount, clamped := money.ClampDiscount(subtotal, in.Discount)

	taxableBase := subtotal - discount
	taxAmount := money.ApplyRateBps(taxableBase, rate)
	totalValue := taxableBase + taxAmount
	// Profit excludes collected tax but reflects the discount's hit on
	// revenue. It may legitimately be negative.
	profit := (totalValue - taxAmount) - totalCost

	// Unreachable given the clamp order; treated as a programming-invariant
	// violation rather than user input error.
	for _, check := range []struct {
		field string
		value int64
	}{
		{"subtotal", subtotal},
		{"tax_amount", taxAmount},
		{"total_value", totalValue},
	} {
		if check.value < 0 {
			return Result{}, &domain.CalculationError{
				Field:  check.field,
				Value:  check.value,
				Reason: "derived total negative",
			}
		}
	}

	return Result{
		Totals: domain.Totals{
			Subtotal:         subtotal,
			TaxAmount:        taxAmount,
			TotalValue:       totalValue,
			TotalCost:        totalCost,
			Profit:           profit,
			EffectiveRateBps: rate,
		},
		AppliedDiscount: discount,
		DiscountClamped: clamped,
	}, nil
}
