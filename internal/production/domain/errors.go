package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("production_not_found")
	ErrItemNotFound         = errors.New("production_item_not_found")
	ErrExpenseNotFound      = errors.New("expense_not_found")
	ErrCrewMemberNotFound   = errors.New("crew_member_not_found")
	ErrOrganizationNotFound = errors.New("organization_not_found")
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidTitle         = errors.New("invalid_title")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidTaxRate       = errors.New("invalid_tax_rate")
	ErrInvalidDiscount      = errors.New("invalid_discount")
	ErrInvalidRole          = errors.New("invalid_role")
	ErrInvalidMember        = errors.New("invalid_member")
	ErrInvalidName          = errors.New("invalid_name")
)

// CalculationError means a recalculation input or result violated a
// financial invariant. Negative amounts must never reach the engine; they
// indicate an upstream bug, so the error is surfaced and never retried.
type CalculationError struct {
	Field  string
	Value  int64
	Reason string
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("financial calculation failed: %s (%s=%d)", e.Reason, e.Field, e.Value)
}
