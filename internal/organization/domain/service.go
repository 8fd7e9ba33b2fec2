package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound            = errors.New("organization_not_found")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidTaxRate      = errors.New("invalid_tax_rate")
)

// UpdateRequest carries the mutable profile fields. The tax rate arrives as
// a decimal percent string and is converted to basis points at the edge.
type UpdateRequest struct {
	Name           *string `json:"name"`
	TaxID          *string `json:"tax_id"`
	Phone          *string `json:"phone"`
	Email          *string `json:"email"`
	Address        *string `json:"address"`
	DefaultTaxRate *string `json:"default_tax_rate"`
}

type Service interface {
	Get(ctx context.Context) (Organization, error)
	GetByID(ctx context.Context, id snowflake.ID) (Organization, error)
	Update(ctx context.Context, req UpdateRequest) (Organization, error)
}
