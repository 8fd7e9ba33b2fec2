// Package domain contains the client book: the companies and people a tenant
// produces work for.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client is a customer record owned by one organization.
type Client struct {
	ID      snowflake.ID `gorm:"primaryKey"`
	OrgID   snowflake.ID `gorm:"not null;index"`
	Name    string       `gorm:"type:text;not null"`
	Company *string      `gorm:"type:text"`
	Email   *string      `gorm:"type:text"`
	Phone   *string      `gorm:"type:text"`
	Notes   *string      `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Client) TableName() string { return "clients" }

var (
	ErrNotFound            = errors.New("client_not_found")
	ErrInvalidName         = errors.New("invalid_client_name")
	ErrInvalidOrganization = errors.New("invalid_organization")
)

// CreateRequest carries the fields of a new client.
type CreateRequest struct {
	Name    string  `json:"name"`
	Company *string `json:"company"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Notes   *string `json:"notes"`
}

// UpdateRequest carries partial client updates.
type UpdateRequest struct {
	Name    *string `json:"name"`
	Company *string `json:"company"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Notes   *string `json:"notes"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Client, error)
	Get(ctx context.Context, id string) (Client, error)
	List(ctx context.Context) ([]Client, error)
	Update(ctx context.Context, id string, req UpdateRequest) (Client, error)
	Delete(ctx context.Context, id string) error
}
