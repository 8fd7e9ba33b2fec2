// Package domain contains organization membership. A member is one person in
// one organization; the UUID id is the identity referenced by crew
// assignments.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// Role is the member's permission tier inside the organization.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// ParseRole validates a caller-supplied role string. Owner is assigned only
// at registration and cannot be requested.
func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAdmin, RoleMember:
		return Role(value), true
	}
	return "", false
}

// Member is one person inside one organization.
type Member struct {
	ID           uuid.UUID    `gorm:"type:uuid;primaryKey"`
	OrgID        snowflake.ID `gorm:"not null;index;uniqueIndex:ux_members_org_email"`
	Email        string       `gorm:"type:text;not null;uniqueIndex:ux_members_org_email"`
	Name         string       `gorm:"type:text;not null"`
	Role         Role         `gorm:"type:text;not null;default:member"`
	PasswordHash string       `gorm:"type:text;not null" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "members" }

var (
	ErrNotFound            = errors.New("member_not_found")
	ErrEmailTaken          = errors.New("member_email_taken")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidName         = errors.New("invalid_member_name")
	ErrInvalidRole         = errors.New("invalid_member_role")
	ErrInvalidPassword     = errors.New("invalid_password")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrCannotRemoveOwner   = errors.New("cannot_remove_owner")
)

// CreateRequest invites one collaborator into the organization.
type CreateRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// UpdateRequest carries partial member updates.
type UpdateRequest struct {
	Name *string `json:"name"`
	Role *string `json:"role"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Member, error)
	Get(ctx context.Context, id string) (Member, error)
	List(ctx context.Context) ([]Member, error)
	Update(ctx context.Context, id string, req UpdateRequest) (Member, error)
	Delete(ctx context.Context, id string) error
}
