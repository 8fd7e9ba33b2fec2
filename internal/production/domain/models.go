// Package domain contains the production aggregate: the financial root and
// its owned children (items, expenses, crew assignments).
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

// Status represents lifecycle states for a production.
type Status string

const (
	StatusDraft        Status = "draft"
	StatusProposalSent Status = "proposal_sent"
	StatusApproved     Status = "approved"
	StatusInProgress   Status = "in_progress"
	StatusCompleted    Status = "completed"
	StatusCanceled     Status = "canceled"
)

// ActiveStatuses are the states counted against the plan's active-production
// ceiling.
var ActiveStatuses = []Status{StatusApproved, StatusInProgress}

// ParseStatus validates a caller-supplied status string.
func ParseStatus(value string) (Status, bool) {
	switch Status(value) {
	case StatusDraft, StatusProposalSent, StatusApproved, StatusInProgress, StatusCompleted, StatusCanceled:
		return Status(value), true
	}
	return "", false
}

// IsActive reports whether the status counts against the active-production
// ceiling.
func (s Status) IsActive() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// Production is the financial aggregate root for one shoot/job. The five
// derived fields (subtotal, tax_amount, total_value, total_cost, profit) are
// recalculated after every child or discount/tax mutation and are never
// accepted from callers as source of truth.
type Production struct {
	ID       snowflake.ID  `gorm:"primaryKey"`
	OrgID    snowflake.ID  `gorm:"not null;index"`
	ClientID *snowflake.ID `gorm:"index"`
	Title    string        `gorm:"type:text;not null"`
	Status   Status        `gorm:"type:text;not null;default:draft"`
	Deadline *time.Time    `gorm:""`
	Priority *string       `gorm:"type:text"`
	Notes    *string       `gorm:"type:text"`

	// Financial fields, all in minor units. TaxRateBps nil means "inherit
	// the organization default"; an explicit 0 is preserved.
	Subtotal   int64  `gorm:"not null;default:0"`
	Discount   int64  `gorm:"not null;default:0"`
	TaxRateBps *int64 `gorm:""`
	TaxAmount  int64  `gorm:"not null;default:0"`
	TotalValue int64  `gorm:"not null;default:0"`
	TotalCost  int64  `gorm:"not null;default:0"`
	Profit     int64  `gorm:"not null;default:0"`

	PaymentMethod *string    `gorm:"type:text"`
	PaymentStatus string     `gorm:"type:text;not null;default:pending"`
	DueDate       *time.Time `gorm:""`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Production) TableName() string { return "productions" }

// Item is a billable line item. TotalPrice is derived from quantity and unit
// price at the edge and stored in minor units.
type Item struct {
	ID           snowflake.ID  `gorm:"primaryKey"`
	OrgID        snowflake.ID  `gorm:"not null;index"`
	ProductionID snowflake.ID  `gorm:"not null;index"`
	ServiceID    *snowflake.ID `gorm:"index"`
	Name         string        `gorm:"type:text;not null"`
	Quantity     float64       `gorm:"not null;default:1"`
	UnitPrice    int64         `gorm:"not null"`
	TotalPrice   int64         `gorm:"not null"`
}

// TableName sets the database table name.
func (Item) TableName() string { return "production_items" }

// Expense is a cost borne by the production.
type Expense struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	OrgID        snowflake.ID `gorm:"not null;index"`
	ProductionID snowflake.ID `gorm:"not null;index"`
	Name         string       `gorm:"type:text;not null"`
	Value        int64        `gorm:"not null"`
	Category     *string      `gorm:"type:text"`
	PaidBy       *string      `gorm:"type:text"`
}

// TableName sets the database table name.
func (Expense) TableName() string { return "expenses" }

// CrewMember assigns an organization member to a production for a fee.
// MemberID is the single opaque member identity. Fee may be unset; an unset
// fee contributes 0 to total cost.
type CrewMember struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	OrgID        snowflake.ID `gorm:"not null;index"`
	ProductionID snowflake.ID `gorm:"not null;index"`
	MemberID     uuid.UUID    `gorm:"type:uuid;not null;index"`
	Role         string       `gorm:"type:text;not null"`
	Fee          *int64       `gorm:""`
}

// TableName sets the database table name.
func (CrewMember) TableName() string { return "production_crew" }

// Totals are the five derived financial fields plus the rate they were
// computed with.
type Totals struct {
	Subtotal         int64 `json:"subtotal"`
	TaxAmount        int64 `json:"tax_amount"`
	TotalValue       int64 `json:"total_value"`
	TotalCost        int64 `json:"total_cost"`
	Profit           int64 `json:"profit"`
	EffectiveRateBps int64 `json:"-"`
}
