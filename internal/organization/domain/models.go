// Package domain contains the tenant model. The subscription_* fields are
// written only by owner registration and the billing webhook applier.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
)

// Organization is the tenant and billing subject.
type Organization struct {
	ID      snowflake.ID `gorm:"primaryKey"`
	Name    string       `gorm:"type:text;not null"`
	TaxID   *string      `gorm:"type:text"`
	Phone   *string      `gorm:"type:text"`
	Email   *string      `gorm:"type:text"`
	Address *string      `gorm:"type:text"`

	// DefaultTaxRateBps is inherited by productions whose own tax rate was
	// never set. Basis points, 0..10000.
	DefaultTaxRateBps int64 `gorm:"not null;default:0"`

	SubscriptionPlan   billingdomain.Plan   `gorm:"type:text;not null;default:free"`
	SubscriptionStatus billingdomain.Status `gorm:"type:text;not null;default:trialing"`
	TrialEndsAt        *time.Time           `gorm:""`
	SubscriptionEndsAt *time.Time           `gorm:""`
	BillingID          *string              `gorm:"type:text;index"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// LicenseValid reports whether the organization may use paid features at now.
func (o Organization) LicenseValid(now time.Time) bool {
	return billingdomain.LicenseValid(o.SubscriptionStatus, o.TrialEndsAt, now)
}
