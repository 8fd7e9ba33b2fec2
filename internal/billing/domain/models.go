package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ProcessedEvent is the durable idempotency marker for provider events. The
// unique index on (provider, provider_event_id) is written in the same
// transaction as the subscription-state change, so at-most-once application
// is enforced by the database rather than by process memory alone.
type ProcessedEvent struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	Provider        string         `gorm:"type:text;not null;uniqueIndex:ux_processed_billing_events_provider_event,priority:1"`
	ProviderEventID string         `gorm:"type:text;not null;uniqueIndex:ux_processed_billing_events_provider_event,priority:2"`
	EventType       string         `gorm:"type:text;not null"`
	OrgID           *snowflake.ID  `gorm:"index"`
	Payload         datatypes.JSON `gorm:"type:jsonb"`
	ProcessedAt     time.Time      `gorm:"not null"`
}

func (ProcessedEvent) TableName() string { return "processed_billing_events" }
