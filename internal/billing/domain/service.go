package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// LicenseValid is the license predicate: an organization may use paid
// features iff it is actively subscribed or still inside an unexpired trial.
func LicenseValid(status Status, trialEndsAt *time.Time, now time.Time) bool {
	if status == StatusActive {
		return true
	}
	if status == StatusTrialing && trialEndsAt != nil && trialEndsAt.After(now) {
		return true
	}
	return false
}

// EntitlementService gates resource creation against the plan limit table.
// Checks are pre-write gates: they must run before the resource is persisted.
type EntitlementService interface {
	CheckCollaboratorLimit(ctx context.Context, orgID snowflake.ID) error
	CheckClientLimit(ctx context.Context, orgID snowflake.ID) error
	CheckActiveProductionLimit(ctx context.Context, orgID snowflake.ID) error
}

// WebhookService applies externally-delivered billing provider events to
// organization subscription state, idempotently per event id.
type WebhookService interface {
	HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error
}

// CheckoutService is a pass-through to the payment provider's hosted
// checkout and billing portal. It mutates no local state.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, orgID snowflake.ID, plan Plan) (string, error)
	CreatePortalSession(ctx context.Context, orgID snowflake.ID) (string, error)
}
