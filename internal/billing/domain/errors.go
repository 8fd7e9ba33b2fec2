package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSignatureVerification means the webhook envelope failed signature
	// verification. Rejected immediately, never processed.
	ErrSignatureVerification = errors.New("invalid_webhook_signature")

	// ErrEventAlreadyProcessed means the provider event id was seen before.
	ErrEventAlreadyProcessed = errors.New("event_already_processed")

	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrCheckoutUnavailable  = errors.New("checkout_unavailable")
	ErrOrganizationNotFound = errors.New("organization_not_found")
)

// LimitExceededError is the typed entitlement denial. It carries enough
// context for the caller to render an upgrade prompt.
type LimitExceededError struct {
	Resource     string
	Plan         Plan
	Limit        int
	CurrentCount int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit reached for plan %s (max: %d, current: %d)",
		e.Resource, e.Plan, e.Limit, e.CurrentCount)
}
