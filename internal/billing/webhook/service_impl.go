// Package webhook applies billing provider events to organization
// subscription state. Signature verification is the only authentication on
// this path; every accepted event is applied at most once, enforced by a
// durable marker row written in the same transaction as the state change.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/stripe/stripe-go/v79"
	stripewebhook "github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
	"github.com/framehaus/callsheet/internal/config"
	"github.com/framehaus/callsheet/internal/observability/metrics"
	orgdomain "github.com/framehaus/callsheet/internal/organization/domain"
	"github.com/framehaus/callsheet/pkg/db"
)

const provider = "stripe"

const (
	outcomeApplied        = "applied"
	outcomeIgnored        = "ignored"
	outcomeOrgNotResolved = "org_not_resolved"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Node *snowflake.Node
	Cfg  config.Config
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	node      *snowflake.Node
	secret    string
	tolerance time.Duration

	// seen is a bounded fast path in front of the durable marker table. It
	// is only populated after commit, so a rolled-back event stays eligible
	// for redelivery.
	seen *lru.Cache[string, struct{}]
}

func NewService(p Params) (billingdomain.WebhookService, error) {
	size := p.Cfg.ProcessedEventCacheSize
	if size <= 0 {
		size = 4096
	}
	seen, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}

	return &Service{
		db:        p.DB,
		log:       p.Log.Named("billing.webhook"),
		node:      p.Node,
		secret:    strings.TrimSpace(p.Cfg.Stripe.WebhookSecret),
		tolerance: p.Cfg.Stripe.WebhookTolerance,
		seen:      seen,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, payload []byte, signatureHeader string) error {
	event, err := stripewebhook.ConstructEventWithTolerance(payload, signatureHeader, s.secret, s.tolerance)
	if err != nil {
		s.log.Warn("webhook signature verification failed", zap.Error(err))
		return billingdomain.ErrSignatureVerification
	}

	eventType := string(event.Type)
	key := provider + ":" + event.ID
	if s.seen.Contains(key) {
		metrics.App().IncWebhookDuplicate()
		s.log.Info("duplicate webhook delivery ignored",
			zap.String("provider_event_id", event.ID),
			zap.String("event_type", eventType),
		)
		return billingdomain.ErrEventAlreadyProcessed
	}

	outcome := outcomeApplied
	var extraKeys []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		marker := billingdomain.ProcessedEvent{
			ID:              s.node.Generate(),
			Provider:        provider,
			ProviderEventID: event.ID,
			EventType:       eventType,
			Payload:         datatypes.JSON(payload),
			ProcessedAt:     time.Now().UTC(),
		}
		if err := tx.WithContext(ctx).Create(&marker).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return billingdomain.ErrEventAlreadyProcessed
			}
			return err
		}

		orgID, applyErr := s.apply(ctx, tx, &event, &outcome, &extraKeys)
		if applyErr != nil {
			return applyErr
		}
		if orgID != 0 {
			return tx.WithContext(ctx).
				Model(&billingdomain.ProcessedEvent{}).
				Where("id = ?", marker.ID).
				Update("org_id", orgID).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, billingdomain.ErrEventAlreadyProcessed) {
			metrics.App().IncWebhookDuplicate()
			s.seen.Add(key, struct{}{})
			s.log.Info("duplicate webhook delivery ignored",
				zap.String("provider_event_id", event.ID),
				zap.String("event_type", eventType),
			)
			return err
		}
		// The marker was rolled back with the state change, so the provider
		// retry can succeed later.
		metrics.App().IncWebhookEvent(eventType, "error")
		s.log.Error("webhook apply failed",
			zap.String("provider_event_id", event.ID),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return err
	}

	s.seen.Add(key, struct{}{})
	for _, extra := range extraKeys {
		s.seen.Add(extra, struct{}{})
	}
	metrics.App().IncWebhookEvent(eventType, outcome)
	return nil
}

// apply routes one verified event. A nil return means the delivery is settled
// and must be acknowledged, even when no state changed.
func (s *Service) apply(ctx context.Context, tx *gorm.DB, event *stripe.Event, outcome *string, extraKeys *[]string) (snowflake.ID, error) {
	switch event.Type {
	case "checkout.session.completed":
		return s.applyCheckoutCompleted(ctx, tx, event, outcome, extraKeys)
	case "customer.subscription.updated":
		return s.applySubscriptionUpdated(ctx, tx, event, outcome)
	case "customer.subscription.deleted":
		return s.applySubscriptionDeleted(ctx, tx, event, outcome)
	case "invoice.payment_failed":
		return s.applyPaymentFailed(ctx, tx, event, outcome)
	default:
		*outcome = outcomeIgnored
		s.log.Info("unhandled webhook event type acknowledged",
			zap.String("provider_event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		)
		return 0, nil
	}
}

func (s *Service) applyCheckoutCompleted(ctx context.Context, tx *gorm.DB, event *stripe.Event, outcome *string, extraKeys *[]string) (snowflake.ID, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return 0, billingdomain.ErrInvalidPayload
	}

	orgRef := strings.TrimSpace(session.Metadata["org_id"])
	if orgRef == "" {
		orgRef = strings.TrimSpace(session.ClientReferenceID)
	}
	org, err := s.resolveOrg(ctx, tx, orgRef, "")
	if err != nil {
		return 0, err
	}
	if org == nil {
		*outcome = outcomeOrgNotResolved
		s.log.Warn("checkout session references no known organization",
			zap.String("provider_event_id", event.ID),
			zap.String("org_ref", orgRef),
		)
		return 0, nil
	}

	// A completed session with deferred payment grants nothing yet; the
	// paid session or a later subscription event activates.
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		*outcome = outcomeIgnored
		s.log.Info("checkout session completed without payment, no state change",
			zap.String("provider_event_id", event.ID),
			zap.String("org_id", org.ID.String()),
			zap.String("payment_status", string(session.PaymentStatus)),
		)
		return org.ID, nil
	}

	// The provider can reference one paid checkout from two correlated
	// deliveries with distinct event ids, so the session id is settled as a
	// marker of its own in the same transaction.
	if session.ID != "" {
		sessionKey := provider + ":session:" + session.ID
		if s.seen.Contains(sessionKey) {
			return 0, billingdomain.ErrEventAlreadyProcessed
		}
		marker := billingdomain.ProcessedEvent{
			ID:              s.node.Generate(),
			Provider:        provider,
			ProviderEventID: "session:" + session.ID,
			EventType:       string(event.Type),
			OrgID:           &org.ID,
			ProcessedAt:     time.Now().UTC(),
		}
		if err := tx.WithContext(ctx).Create(&marker).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return 0, billingdomain.ErrEventAlreadyProcessed
			}
			return 0, err
		}
		*extraKeys = append(*extraKeys, sessionKey)
	}

	plan, recognized := billingdomain.ParsePlan(session.Metadata["plan"])
	if !recognized {
		s.log.Warn("checkout session carries unrecognized plan, falling back to free",
			zap.String("provider_event_id", event.ID),
			zap.String("raw_plan", session.Metadata["plan"]),
		)
	}

	// Activation always carries a paid-through date: the subscription's
	// current period end when the session exposes it, else one period from
	// now until the next subscription event corrects it.
	endsAt := time.Now().UTC().Add(30 * 24 * time.Hour)
	if session.Subscription != nil && session.Subscription.CurrentPeriodEnd > 0 {
		endsAt = time.Unix(session.Subscription.CurrentPeriodEnd, 0).UTC()
	}

	updates := map[string]any{
		"subscription_plan":    plan,
		"subscription_status":  billingdomain.StatusActive,
		"trial_ends_at":        nil,
		"subscription_ends_at": endsAt,
		"updated_at":           time.Now().UTC(),
	}
	if session.Customer != nil && session.Customer.ID != "" {
		updates["billing_id"] = session.Customer.ID
	}
	if err := s.updateOrg(ctx, tx, org.ID, updates); err != nil {
		return 0, err
	}

	s.log.Info("subscription activated from checkout",
		zap.String("org_id", org.ID.String()),
		zap.String("plan", string(plan)),
	)
	return org.ID, nil
}

func (s *Service) applySubscriptionUpdated(ctx context.Context, tx *gorm.DB, event *stripe.Event, outcome *string) (snowflake.ID, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return 0, billingdomain.ErrInvalidPayload
	}

	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}
	org, err := s.resolveOrg(ctx, tx, strings.TrimSpace(sub.Metadata["org_id"]), customerID)
	if err != nil {
		return 0, err
	}
	if org == nil {
		*outcome = outcomeOrgNotResolved
		s.log.Warn("subscription event references no known organization",
			zap.String("provider_event_id", event.ID),
			zap.String("customer_id", customerID),
		)
		return 0, nil
	}

	// The provider is the source of truth: its reported status is written
	// verbatim, never inferred locally.
	status := mapSubscriptionStatus(sub.Status)
	updates := map[string]any{
		"subscription_status": status,
		"updated_at":          time.Now().UTC(),
	}
	if raw := strings.TrimSpace(sub.Metadata["plan"]); raw != "" {
		if plan, recognized := billingdomain.ParsePlan(raw); recognized {
			updates["subscription_plan"] = plan
		}
	}
	if sub.CurrentPeriodEnd > 0 {
		updates["subscription_ends_at"] = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if err := s.updateOrg(ctx, tx, org.ID, updates); err != nil {
		return 0, err
	}

	s.log.Info("subscription state synced",
		zap.String("org_id", org.ID.String()),
		zap.String("status", string(status)),
	)
	return org.ID, nil
}

func (s *Service) applySubscriptionDeleted(ctx context.Context, tx *gorm.DB, event *stripe.Event, outcome *string) (snowflake.ID, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return 0, billingdomain.ErrInvalidPayload
	}

	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}
	org, err := s.resolveOrg(ctx, tx, strings.TrimSpace(sub.Metadata["org_id"]), customerID)
	if err != nil {
		return 0, err
	}
	if org == nil {
		*outcome = outcomeOrgNotResolved
		s.log.Warn("subscription deletion references no known organization",
			zap.String("provider_event_id", event.ID),
			zap.String("customer_id", customerID),
		)
		return 0, nil
	}

	endedAt := time.Unix(event.Created, 0).UTC()
	if sub.EndedAt > 0 {
		endedAt = time.Unix(sub.EndedAt, 0).UTC()
	}
	updates := map[string]any{
		"subscription_status":  billingdomain.StatusCanceled,
		"subscription_ends_at": endedAt,
		"updated_at":           time.Now().UTC(),
	}
	if err := s.updateOrg(ctx, tx, org.ID, updates); err != nil {
		return 0, err
	}

	s.log.Info("subscription canceled",
		zap.String("org_id", org.ID.String()),
		zap.Time("ended_at", endedAt),
	)
	return org.ID, nil
}

func (s *Service) applyPaymentFailed(ctx context.Context, tx *gorm.DB, event *stripe.Event, outcome *string) (snowflake.ID, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return 0, billingdomain.ErrInvalidPayload
	}

	customerID := ""
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}
	org, err := s.resolveOrg(ctx, tx, "", customerID)
	if err != nil {
		return 0, err
	}
	if org == nil {
		*outcome = outcomeOrgNotResolved
		s.log.Warn("failed invoice references no known organization",
			zap.String("provider_event_id", event.ID),
			zap.String("customer_id", customerID),
		)
		return 0, nil
	}

	updates := map[string]any{
		"subscription_status": billingdomain.StatusPastDue,
		"updated_at":          time.Now().UTC(),
	}
	if err := s.updateOrg(ctx, tx, org.ID, updates); err != nil {
		return 0, err
	}

	s.log.Warn("subscription past due after failed payment",
		zap.String("org_id", org.ID.String()),
		zap.String("customer_id", customerID),
	)
	return org.ID, nil
}

// resolveOrg finds the organization by explicit metadata reference first,
// then by the provider customer id. A nil org with nil error means the event
// cannot be attributed and must be acknowledged without a state change.
func (s *Service) resolveOrg(ctx context.Context, tx *gorm.DB, orgRef, customerID string) (*orgdomain.Organization, error) {
	if orgRef != "" {
		id, err := snowflake.ParseString(orgRef)
		if err == nil {
			var org orgdomain.Organization
			err := tx.WithContext(ctx).First(&org, "id = ?", id).Error
			if err == nil {
				return &org, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	}

	if customerID != "" {
		var org orgdomain.Organization
		err := tx.WithContext(ctx).First(&org, "billing_id = ?", customerID).Error
		if err == nil {
			return &org, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	return nil, nil
}

func (s *Service) updateOrg(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, updates map[string]any) error {
	return tx.WithContext(ctx).
		Model(&orgdomain.Organization{}).
		Where("id = ?", orgID).
		Updates(updates).Error
}

func mapSubscriptionStatus(status stripe.SubscriptionStatus) billingdomain.Status {
	switch status {
	case stripe.SubscriptionStatusActive:
		return billingdomain.StatusActive
	case stripe.SubscriptionStatusTrialing:
		return billingdomain.StatusTrialing
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return billingdomain.StatusPastDue
	case stripe.SubscriptionStatusCanceled:
		return billingdomain.StatusCanceled
	default:
		return billingdomain.StatusIncomplete
	}
}
