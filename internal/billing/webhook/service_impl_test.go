package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stripe/stripe-go/v79"
	stripewebhook "github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
	"github.com/framehaus/callsheet/internal/config"
	orgdomain "github.com/framehaus/callsheet/internal/organization/domain"
)

const testSecret = "whsec_test_secret"

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	ddl := []string{
		`CREATE TABLE organizations (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			tax_id TEXT,
			phone TEXT,
			email TEXT,
			address TEXT,
			default_tax_rate_bps INTEGER NOT NULL DEFAULT 0,
			subscription_plan TEXT NOT NULL DEFAULT 'free',
			subscription_status TEXT NOT NULL DEFAULT 'trialing',
			trial_ends_at DATETIME,
			subscription_ends_at DATETIME,
			billing_id TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE processed_billing_events (
			id INTEGER PRIMARY KEY,
			provider TEXT NOT NULL,
			provider_event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			org_id INTEGER,
			payload TEXT,
			processed_at DATETIME NOT NULL,
			UNIQUE (provider, provider_event_id)
		)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) billingdomain.WebhookService {
	t.Helper()

	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	svc, err := NewService(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Node: node,
		Cfg: config.Config{
			Stripe: config.StripeConfig{
				WebhookSecret:    testSecret,
				WebhookTolerance: 5 * time.Minute,
			},
			ProcessedEventCacheSize: 16,
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedOrg(t *testing.T, db *gorm.DB, id int64, billingID string) {
	t.Helper()
	var billing any
	if billingID != "" {
		billing = billingID
	}
	err := db.Exec(
		`INSERT INTO organizations (id, name, subscription_plan, subscription_status, trial_ends_at, billing_id)
		 VALUES (?, 'Studio', 'free', 'trialing', ?, ?)`,
		id, time.Now().Add(24*time.Hour).UTC(), billing,
	).Error
	if err != nil {
		t.Fatalf("seed org: %v", err)
	}
}

func loadOrg(t *testing.T, db *gorm.DB, id int64) orgdomain.Organization {
	t.Helper()
	var org orgdomain.Organization
	if err := db.First(&org, "id = ?", id).Error; err != nil {
		t.Fatalf("load org: %v", err)
	}
	return org
}

func signedEvent(t *testing.T, eventID, eventType string, object map[string]any) ([]byte, string) {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":          eventID,
		"type":        eventType,
		"api_version": stripe.APIVersion,
		"created":     time.Now().Unix(),
		"data":        map[string]any{"object": object},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return payload, signed.Header
}

func countProcessed(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&billingdomain.ProcessedEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count processed: %v", err)
	}
	return count
}

func TestRejectsBadSignature(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	payload, _ := signedEvent(t, "evt_sig", "checkout.session.completed", map[string]any{"id": "cs_1"})
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_wrong",
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	err := svc.HandleEvent(context.Background(), payload, signed.Header)
	if !errors.Is(err, billingdomain.ErrSignatureVerification) {
		t.Fatalf("expected ErrSignatureVerification, got %v", err)
	}
	if countProcessed(t, db) != 0 {
		t.Fatal("rejected event must not be marked processed")
	}
}

func TestCheckoutCompletedActivates(t *testing.T) {
	db := newTestDB(t)
	seedOrg(t, db, 500, "")
	svc := newTestService(t, db)

	periodEnd := time.Now().Add(45 * 24 * time.Hour).Unix()
	payload, header := signedEvent(t, "evt_checkout_1", "checkout.session.completed", map[string]any{
		"id":             "cs_1",
		"customer":       "cus_500",
		"payment_status": "paid",
		"subscription":   map[string]any{"id": "sub_9", "current_period_end": periodEnd},
		"metadata":       map[string]any{"org_id": "500", "plan": "starter"},
	})
	if err := svc.HandleEvent(context.Background(), payload, header); err != nil {
		t.Fatalf("handle: %v", err)
	}

	org := loadOrg(t, db, 500)
	if org.SubscriptionStatus != billingdomain.StatusActive {
		t.Fatalf("status = %s, want active", org.SubscriptionStatus)
	}
	if org.SubscriptionPlan != billingdomain.PlanStarter {
		t.Fatalf("plan = %s, want starter", org.SubscriptionPlan)
	}
	if org.BillingID == nil || *org.BillingID != "cus_500" {
		t.Fatalf("billing_id = %v, want cus_500", org.BillingID)
	}
	if org.TrialEndsAt != nil {
		t.Fatal("trial window must be cleared on activation")
	}
	if org.SubscriptionEndsAt == nil || org.SubscriptionEndsAt.Unix() != periodEnd {
		t.Fatalf("subscription_ends_at = %v, want %d", org.SubscriptionEndsAt, periodEnd)
	}
	// One marker for the event id, one for the checkout session id.
	if countProcessed(t, db) != 2 {
		t.Fatalf("processed markers = %d, want 2", countProcessed(t, db))
	}
}

func TestCheckoutCompletedWithoutPeriodEndDefaultsToOnePeriod(t *testing.T) {
	db := newTestDB(t)
	seedOrg(t, db, 510, "")
	svc := newTestService(t, db)

	payload, header := signedEvent(t, "evt_checkout_noend", "checkout.session.completed", map[string]any{
		"id":             "cs_noend",
		"customer":       "cus_510",
		"payment_status": "paid",
		"metadata":       map[string]any{"org_id": "510", "plan": "pro"},
	})
	before := time.Now().UTC()
	if err := svc.HandleEvent(context.Background(), payload, header); err != nil {
		t.Fatalf("handle: %v", err)
	}

	org := loadOrg(t, db, 510)
	if org.SubscriptionEndsAt == nil {
		t.Fatal("activation must always set a paid-through date")
	}
	lo := before.Add(29 * 24 * time.Hour)
	hi := before.Add(31 * 24 * time.Hour)
	if org.SubscriptionEndsAt.Before(lo) || org.SubscriptionEndsAt.After(hi) {
		t.Fatalf("subscription_ends_at = %v, want about 30 days from now", org.SubscriptionEndsAt)
	}
}

func TestCheckoutCompletedUnpaidIsNoOpButProcessed(t *testing.T) {
	db := newTestDB(t)
	seedOrg(t, db, 501, "")
	svc := newTestService(t, db)

	payload, header := signedEvent(t, "evt_checkout_unpaid", "checkout.session.completed", map[string]any{
		"id":             "cs_2",
		"customer":       "cus_501",
		"payment_status": "unpaid",
		"metadata":       map[string]any{"org_id": "501", "plan": "pro"},
	})
	if err := svc.HandleEvent(context.Background(), payload, header); err != nil {
		t.Fatalf("handle: %v", err)
	}

	org := loadOrg(t, db, 501)
	if org.SubscriptionStatus != billingdomain.StatusTrialing || org.SubscriptionPlan != billingdomain.PlanFree {
		t.Fatalf("unpaid checkout changed state: %+v", org)
	}
	if countProcessed(t, db) != 1 {
		t.Fatal("unpaid checkout must still settle the event id")
	}

	// Redelivery of the settled no-op is a duplicate.
	err := svc.HandleEvent(context.Background(), payload, header)
	if !errors.Is(err, billingdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected ErrEventAlreadyProcessed, got %v", err)
	}
}

func TestDuplicateDeliverySurvivesRestart(t *testing.T) {
	db := newTestDB(t)
	seedOrg(t, db, 502, "")
	svc := newTestService(t, db)

	payload, header := signedEvent(t, "evt_dup", "checkout.session.completed", map[string]any{
		"id":             "cs_3",
		"customer":       "cus_502",
		"payment_status": "paid",
		"metadata":       map[string]any{"org_id": "502", "plan": "pro"},
	})
	if err := svc.HandleEvent(context.Background(), payload, header); err != nil {
		t.Fatalf("handle: %v", err)
	}

	// Same process: the cache short-circuits.
	if err := svc.HandleEvent(context.Background(), payload, header); !errors.Is(err, billingdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected cache duplicate, got %v", err)
	}

	// Fresh process with an empty cache: the marker table still dedupes.
	restarted := newTestService(t, db)
	if err := restarted.HandleEvent(context.Background(), payload, header); !errors.Is(err, billingdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected durable duplicate, got %v", err)
	}
	if countProcessed(t, db) != 2 {
		t.Fatalf("processed markers = %d, want 2", countProcessed(t, db))
	}
}

func TestCorrelatedCheckoutEventsDeduplicateBySession(t *testing.T) {
	db := newTestDB(t)
	seedOrg(t, db, 511, "")
	svc := newTestService(t, db)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	object := map[string]any{
		"id":             "cs_shared",
		"customer":       "cus_511",
		"payment_status": "paid",
		"subscription":   map[string]any{"id": "sub_11", "current_period_end": periodEnd},
		"metadata":       map[string]any{"org_id": "511", "plan": "pro"},
	}

	first, firstHeader := signedEvent(t, "evt_corr_1", "checkout.session.completed", object)
	if err := svc.HandleEvent(context.Background(), first, firstHeader); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	applied := loadOrg(t, db, 511)

	// A correlated delivery carries a fresh event id but the same session.
	second, secondHeader := signedEvent(t, "evt_corr_2", "checkout.session.completed", object)
	if err := svc.HandleEvent(context.Background(), second, secondHeader); !errors.Is(err, billingdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected session duplicate, got %v", err)
	}

	// Same session, fresh process: the durable session marker still holds.
	restarted := newTestService(t, db)
	third, thirdHeader := signedEvent(t, "evt_corr_3", "checkout.session.completed", object)
	if err := restarted.HandleEvent(context.Background(), third, thirdHeader); !errors.Is(err, billingdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected durable session duplicate, got %v", err)
	}

	org := loadOrg(t, db, 511)
	if org.SubscriptionEndsAt == nil || !org.SubscriptionEndsAt.Equal(*applied.SubscriptionEndsAt) {
		t.Fatalf("correlated delivery shifted subscription_ends_at: %v -> %v", applied.SubscriptionEndsAt, org.SubscriptionEndsAt)
	}
	if countProcessed(t, db) != 2 {
		t.Fatalf("processed markers = %d, want 2", countProcessed(t, db))
	}
}

func TestApplyFailureLeavesEventUnprocessed(t *testing.T) {
	db := newTestDB(t)
	seedOrg(t, db, 512, "")
	svc := newTestService(t, db)

	payload, header := signedEvent(t, "evt_dbfail", "checkout.session.completed", map[string]any{
		"id":             "cs_dbfail",
		"customer":       "cus_512",
		"payment_status": "paid",
		"metadata":       map[string]any{"org_id": "512", "plan": "starter"},
	})

	if err := db.Exec(`ALTER TABLE organizations RENAME TO organizations_offline`).Error; err != nil {
		t.Fatalf("take table offline: %v", err)
	}

	err := svc.HandleEvent(context.Background(), payload, header)
	if err == nil || errors.Is(err, billingdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected transient failure, got %v", err)
	}
	if countProcessed(t, db) != 0 {
		t.Fatal("failed event must stay unprocessed so the provider retry can re-drive it")
	}

	if err := db.Exec(`ALTER TABLE organizations_offline RENAME TO organizations`).Error; err != nil {
		t.Fatalf("restore table: %v", err)
	}

	// The provider redelivers the identical payload after the outage.
	if err := svc.HandleEvent(context.Background(), payload, header); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
	org := loadOrg(t, db, 512)
	if org.SubscriptionStatus != billingdomain.StatusActive || org.SubscriptionPlan != billingdomain.PlanStarter {
		t.Fatalf("retry did not apply: %+v", org)
	}
}

func TestSubscriptionUpdatedSyncsProviderStatus(t *testing.T) {
	db := newTestDB(t)
	seedOrg(t, db, 503, "cus_503")
	svc := newTestService(t, db)

	periodEnd := time.Now().Add(30 * 24 * time.Hour).Unix()
	payload, header := signedEvent(t, "evt_sub_upd", "customer.subscription.updated", map[string]any{
		"id":                 "sub_1",
		"customer":           "cus_503",
		"status":             "past_due",
		"current_period_end": periodEnd,
	})
	if err := svc.HandleEvent(context.Background(), payload, header); err != nil {
		t.Fatalf("handle: %v", err)
	}

	org := loadOrg(t, db, 503)
	if org.SubscriptionStatus != billingdomain.StatusPastDue {
		t.Fatalf("status = %s, want past_due", org.SubscriptionStatus)
	}
	if org.SubscriptionEndsAt == nil || org.SubscriptionEndsAt.Unix() != periodEnd {
		t.Fatalf("subscription_ends_at = %v, want %d", org.SubscriptionEndsAt, periodEnd)
	}
}

func TestSubscriptionDeletedCancels(t *testing.T) {
	db := newTestDB(t)
	seedOrg(t, db, 504, "cus_504")
	svc := newTestService(t, db)

	endedAt := time.Now().Unix()
	payload, header := signedEvent(t, "evt_sub_del", "customer.subscription.deleted", map[string]any{
		"id":       "sub_2",
		"customer": "cus_504",
		"status":   "canceled",
		"ended_at": endedAt,
	})
	if err := svc.HandleEvent(context.Background(), payload, header); err != nil {
		t.Fatalf("handle: %v", err)
	}

	org := loadOrg(t, db, 504)
	if org.SubscriptionStatus != billingdomain.StatusCanceled {
		t.Fatalf("status = %s, want canceled", org.SubscriptionStatus)
	}
	if org.SubscriptionEndsAt == nil || org.SubscriptionEndsAt.Unix() != endedAt {
		t.Fatalf("subscription_ends_at = %v, want %d", org.SubscriptionEndsAt, endedAt)
	}
}

func TestInvoicePaymentFailedMarksPastDue(t *testing.T) {
	db := newTestDB(t)
	seedOrg(t, db, 505, "cus_505")
	svc := newTestService(t, db)

	payload, header := signedEvent(t, "evt_inv_fail", "invoice.payment_failed", map[string]any{
		"id":       "in_1",
		"customer": "cus_505",
	})
	if err := svc.HandleEvent(context.Background(), payload, header); err != nil {
		t.Fatalf("handle: %v", err)
	}

	org := loadOrg(t, db, 505)
	if org.SubscriptionStatus != billingdomain.StatusPastDue {
		t.Fatalf("status = %s, want past_due", org.SubscriptionStatus)
	}
}

func TestUnknownEventTypeAcknowledged(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	payload, header := signedEvent(t, "evt_unknown", "customer.created", map[string]any{
		"id": "cus_new",
	})
	if err := svc.HandleEvent(context.Background(), payload, header); err != nil {
		t.Fatalf("unknown type must be acknowledged: %v", err)
	}
	if countProcessed(t, db) != 1 {
		t.Fatal("unknown event must be marked processed")
	}
}

func TestUnresolvedOrganizationAcknowledged(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	payload, header := signedEvent(t, "evt_orphan", "invoice.payment_failed", map[string]any{
		"id":       "in_2",
		"customer": "cus_unknown",
	})
	if err := svc.HandleEvent(context.Background(), payload, header); err != nil {
		t.Fatalf("unresolved org must be acknowledged: %v", err)
	}
	if countProcessed(t, db) != 1 {
		t.Fatal("unresolved event must be marked processed")
	}
}
