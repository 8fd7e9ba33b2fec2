package signup

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
	"github.com/framehaus/callsheet/internal/config"
	memberdomain "github.com/framehaus/callsheet/internal/member/domain"
	"github.com/framehaus/callsheet/internal/signup/domain"
)

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
		`CREATE TABLE members (
			id TEXT PRIMARY KEY,
			org_id INTEGER NOT NULL,
			email TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (org_id, email)
		)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return NewService(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Node: node,
		Cfg:  config.Config{TrialPeriodDays: 14},
	})
}

func TestSignupProvisionsTrialTenant(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	result, err := svc.Signup(context.Background(), domain.Request{
		OrgName:  "Framehaus Films",
		Name:     "Ada Owner",
		Email:    "Ada@Example.com",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}

	org := result.Organization
	if org.SubscriptionPlan != billingdomain.PlanFree {
		t.Fatalf("plan = %s, want free", org.SubscriptionPlan)
	}
	if org.SubscriptionStatus != billingdomain.StatusTrialing {
		t.Fatalf("status = %s, want trialing", org.SubscriptionStatus)
	}
	if org.TrialEndsAt == nil {
		t.Fatal("trial window missing")
	}
	days := time.Until(*org.TrialEndsAt).Hours() / 24
	if days < 13 || days > 15 {
		t.Fatalf("trial window = %.1f days, want ~14", days)
	}
	if !org.LicenseValid(time.Now().UTC()) {
		t.Fatal("fresh trial must be licensed")
	}

	owner := result.Owner
	if owner.Role != memberdomain.RoleOwner {
		t.Fatalf("role = %s, want owner", owner.Role)
	}
	if owner.Email != "ada@example.com" {
		t.Fatalf("email = %s, want normalized lowercase", owner.Email)
	}
	if owner.OrgID != org.ID {
		t.Fatal("owner must belong to the new organization")
	}
}

func TestSignupValidation(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, domain.Request{Name: "A", Email: "a@b.c", Password: "longenough"}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("missing org name: %v", err)
	}
	if _, err := svc.Signup(ctx, domain.Request{OrgName: "X", Name: "A", Email: "not-an-email", Password: "longenough"}); !errors.Is(err, memberdomain.ErrInvalidEmail) {
		t.Fatalf("bad email: %v", err)
	}
	if _, err := svc.Signup(ctx, domain.Request{OrgName: "X", Name: "A", Email: "a@b.c", Password: "short"}); !errors.Is(err, memberdomain.ErrInvalidPassword) {
		t.Fatalf("short password: %v", err)
	}
}
