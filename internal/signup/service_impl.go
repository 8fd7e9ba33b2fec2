// Package signup provisions new tenants. Registration creates the
// organization on the free plan with a trial window and the owner member in
// one transaction, so a half-provisioned tenant can never exist.
package signup

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
	"github.com/framehaus/callsheet/internal/config"
	memberdomain "github.com/framehaus/callsheet/internal/member/domain"
	orgdomain "github.com/framehaus/callsheet/internal/organization/domain"
	"github.com/framehaus/callsheet/internal/signup/domain"
	"github.com/framehaus/callsheet/pkg/db"
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
	trialDays int
}

func NewService(p Params) domain.Service {
	trialDays := p.Cfg.TrialPeriodDays
	if trialDays <= 0 {
		trialDays = 14
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("signup.service"),
		node:      p.Node,
		trialDays: trialDays,
	}
}

func (s *Service) Signup(ctx context.Context, req domain.Request) (*domain.Result, error) {
	orgName := strings.TrimSpace(req.OrgName)
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if orgName == "" || name == "" {
		return nil, domain.ErrInvalidRequest
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, memberdomain.ErrInvalidEmail
	}
	if len(req.Password) < 8 {
		return nil, memberdomain.ErrInvalidPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	trialEndsAt := now.AddDate(0, 0, s.trialDays)
	org := orgdomain.Organization{
		ID:                 s.node.Generate(),
		Name:               orgName,
		SubscriptionPlan:   billingdomain.PlanFree,
		SubscriptionStatus: billingdomain.StatusTrialing,
		TrialEndsAt:        &trialEndsAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	owner := memberdomain.Member{
		ID:           uuid.New(),
		OrgID:        org.ID,
		Email:        email,
		Name:         name,
		Role:         memberdomain.RoleOwner,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Create(&owner).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return memberdomain.ErrEmailTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("tenant provisioned",
		zap.String("org_id", org.ID.String()),
		zap.String("owner_id", owner.ID.String()),
		zap.Time("trial_ends_at", trialEndsAt),
	)
	return &domain.Result{
		OrgID:        org.ID,
		Organization: org,
		Owner:        owner,
	}, nil
}
