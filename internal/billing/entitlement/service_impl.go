// Package entitlement enforces the plan limit table. Every check is a
// pre-write gate: it counts current usage and denies the write before the new
// row exists, so a denied request leaves no trace.
package entitlement

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/framehaus/callsheet/internal/audit/domain"
	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
	clientdomain "github.com/framehaus/callsheet/internal/client/domain"
	memberdomain "github.com/framehaus/callsheet/internal/member/domain"
	"github.com/framehaus/callsheet/internal/observability/metrics"
	orgdomain "github.com/framehaus/callsheet/internal/organization/domain"
	productiondomain "github.com/framehaus/callsheet/internal/production/domain"
	"github.com/framehaus/callsheet/pkg/repository"
)

const (
	ResourceCollaborators     = "collaborators"
	ResourceClients           = "clients"
	ResourceActiveProductions = "active_productions"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Audit auditdomain.Service `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	audit auditdomain.Service
	orgs  repository.Repository[orgdomain.Organization]
}

func NewService(p Params) billingdomain.EntitlementService {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billing.entitlement"),
		audit: p.Audit,
		orgs:  repository.ProvideStore[orgdomain.Organization](p.DB),
	}
}

func (s *Service) CheckCollaboratorLimit(ctx context.Context, orgID snowflake.ID) error {
	return s.check(ctx, orgID, ResourceCollaborators,
		func(limits billingdomain.Limits) int { return limits.MaxCollaborators },
		func(ctx context.Context) (int64, error) {
			var count int64
			err := s.db.WithContext(ctx).
				Model(&memberdomain.Member{}).
				Where("org_id = ?", orgID).
				Count(&count).Error
			return count, err
		},
	)
}

func (s *Service) CheckClientLimit(ctx context.Context, orgID snowflake.ID) error {
	return s.check(ctx, orgID, ResourceClients,
		func(limits billingdomain.Limits) int { return limits.MaxClients },
		func(ctx context.Context) (int64, error) {
			var count int64
			err := s.db.WithContext(ctx).
				Model(&clientdomain.Client{}).
				Where("org_id = ?", orgID).
				Count(&count).Error
			return count, err
		},
	)
}

func (s *Service) CheckActiveProductionLimit(ctx context.Context, orgID snowflake.ID) error {
	return s.check(ctx, orgID, ResourceActiveProductions,
		func(limits billingdomain.Limits) int { return limits.MaxActiveProductions },
		func(ctx context.Context) (int64, error) {
			var count int64
			err := s.db.WithContext(ctx).
				Model(&productiondomain.Production{}).
				Where("org_id = ? AND status IN ?", orgID, productiondomain.ActiveStatuses).
				Count(&count).Error
			return count, err
		},
	)
}

func (s *Service) check(
	ctx context.Context,
	orgID snowflake.ID,
	resource string,
	ceiling func(billingdomain.Limits) int,
	count func(context.Context) (int64, error),
) error {
	org, err := s.orgs.FindOne(ctx, &orgdomain.Organization{ID: orgID})
	if err != nil {
		return err
	}
	if org == nil {
		return billingdomain.ErrOrganizationNotFound
	}

	limits := billingdomain.LimitsFor(org.SubscriptionPlan)
	ceilingValue := ceiling(limits)
	if ceilingValue >= billingdomain.Unlimited {
		return nil
	}

	current, err := count(ctx)
	if err != nil {
		return err
	}
	if current >= int64(ceilingValue) {
		metrics.App().IncEntitlementDenied(resource)
		s.log.Info("plan limit reached",
			zap.String("org_id", orgID.String()),
			zap.String("resource", resource),
			zap.String("plan", string(org.SubscriptionPlan)),
			zap.Int("limit", ceilingValue),
			zap.Int64("current", current),
		)
		if s.audit != nil {
			_ = s.audit.Record(ctx, "entitlement.denied", "organization", nil, map[string]any{
				"resource": resource,
				"plan":     string(org.SubscriptionPlan),
				"limit":    ceilingValue,
				"current":  current,
			})
		}
		return &billingdomain.LimitExceededError{
			Resource:     resource,
			Plan:         org.SubscriptionPlan,
			Limit:        ceilingValue,
			CurrentCount: current,
		}
	}
	return nil
}
