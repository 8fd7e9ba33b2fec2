package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/framehaus/callsheet/internal/orgcontext"
	"github.com/framehaus/callsheet/internal/organization/domain"
	"github.com/framehaus/callsheet/pkg/money"
	"github.com/framehaus/callsheet/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	orgrepo repository.Repository[domain.Organization]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("organization.service"),
		orgrepo: repository.ProvideStore[domain.Organization](p.DB),
	}
}

func (s *Service) Get(ctx context.Context) (domain.Organization, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Organization{}, domain.ErrInvalidOrganization
	}
	return s.GetByID(ctx, orgID)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Organization, error) {
	org, err := s.orgrepo.FindOne(ctx, &domain.Organization{ID: id})
	if err != nil {
		return domain.Organization{}, err
	}
	if org == nil {
		return domain.Organization{}, domain.ErrNotFound
	}
	return *org, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.Organization, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Organization{}, domain.ErrInvalidOrganization
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Organization{}, domain.ErrInvalidName
		}
		updates["name"] = name
	}
	if req.TaxID != nil {
		updates["tax_id"] = strings.TrimSpace(*req.TaxID)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		updates["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.DefaultTaxRate != nil {
		bps, err := money.ParsePercent(*req.DefaultTaxRate)
		if err != nil || !money.ValidRateBps(bps) {
			return domain.Organization{}, domain.ErrInvalidTaxRate
		}
		updates["default_tax_rate_bps"] = bps
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).
			Model(&domain.Organization{}).
			Where("id = ?", orgID).
			Updates(updates)
		if result.Error != nil {
			return domain.Organization{}, result.Error
		}
		if result.RowsAffected == 0 {
			return domain.Organization{}, domain.ErrNotFound
		}
	}

	return s.GetByID(ctx, orgID)
}
