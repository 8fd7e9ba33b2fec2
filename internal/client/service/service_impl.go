package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
	"github.com/framehaus/callsheet/internal/client/domain"
	"github.com/framehaus/callsheet/internal/orgcontext"
	"github.com/framehaus/callsheet/pkg/repository"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Node         *snowflake.Node
	Entitlements billingdomain.EntitlementService
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	node         *snowflake.Node
	entitlements billingdomain.EntitlementService
	clients      repository.Repository[domain.Client]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("client.service"),
		node:         p.Node,
		entitlements: p.Entitlements,
		clients:      repository.ProvideStore[domain.Client](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Client, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Client{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Client{}, domain.ErrInvalidName
	}

	// The plan ceiling is checked before the row exists.
	if err := s.entitlements.CheckClientLimit(ctx, orgID); err != nil {
		return domain.Client{}, err
	}

	client := domain.Client{
		ID:        s.node.Generate(),
		OrgID:     orgID,
		Name:      name,
		Company:   req.Company,
		Email:     req.Email,
		Phone:     req.Phone,
		Notes:     req.Notes,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.clients.Create(ctx, &client); err != nil {
		return domain.Client{}, err
	}

	s.log.Info("client created",
		zap.String("client_id", client.ID.String()),
		zap.String("org_id", orgID.String()),
	)
	return client, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Client, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Client{}, domain.ErrInvalidOrganization
	}
	clientID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.Client{}, domain.ErrNotFound
	}

	client, err := s.clients.FindOne(ctx, &domain.Client{ID: clientID, OrgID: orgID})
	if err != nil {
		return domain.Client{}, err
	}
	if client == nil {
		return domain.Client{}, domain.ErrNotFound
	}
	return *client, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Client, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	rows, err := s.clients.Find(ctx, &domain.Client{OrgID: orgID}, repository.OrderBy("name"))
	if err != nil {
		return nil, err
	}
	clients := make([]domain.Client, 0, len(rows))
	for _, row := range rows {
		clients = append(clients, *row)
	}
	return clients, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (domain.Client, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Client{}, domain.ErrInvalidName
		}
		updates["name"] = name
	}
	if req.Company != nil {
		updates["company"] = strings.TrimSpace(*req.Company)
	}
	if req.Email != nil {
		updates["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}

	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
		err := s.db.WithContext(ctx).
			Model(&domain.Client{}).
			Where("id = ?", existing.ID).
			Updates(updates).Error
		if err != nil {
			return domain.Client{}, err
		}
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&domain.Client{}, "id = ?", existing.ID).Error
}
