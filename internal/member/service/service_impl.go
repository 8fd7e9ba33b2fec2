package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
	"github.com/framehaus/callsheet/internal/member/domain"
	"github.com/framehaus/callsheet/internal/orgcontext"
	"github.com/framehaus/callsheet/pkg/db"
	"github.com/framehaus/callsheet/pkg/repository"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Entitlements billingdomain.EntitlementService
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	entitlements billingdomain.EntitlementService
	members      repository.Repository[domain.Member]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("member.service"),
		entitlements: p.Entitlements,
		members:      repository.ProvideStore[domain.Member](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Member, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Member{}, domain.ErrInvalidOrganization
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Member{}, domain.ErrInvalidEmail
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Member{}, domain.ErrInvalidName
	}
	role, valid := domain.ParseRole(strings.TrimSpace(req.Role))
	if !valid {
		return domain.Member{}, domain.ErrInvalidRole
	}
	if len(req.Password) < 8 {
		return domain.Member{}, domain.ErrInvalidPassword
	}

	// The collaborator ceiling is checked before the row exists.
	if err := s.entitlements.CheckCollaboratorLimit(ctx, orgID); err != nil {
		return domain.Member{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Member{}, err
	}

	member := domain.Member{
		ID:           uuid.New(),
		OrgID:        orgID,
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.members.Create(ctx, &member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Member{}, domain.ErrEmailTaken
		}
		return domain.Member{}, err
	}

	s.log.Info("member created",
		zap.String("member_id", member.ID.String()),
		zap.String("org_id", orgID.String()),
		zap.String("role", string(role)),
	)
	return member, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Member, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Member{}, domain.ErrInvalidOrganization
	}
	memberID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return domain.Member{}, domain.ErrNotFound
	}

	member, err := s.members.FindOne(ctx, &domain.Member{ID: memberID, OrgID: orgID})
	if err != nil {
		return domain.Member{}, err
	}
	if member == nil {
		return domain.Member{}, domain.ErrNotFound
	}
	return *member, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Member, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	rows, err := s.members.Find(ctx, &domain.Member{OrgID: orgID}, repository.OrderBy("created_at"))
	if err != nil {
		return nil, err
	}
	members := make([]domain.Member, 0, len(rows))
	for _, row := range rows {
		members = append(members, *row)
	}
	return members, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (domain.Member, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return domain.Member{}, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Member{}, domain.ErrInvalidName
		}
		updates["name"] = name
	}
	if req.Role != nil {
		if existing.Role == domain.RoleOwner {
			return domain.Member{}, domain.ErrCannotRemoveOwner
		}
		role, valid := domain.ParseRole(strings.TrimSpace(*req.Role))
		if !valid {
			return domain.Member{}, domain.ErrInvalidRole
		}
		updates["role"] = role
	}

	if len(updates) > 0 {
		updates["updated_at"] = time.Now().UTC()
		err := s.db.WithContext(ctx).
			Model(&domain.Member{}).
			Where("id = ?", existing.ID).
			Updates(updates).Error
		if err != nil {
			return domain.Member{}, err
		}
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if existing.Role == domain.RoleOwner {
		return domain.ErrCannotRemoveOwner
	}
	return s.db.WithContext(ctx).Delete(&domain.Member{}, "id = ?", existing.ID).Error
}
