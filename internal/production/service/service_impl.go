// Package service implements the production aggregate operations. Every
// mutation that can change money runs inside one transaction that locks the
// production row, rewrites the child state and recalculates the five derived
// financial fields before commit.
package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/framehaus/callsheet/internal/billing/domain"
	"github.com/framehaus/callsheet/internal/observability/metrics"
	"github.com/framehaus/callsheet/internal/orgcontext"
	"github.com/framehaus/callsheet/internal/production/domain"
	"github.com/framehaus/callsheet/internal/production/finance"
	"github.com/framehaus/callsheet/pkg/money"
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

	productions repository.Repository[domain.Production]
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("production.service"),
		node:         p.Node,
		entitlements: p.Entitlements,
		productions:  repository.ProvideStore[domain.Production](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Production, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Production{}, domain.ErrInvalidOrganization
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Production{}, domain.ErrInvalidTitle
	}

	production := domain.Production{
		ID:            s.node.Generate(),
		OrgID:         orgID,
		Title:         title,
		Status:        domain.StatusDraft,
		Deadline:      req.Deadline,
		Priority:      req.Priority,
		Notes:         req.Notes,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: "pending",
		DueDate:       req.DueDate,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}

	if req.ClientID != nil && strings.TrimSpace(*req.ClientID) != "" {
		clientID, err := parseID(*req.ClientID)
		if err != nil {
			return domain.Production{}, domain.ErrInvalidAmount
		}
		production.ClientID = &clientID
	}

	if err := s.productions.Create(ctx, &production); err != nil {
		return domain.Production{}, err
	}

	s.log.Info("production created",
		zap.String("production_id", production.ID.String()),
		zap.String("org_id", orgID.String()),
	)
	return production, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Detail, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Detail{}, domain.ErrInvalidOrganization
	}
	productionID, err := parseID(id)
	if err != nil {
		return domain.Detail{}, domain.ErrNotFound
	}

	production, err := s.productions.FindOne(ctx, &domain.Production{ID: productionID, OrgID: orgID})
	if err != nil {
		return domain.Detail{}, err
	}
	if production == nil {
		return domain.Detail{}, domain.ErrNotFound
	}

	detail := domain.Detail{Production: *production}
	db := s.db.WithContext(ctx)
	if err := db.Where("production_id = ?", productionID).Order("id").Find(&detail.Items).Error; err != nil {
		return domain.Detail{}, err
	}
	if err := db.Where("production_id = ?", productionID).Order("id").Find(&detail.Expenses).Error; err != nil {
		return domain.Detail{}, err
	}
	if err := db.Where("production_id = ?", productionID).Order("id").Find(&detail.Crew).Error; err != nil {
		return domain.Detail{}, err
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Production, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	filter := domain.Production{OrgID: orgID}
	if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
		status, valid := domain.ParseStatus(strings.TrimSpace(*req.Status))
		if !valid {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if req.ClientID != nil && strings.TrimSpace(*req.ClientID) != "" {
		clientID, err := parseID(*req.ClientID)
		if err != nil {
			return nil, domain.ErrNotFound
		}
		filter.ClientID = &clientID
	}

	rows, err := s.productions.Find(ctx, &filter, repository.OrderBy("created_at DESC"))
	if err != nil {
		return nil, err
	}
	productions := make([]domain.Production, 0, len(rows))
	for _, row := range rows {
		productions = append(productions, *row)
	}
	return productions, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (domain.Production, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Production{}, domain.ErrInvalidOrganization
	}
	productionID, err := parseID(id)
	if err != nil {
		return domain.Production{}, domain.ErrNotFound
	}

	updates := map[string]any{}
	financialChange := false

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return domain.Production{}, domain.ErrInvalidTitle
		}
		updates["title"] = title
	}
	if req.ClientID != nil {
		if strings.TrimSpace(*req.ClientID) == "" {
			updates["client_id"] = nil
		} else {
			clientID, err := parseID(*req.ClientID)
			if err != nil {
				return domain.Production{}, domain.ErrInvalidAmount
			}
			updates["client_id"] = clientID
		}
	}
	var newStatus *domain.Status
	if req.Status != nil {
		status, valid := domain.ParseStatus(strings.TrimSpace(*req.Status))
		if !valid {
			return domain.Production{}, domain.ErrInvalidStatus
		}
		newStatus = &status
		updates["status"] = status
	}
	if req.Deadline != nil {
		updates["deadline"] = *req.Deadline
	}
	if req.Priority != nil {
		updates["priority"] = strings.TrimSpace(*req.Priority)
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Discount != nil {
		if *req.Discount < 0 {
			return domain.Production{}, domain.ErrInvalidDiscount
		}
		updates["discount"] = *req.Discount
		financialChange = true
	}
	if req.TaxRate != nil {
		// Empty string clears the override back to the organization default;
		// "0" keeps an explicit zero rate.
		if strings.TrimSpace(*req.TaxRate) == "" {
			updates["tax_rate_bps"] = nil
		} else {
			bps, err := money.ParsePercent(*req.TaxRate)
			if err != nil || !money.ValidRateBps(bps) {
				return domain.Production{}, domain.ErrInvalidTaxRate
			}
			updates["tax_rate_bps"] = bps
		}
		financialChange = true
	}
	if req.PaymentMethod != nil {
		updates["payment_method"] = strings.TrimSpace(*req.PaymentMethod)
	}
	if req.PaymentStatus != nil {
		status := strings.TrimSpace(*req.PaymentStatus)
		if status == "" {
			return domain.Production{}, domain.ErrInvalidStatus
		}
		updates["payment_status"] = status
	}

	var updated domain.Production
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		production, err := s.loadProductionForUpdate(ctx, tx, orgID, productionID)
		if err != nil {
			return err
		}
		if production == nil {
			return domain.ErrNotFound
		}

		// Moving into an active state consumes a plan slot, so the ceiling
		// is checked before the transition is persisted.
		if newStatus != nil && newStatus.IsActive() && !production.Status.IsActive() {
			if err := s.entitlements.CheckActiveProductionLimit(ctx, orgID); err != nil {
				return err
			}
		}

		if len(updates) > 0 {
			updates["updated_at"] = time.Now().UTC()
			if err := tx.WithContext(ctx).
				Model(&domain.Production{}).
				Where("id = ?", productionID).
				Updates(updates).Error; err != nil {
				return err
			}
		}

		if financialChange {
			if err := tx.WithContext(ctx).First(production, "id = ?", productionID).Error; err != nil {
				return err
			}
			if _, err := s.recalcAndStore(ctx, tx, production); err != nil {
				return err
			}
		}

		return tx.WithContext(ctx).First(&updated, "id = ?", productionID).Error
	})
	if err != nil {
		return domain.Production{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	productionID, err := parseID(id)
	if err != nil {
		return domain.ErrNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		production, err := s.loadProductionForUpdate(ctx, tx, orgID, productionID)
		if err != nil {
			return err
		}
		if production == nil {
			return domain.ErrNotFound
		}

		for _, child := range []any{&domain.Item{}, &domain.Expense{}, &domain.CrewMember{}} {
			if err := tx.WithContext(ctx).Where("production_id = ?", productionID).Delete(child).Error; err != nil {
				return err
			}
		}
		return tx.WithContext(ctx).Delete(&domain.Production{}, "id = ?", productionID).Error
	})
}

func (s *Service) AddItem(ctx context.Context, productionID string, input domain.ItemInput) (domain.Item, domain.Totals, error) {
	var item domain.Item
	totals, err := s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		built, err := s.buildItem(production, input)
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Create(&built).Error; err != nil {
			return err
		}
		item = built
		return nil
	})
	if err != nil {
		return domain.Item{}, domain.Totals{}, err
	}
	return item, totals, nil
}

func (s *Service) UpdateItem(ctx context.Context, productionID, itemID string, input domain.ItemInput) (domain.Item, domain.Totals, error) {
	var item domain.Item
	totals, err := s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		existing, err := findChild[domain.Item](ctx, tx, production.ID, itemID, domain.ErrItemNotFound)
		if err != nil {
			return err
		}
		if err := applyItemInput(existing, input); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Save(existing).Error; err != nil {
			return err
		}
		item = *existing
		return nil
	})
	if err != nil {
		return domain.Item{}, domain.Totals{}, err
	}
	return item, totals, nil
}

func (s *Service) RemoveItem(ctx context.Context, productionID, itemID string) (domain.Totals, error) {
	return s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		existing, err := findChild[domain.Item](ctx, tx, production.ID, itemID, domain.ErrItemNotFound)
		if err != nil {
			return err
		}
		return tx.WithContext(ctx).Delete(&domain.Item{}, "id = ?", existing.ID).Error
	})
}

func (s *Service) ReplaceItems(ctx context.Context, productionID string, inputs []domain.ItemInput) ([]domain.Item, domain.Totals, error) {
	var items []domain.Item
	totals, err := s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		var existing []domain.Item
		if err := tx.WithContext(ctx).Where("production_id = ?", production.ID).Find(&existing).Error; err != nil {
			return err
		}
		byID := make(map[snowflake.ID]*domain.Item, len(existing))
		for i := range existing {
			byID[existing[i].ID] = &existing[i]
		}

		// Rows named by id survive with their identity; rows without an id
		// are inserted; rows absent from the payload are removed.
		keep := make(map[snowflake.ID]bool, len(inputs))
		for _, input := range inputs {
			if input.ID != nil && strings.TrimSpace(*input.ID) != "" {
				id, err := parseID(*input.ID)
				if err != nil {
					return domain.ErrItemNotFound
				}
				row, ok := byID[id]
				if !ok {
					return domain.ErrItemNotFound
				}
				if err := applyItemInput(row, input); err != nil {
					return err
				}
				if err := tx.WithContext(ctx).Save(row).Error; err != nil {
					return err
				}
				keep[id] = true
				continue
			}

			built, err := s.buildItem(production, input)
			if err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Create(&built).Error; err != nil {
				return err
			}
			keep[built.ID] = true
		}

		for id := range byID {
			if !keep[id] {
				if err := tx.WithContext(ctx).Delete(&domain.Item{}, "id = ?", id).Error; err != nil {
					return err
				}
			}
		}

		return tx.WithContext(ctx).Where("production_id = ?", production.ID).Order("id").Find(&items).Error
	})
	if err != nil {
		return nil, domain.Totals{}, err
	}
	return items, totals, nil
}

func (s *Service) AddExpense(ctx context.Context, productionID string, input domain.ExpenseInput) (domain.Expense, domain.Totals, error) {
	var expense domain.Expense
	totals, err := s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		built, err := s.buildExpense(production, input)
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Create(&built).Error; err != nil {
			return err
		}
		expense = built
		return nil
	})
	if err != nil {
		return domain.Expense{}, domain.Totals{}, err
	}
	return expense, totals, nil
}

func (s *Service) UpdateExpense(ctx context.Context, productionID, expenseID string, input domain.ExpenseInput) (domain.Expense, domain.Totals, error) {
	var expense domain.Expense
	totals, err := s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		existing, err := findChild[domain.Expense](ctx, tx, production.ID, expenseID, domain.ErrExpenseNotFound)
		if err != nil {
			return err
		}
		if err := applyExpenseInput(existing, input); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Save(existing).Error; err != nil {
			return err
		}
		expense = *existing
		return nil
	})
	if err != nil {
		return domain.Expense{}, domain.Totals{}, err
	}
	return expense, totals, nil
}

func (s *Service) RemoveExpense(ctx context.Context, productionID, expenseID string) (domain.Totals, error) {
	return s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		existing, err := findChild[domain.Expense](ctx, tx, production.ID, expenseID, domain.ErrExpenseNotFound)
		if err != nil {
			return err
		}
		return tx.WithContext(ctx).Delete(&domain.Expense{}, "id = ?", existing.ID).Error
	})
}

func (s *Service) ReplaceExpenses(ctx context.Context, productionID string, inputs []domain.ExpenseInput) ([]domain.Expense, domain.Totals, error) {
	var expenses []domain.Expense
	totals, err := s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		var existing []domain.Expense
		if err := tx.WithContext(ctx).Where("production_id = ?", production.ID).Find(&existing).Error; err != nil {
			return err
		}
		byID := make(map[snowflake.ID]*domain.Expense, len(existing))
		for i := range existing {
			byID[existing[i].ID] = &existing[i]
		}

		keep := make(map[snowflake.ID]bool, len(inputs))
		for _, input := range inputs {
			if input.ID != nil && strings.TrimSpace(*input.ID) != "" {
				id, err := parseID(*input.ID)
				if err != nil {
					return domain.ErrExpenseNotFound
				}
				row, ok := byID[id]
				if !ok {
					return domain.ErrExpenseNotFound
				}
				if err := applyExpenseInput(row, input); err != nil {
					return err
				}
				if err := tx.WithContext(ctx).Save(row).Error; err != nil {
					return err
				}
				keep[id] = true
				continue
			}

			built, err := s.buildExpense(production, input)
			if err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Create(&built).Error; err != nil {
				return err
			}
			keep[built.ID] = true
		}

		for id := range byID {
			if !keep[id] {
				if err := tx.WithContext(ctx).Delete(&domain.Expense{}, "id = ?", id).Error; err != nil {
					return err
				}
			}
		}

		return tx.WithContext(ctx).Where("production_id = ?", production.ID).Order("id").Find(&expenses).Error
	})
	if err != nil {
		return nil, domain.Totals{}, err
	}
	return expenses, totals, nil
}

func (s *Service) AddCrewMember(ctx context.Context, productionID string, input domain.CrewInput) (domain.CrewMember, domain.Totals, error) {
	var crew domain.CrewMember
	totals, err := s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		built, err := s.buildCrewMember(production, input)
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Create(&built).Error; err != nil {
			return err
		}
		crew = built
		return nil
	})
	if err != nil {
		return domain.CrewMember{}, domain.Totals{}, err
	}
	return crew, totals, nil
}

func (s *Service) UpdateCrewMember(ctx context.Context, productionID, crewID string, input domain.CrewInput) (domain.CrewMember, domain.Totals, error) {
	var crew domain.CrewMember
	totals, err := s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		existing, err := findChild[domain.CrewMember](ctx, tx, production.ID, crewID, domain.ErrCrewMemberNotFound)
		if err != nil {
			return err
		}
		if err := applyCrewInput(existing, input); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Save(existing).Error; err != nil {
			return err
		}
		crew = *existing
		return nil
	})
	if err != nil {
		return domain.CrewMember{}, domain.Totals{}, err
	}
	return crew, totals, nil
}

func (s *Service) RemoveCrewMember(ctx context.Context, productionID, crewID string) (domain.Totals, error) {
	return s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		existing, err := findChild[domain.CrewMember](ctx, tx, production.ID, crewID, domain.ErrCrewMemberNotFound)
		if err != nil {
			return err
		}
		return tx.WithContext(ctx).Delete(&domain.CrewMember{}, "id = ?", existing.ID).Error
	})
}

func (s *Service) ReplaceCrew(ctx context.Context, productionID string, inputs []domain.CrewInput) ([]domain.CrewMember, domain.Totals, error) {
	var crew []domain.CrewMember
	totals, err := s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		var existing []domain.CrewMember
		if err := tx.WithContext(ctx).Where("production_id = ?", production.ID).Find(&existing).Error; err != nil {
			return err
		}
		byID := make(map[snowflake.ID]*domain.CrewMember, len(existing))
		for i := range existing {
			byID[existing[i].ID] = &existing[i]
		}

		keep := make(map[snowflake.ID]bool, len(inputs))
		for _, input := range inputs {
			if input.ID != nil && strings.TrimSpace(*input.ID) != "" {
				id, err := parseID(*input.ID)
				if err != nil {
					return domain.ErrCrewMemberNotFound
				}
				row, ok := byID[id]
				if !ok {
					return domain.ErrCrewMemberNotFound
				}
				if err := applyCrewInput(row, input); err != nil {
					return err
				}
				if err := tx.WithContext(ctx).Save(row).Error; err != nil {
					return err
				}
				keep[id] = true
				continue
			}

			built, err := s.buildCrewMember(production, input)
			if err != nil {
				return err
			}
			if err := tx.WithContext(ctx).Create(&built).Error; err != nil {
				return err
			}
			keep[built.ID] = true
		}

		for id := range byID {
			if !keep[id] {
				if err := tx.WithContext(ctx).Delete(&domain.CrewMember{}, "id = ?", id).Error; err != nil {
					return err
				}
			}
		}

		return tx.WithContext(ctx).Where("production_id = ?", production.ID).Order("id").Find(&crew).Error
	})
	if err != nil {
		return nil, domain.Totals{}, err
	}
	return crew, totals, nil
}

func (s *Service) Recalculate(ctx context.Context, productionID string) (domain.Totals, error) {
	return s.mutate(ctx, productionID, func(tx *gorm.DB, production *domain.Production) error {
		return nil
	})
}

// mutate runs fn against the locked production row and recalculates totals in
// the same transaction. fn sees the pre-mutation row.
func (s *Service) mutate(ctx context.Context, productionID string, fn func(tx *gorm.DB, production *domain.Production) error) (domain.Totals, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Totals{}, domain.ErrInvalidOrganization
	}
	id, err := parseID(productionID)
	if err != nil {
		return domain.Totals{}, domain.ErrNotFound
	}

	var totals domain.Totals
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		production, err := s.loadProductionForUpdate(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if production == nil {
			return domain.ErrNotFound
		}
		if err := fn(tx, production); err != nil {
			return err
		}
		totals, err = s.recalcAndStore(ctx, tx, production)
		return err
	})
	if err != nil {
		return domain.Totals{}, err
	}
	return totals, nil
}

// recalcAndStore loads the child state under the caller's transaction, runs
// the pure calculator and persists the derived fields on the locked row.
func (s *Service) recalcAndStore(ctx context.Context, tx *gorm.DB, production *domain.Production) (domain.Totals, error) {
	var itemTotals []int64
	if err := tx.WithContext(ctx).
		Model(&domain.Item{}).
		Where("production_id = ?", production.ID).
		Order("id").
		Pluck("total_price", &itemTotals).Error; err != nil {
		return domain.Totals{}, err
	}

	var expenseValues []int64
	if err := tx.WithContext(ctx).
		Model(&domain.Expense{}).
		Where("production_id = ?", production.ID).
		Order("id").
		Pluck("value", &expenseValues).Error; err != nil {
		return domain.Totals{}, err
	}

	var crewFees []*int64
	if err := tx.WithContext(ctx).
		Model(&domain.CrewMember{}).
		Where("production_id = ?", production.ID).
		Order("id").
		Pluck("fee", &crewFees).Error; err != nil {
		return domain.Totals{}, err
	}

	var defaultRateBps int64
	if err := tx.WithContext(ctx).
		Raw(`SELECT default_tax_rate_bps FROM organizations WHERE id = ?`, production.OrgID).
		Scan(&defaultRateBps).Error; err != nil {
		return domain.Totals{}, err
	}

	result, err := finance.Compute(finance.Inputs{
		ItemTotals:        itemTotals,
		ExpenseValues:     expenseValues,
		CrewFees:          crewFees,
		Discount:          production.Discount,
		TaxRateBps:        production.TaxRateBps,
		DefaultTaxRateBps: defaultRateBps,
	})
	if err != nil {
		metrics.App().IncRecalculation("error")
		s.log.Error("financial recalculation failed",
			zap.String("production_id", production.ID.String()),
			zap.Error(err),
		)
		return domain.Totals{}, err
	}

	if result.DiscountClamped {
		metrics.App().IncDiscountClamp()
		s.log.Warn("discount exceeds subtotal, clamped for calculation",
			zap.String("production_id", production.ID.String()),
			zap.Int64("discount", production.Discount),
			zap.Int64("subtotal", result.Totals.Subtotal),
		)
	}

	err = tx.WithContext(ctx).Exec(
		`UPDATE productions
		 SET subtotal = ?, tax_amount = ?, total_value = ?, total_cost = ?, profit = ?, updated_at = ?
		 WHERE id = ?`,
		result.Totals.Subtotal,
		result.Totals.TaxAmount,
		result.Totals.TotalValue,
		result.Totals.TotalCost,
		result.Totals.Profit,
		time.Now().UTC(),
		production.ID,
	).Error
	if err != nil {
		return domain.Totals{}, err
	}

	metrics.App().IncRecalculation("ok")
	return result.Totals, nil
}

func (s *Service) loadProductionForUpdate(ctx context.Context, tx *gorm.DB, orgID, id snowflake.ID) (*domain.Production, error) {
	query := `SELECT id, org_id, client_id, title, status, deadline, priority, notes,
		subtotal, discount, tax_rate_bps, tax_amount, total_value, total_cost, profit,
		payment_method, payment_status, due_date, created_at, updated_at
	 FROM productions
	 WHERE id = ? AND org_id = ?`
	if tx.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE"
	}

	var production domain.Production
	if err := tx.WithContext(ctx).Raw(query, id, orgID).Scan(&production).Error; err != nil {
		return nil, err
	}
	if production.ID == 0 {
		return nil, nil
	}
	return &production, nil
}

func (s *Service) buildItem(production *domain.Production, input domain.ItemInput) (domain.Item, error) {
	item := domain.Item{
		ID:           s.node.Generate(),
		OrgID:        production.OrgID,
		ProductionID: production.ID,
	}
	if err := applyItemInput(&item, input); err != nil {
		return domain.Item{}, err
	}
	return item, nil
}

func applyItemInput(item *domain.Item, input domain.ItemInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.ErrInvalidName
	}
	if input.Quantity <= 0 || math.IsNaN(input.Quantity) || math.IsInf(input.Quantity, 0) {
		return domain.ErrInvalidQuantity
	}
	if input.UnitPrice < 0 {
		return domain.ErrInvalidAmount
	}

	item.Name = name
	item.Quantity = input.Quantity
	item.UnitPrice = input.UnitPrice
	item.TotalPrice = int64(math.Round(input.Quantity * float64(input.UnitPrice)))

	item.ServiceID = nil
	if input.ServiceID != nil && strings.TrimSpace(*input.ServiceID) != "" {
		serviceID, err := parseID(*input.ServiceID)
		if err != nil {
			return domain.ErrInvalidAmount
		}
		item.ServiceID = &serviceID
	}
	return nil
}

func (s *Service) buildExpense(production *domain.Production, input domain.ExpenseInput) (domain.Expense, error) {
	expense := domain.Expense{
		ID:           s.node.Generate(),
		OrgID:        production.OrgID,
		ProductionID: production.ID,
	}
	if err := applyExpenseInput(&expense, input); err != nil {
		return domain.Expense{}, err
	}
	return expense, nil
}

func applyExpenseInput(expense *domain.Expense, input domain.ExpenseInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.ErrInvalidName
	}
	if input.Value < 0 {
		return domain.ErrInvalidAmount
	}

	expense.Name = name
	expense.Value = input.Value
	expense.Category = input.Category
	expense.PaidBy = input.PaidBy
	return nil
}

func (s *Service) buildCrewMember(production *domain.Production, input domain.CrewInput) (domain.CrewMember, error) {
	crew := domain.CrewMember{
		ID:           s.node.Generate(),
		OrgID:        production.OrgID,
		ProductionID: production.ID,
	}
	if err := applyCrewInput(&crew, input); err != nil {
		return domain.CrewMember{}, err
	}
	return crew, nil
}

func applyCrewInput(crew *domain.CrewMember, input domain.CrewInput) error {
	memberID, err := uuid.Parse(strings.TrimSpace(input.MemberID))
	if err != nil {
		return domain.ErrInvalidMember
	}
	role := strings.TrimSpace(input.Role)
	if role == "" {
		return domain.ErrInvalidRole
	}
	if input.Fee != nil && *input.Fee < 0 {
		return domain.ErrInvalidAmount
	}

	crew.MemberID = memberID
	crew.Role = role
	crew.Fee = input.Fee
	return nil
}

func findChild[T any](ctx context.Context, tx *gorm.DB, productionID snowflake.ID, childID string, notFound error) (*T, error) {
	id, err := parseID(childID)
	if err != nil {
		return nil, notFound
	}
	var child T
	err = tx.WithContext(ctx).Where("id = ? AND production_id = ?", id, productionID).First(&child).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	return &child, nil
}

func parseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(strings.TrimSpace(value))
}
