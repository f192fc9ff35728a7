package service

import (
	"context"
	"errors"
	"time"

	"miscompras/internal/apierror"
	"miscompras/internal/dto"
	"miscompras/internal/model"
	"miscompras/internal/policy"
	"miscompras/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BudgetService is the Budget Ledger: creation and reads. Balance changes go
// through decrementBudget inside the caller's transaction.
type BudgetService interface {
	Create(ctx context.Context, actor Actor, req dto.CreateBudgetRequest) (*model.Budget, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Budget, error)
	List(ctx context.Context, f dto.BudgetFilter) ([]model.Budget, error)
}

type budgetService struct {
	store *repository.Store
}

func NewBudgetService(store *repository.Store) BudgetService {
	return &budgetService{store: store}
}

func (s *budgetService) Create(ctx context.Context, actor Actor, req dto.CreateBudgetRequest) (*model.Budget, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.can(policy.ManageBudget) {
		return nil, apierror.Forbidden("Solo un director puede crear presupuestos")
	}
	if req.ProjectID == uuid.Nil || req.AreaID == uuid.Nil {
		return nil, apierror.InvalidInput("projectId y areaId son obligatorios")
	}
	if !req.Amount.IsPositive() {
		return nil, apierror.InvalidInputCode(apierror.CodeInvalidAmount, "El monto debe ser mayor a cero")
	}
	year := req.Year
	if year == 0 {
		year = time.Now().Year()
	}
	b := &model.Budget{
		Code:        req.Code,
		Description: req.Description,
		Year:        year,
		ProjectID:   req.ProjectID,
		AreaID:      req.AreaID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Available:   req.Amount,
		CreatedByID: actor.ID,
	}
	if err := s.store.Budgets.Create(ctx, b); err != nil {
		return nil, internal("crear presupuesto", err)
	}
	return s.Get(ctx, b.ID)
}

func (s *budgetService) Get(ctx context.Context, id uuid.UUID) (*model.Budget, error) {
	b, err := s.store.Budgets.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Presupuesto no encontrado")
	}
	return b, nil
}

func (s *budgetService) List(ctx context.Context, f dto.BudgetFilter) ([]model.Budget, error) {
	rf := repository.BudgetFilter{Year: f.Year}
	if f.ProjectID != "" {
		id, err := uuid.Parse(f.ProjectID)
		if err != nil {
			return nil, apierror.InvalidInput("projectId invalido")
		}
		rf.ProjectID = &id
	}
	if f.AreaID != "" {
		id, err := uuid.Parse(f.AreaID)
		if err != nil {
			return nil, apierror.InvalidInput("areaId invalido")
		}
		rf.AreaID = &id
	}
	out, err := s.store.Budgets.List(ctx, rf)
	return out, internal("listar presupuestos", err)
}

// decrementBudget lowers available by amount. Negative balances are allowed;
// callers validate beforehand when they need to.
func decrementBudget(ctx context.Context, r repository.Repos, budgetID uuid.UUID, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	return notFoundOr(r.Budgets.AddAvailable(ctx, budgetID, amount.Neg()), "Presupuesto no encontrado")
}

// resolveBudgetID returns explicit when set, otherwise the budget of the
// (project, area) pair for year, or nil when none exists.
func resolveBudgetID(ctx context.Context, r repository.Repos, explicit *uuid.UUID, projectID, areaID uuid.UUID, year int) (*uuid.UUID, error) {
	if explicit != nil && *explicit != uuid.Nil {
		if _, err := r.Budgets.FindByID(ctx, *explicit); err != nil {
			return nil, notFoundOr(err, "Presupuesto no encontrado")
		}
		return explicit, nil
	}
	b, err := r.Budgets.FindForProjectArea(ctx, projectID, areaID, year)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, internal("resolver presupuesto", err)
	}
	return &b.ID, nil
}
