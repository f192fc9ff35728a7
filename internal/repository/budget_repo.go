package repository

import (
	"context"
	"errors"

	"miscompras/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BudgetFilter struct {
	Year      int
	ProjectID *uuid.UUID
	AreaID    *uuid.UUID
}

type BudgetRepository interface {
	Create(ctx context.Context, b *model.Budget) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Budget, error)
	// FindForProjectArea prefers the budget of year, then the most recent one.
	FindForProjectArea(ctx context.Context, projectID, areaID uuid.UUID, year int) (*model.Budget, error)
	List(ctx context.Context, f BudgetFilter) ([]model.Budget, error)
	// AddAvailable applies available = available + delta in one statement.
	AddAvailable(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
}

type budgetRepo struct{ db *gorm.DB }

func NewBudgetRepository(db *gorm.DB) BudgetRepository { return &budgetRepo{db: db} }

func (r *budgetRepo) Create(ctx context.Context, b *model.Budget) error {
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *budgetRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Budget, error) {
	var b model.Budget
	err := r.db.WithContext(ctx).Preload("Project").Preload("Area").Where("id = ?", id).First(&b).Error
	return &b, err
}

func (r *budgetRepo) FindForProjectArea(ctx context.Context, projectID, areaID uuid.UUID, year int) (*model.Budget, error) {
	var b model.Budget
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND area_id = ? AND year = ?", projectID, areaID, year).
		First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		b = model.Budget{}
		err = r.db.WithContext(ctx).
			Where("project_id = ? AND area_id = ?", projectID, areaID).
			Order("year DESC").First(&b).Error
	}
	return &b, err
}

func (r *budgetRepo) List(ctx context.Context, f BudgetFilter) ([]model.Budget, error) {
	var out []model.Budget
	q := r.db.WithContext(ctx).Preload("Project").Preload("Area")
	if f.Year > 0 {
		q = q.Where("year = ?", f.Year)
	}
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.AreaID != nil {
		q = q.Where("area_id = ?", *f.AreaID)
	}
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *budgetRepo) AddAvailable(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&model.Budget{}).Where("id = ?", id).
		Update("available", gorm.Expr("available + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
