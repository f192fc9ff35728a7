package repository

import (
	"context"

	"miscompras/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Visibility restricts which requirements a caller may read. With All unset
// the caller sees rows they created plus rows in any area they direct.
type Visibility struct {
	All     bool
	UserID  uuid.UUID
	AreaIDs []uuid.UUID
}

type RequirementFilter struct {
	Year              int
	Status            string
	ProcurementStatus string
	// CreatedBy restricts to one creator regardless of visibility.
	CreatedBy *uuid.UUID
}

type RequirementRepository interface {
	Create(ctx context.Context, req *model.Requirement) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Requirement, error)
	// FindDetail loads every relation shown on the detail screen.
	FindDetail(ctx context.Context, id uuid.UUID) (*model.Requirement, error)
	// FindForUpdate locks the row until the surrounding tx ends.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Requirement, error)
	FindByGroup(ctx context.Context, groupID uuid.UUID) ([]model.Requirement, error)
	List(ctx context.Context, f RequirementFilter, v Visibility) ([]model.Requirement, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	UpdateByGroup(ctx context.Context, groupID uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type requirementRepo struct{ db *gorm.DB }

func NewRequirementRepository(db *gorm.DB) RequirementRepository {
	return &requirementRepo{db: db}
}

func (r *requirementRepo) Create(ctx context.Context, req *model.Requirement) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(req).Error
}

func (r *requirementRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Requirement, error) {
	var req model.Requirement
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	return &req, err
}

func (r *requirementRepo) FindDetail(ctx context.Context, id uuid.UUID) (*model.Requirement, error) {
	var req model.Requirement
	err := r.db.WithContext(ctx).
		Preload("Project").Preload("Area").Preload("Budget").Preload("Supplier").Preload("CreatedBy").
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_number") }).
		Where("id = ?", id).First(&req).Error
	return &req, err
}

func (r *requirementRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Requirement, error) {
	var req model.Requirement
	err := r.db.WithContext(ctx).Clauses(lockForUpdate).
		Where("id = ?", id).First(&req).Error
	return &req, err
}

func (r *requirementRepo) FindByGroup(ctx context.Context, groupID uuid.UUID) ([]model.Requirement, error) {
	var out []model.Requirement
	err := r.db.WithContext(ctx).Preload("Area").Where("group_id = ?", groupID).Order("created_at").Find(&out).Error
	return out, err
}

func (r *requirementRepo) List(ctx context.Context, f RequirementFilter, v Visibility) ([]model.Requirement, error) {
	var out []model.Requirement
	q := r.db.WithContext(ctx).
		Preload("Project").Preload("Area").Preload("Supplier").Preload("CreatedBy").
		Where("year = ?", f.Year)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ProcurementStatus != "" {
		q = q.Where("procurement_status = ?", f.ProcurementStatus)
	}
	if f.CreatedBy != nil {
		q = q.Where("created_by_id = ?", *f.CreatedBy)
	}
	if !v.All {
		if len(v.AreaIDs) > 0 {
			q = q.Where("(created_by_id = ? OR area_id IN ?)", v.UserID, v.AreaIDs)
		} else {
			q = q.Where("created_by_id = ?", v.UserID)
		}
	}
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *requirementRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.Requirement{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *requirementRepo) UpdateByGroup(ctx context.Context, groupID uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Requirement{}).Where("group_id = ?", groupID).Updates(fields).Error
}

func (r *requirementRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Requirement{}).Error
}
