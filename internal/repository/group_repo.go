package repository

import (
	"context"

	"miscompras/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GroupRepository interface {
	Create(ctx context.Context, g *model.RequirementGroup) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.RequirementGroup, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.RequirementGroup, error)
	SetPdfURL(ctx context.Context, id uuid.UUID, url string) error
}

type groupRepo struct{ db *gorm.DB }

func NewGroupRepository(db *gorm.DB) GroupRepository { return &groupRepo{db: db} }

func (r *groupRepo) Create(ctx context.Context, g *model.RequirementGroup) error {
	return r.db.WithContext(ctx).Omit("CreatedBy", "Requirements").Create(g).Error
}

func (r *groupRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.RequirementGroup, error) {
	var g model.RequirementGroup
	err := r.db.WithContext(ctx).Preload("CreatedBy").Where("id = ?", id).First(&g).Error
	return &g, err
}

func (r *groupRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.RequirementGroup, error) {
	var out []model.RequirementGroup
	if len(ids) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).Preload("CreatedBy").Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *groupRepo) SetPdfURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.db.WithContext(ctx).Model(&model.RequirementGroup{}).Where("id = ?", id).Update("pdf_url", url).Error
}
