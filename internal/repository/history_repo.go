package repository

import (
	"context"

	"miscompras/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var lockForUpdate = clause.Locking{Strength: "UPDATE"}

type HistoryRepository interface {
	Create(ctx context.Context, h *model.HistoryLog) error
	// ListForRequirement returns entries keyed to the requirement plus, when
	// groupID is set, the entries of its group.
	ListForRequirement(ctx context.Context, requirementID uuid.UUID, groupID *uuid.UUID) ([]model.HistoryLog, error)
	CountByAction(ctx context.Context, requirementID uuid.UUID, action string) (int64, error)
	DeleteByRequirement(ctx context.Context, requirementID uuid.UUID) error
}

type historyRepo struct{ db *gorm.DB }

func NewHistoryRepository(db *gorm.DB) HistoryRepository { return &historyRepo{db: db} }

func (r *historyRepo) Create(ctx context.Context, h *model.HistoryLog) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *historyRepo) ListForRequirement(ctx context.Context, requirementID uuid.UUID, groupID *uuid.UUID) ([]model.HistoryLog, error) {
	var out []model.HistoryLog
	q := r.db.WithContext(ctx)
	if groupID != nil {
		q = q.Where("requirement_id = ? OR group_id = ?", requirementID, *groupID)
	} else {
		q = q.Where("requirement_id = ?", requirementID)
	}
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *historyRepo) CountByAction(ctx context.Context, requirementID uuid.UUID, action string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.HistoryLog{}).
		Where("requirement_id = ? AND action = ?", requirementID, action).Count(&n).Error
	return n, err
}

func (r *historyRepo) DeleteByRequirement(ctx context.Context, requirementID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("requirement_id = ?", requirementID).Delete(&model.HistoryLog{}).Error
}
