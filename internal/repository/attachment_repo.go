package repository

import (
	"context"

	"miscompras/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttachmentRepository interface {
	Create(ctx context.Context, a *model.Attachment) error
	ListByRequirement(ctx context.Context, requirementID uuid.UUID) ([]model.Attachment, error)
	// FindForRequirement returns the attachments in ids that belong to requirementID.
	FindForRequirement(ctx context.Context, requirementID uuid.UUID, ids []uuid.UUID) ([]model.Attachment, error)
	// CountByPath counts rows pointing at the same file; group summaries are
	// shared by every requirement in the group.
	CountByPath(ctx context.Context, path string) (int64, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
	DeleteByRequirement(ctx context.Context, requirementID uuid.UUID) error
}

type attachmentRepo struct{ db *gorm.DB }

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository { return &attachmentRepo{db: db} }

func (r *attachmentRepo) Create(ctx context.Context, a *model.Attachment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *attachmentRepo) ListByRequirement(ctx context.Context, requirementID uuid.UUID) ([]model.Attachment, error) {
	var out []model.Attachment
	err := r.db.WithContext(ctx).Where("requirement_id = ?", requirementID).Order("created_at").Find(&out).Error
	return out, err
}

func (r *attachmentRepo) FindForRequirement(ctx context.Context, requirementID uuid.UUID, ids []uuid.UUID) ([]model.Attachment, error) {
	var out []model.Attachment
	if len(ids) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).Where("requirement_id = ? AND id IN ?", requirementID, ids).Find(&out).Error
	return out, err
}

func (r *attachmentRepo) CountByPath(ctx context.Context, path string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Attachment{}).Where("file_path = ?", path).Count(&n).Error
	return n, err
}

func (r *attachmentRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.Attachment{}).Error
}

func (r *attachmentRepo) DeleteByRequirement(ctx context.Context, requirementID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("requirement_id = ?", requirementID).Delete(&model.Attachment{}).Error
}
