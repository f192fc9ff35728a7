package repository

import (
	"context"

	"miscompras/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	ListByRequirement(ctx context.Context, requirementID uuid.UUID) ([]model.Payment, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByRequirement(ctx context.Context, requirementID uuid.UUID) error
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &paymentRepo{db: db} }

func (r *paymentRepo) Create(ctx context.Context, p *model.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *paymentRepo) ListByRequirement(ctx context.Context, requirementID uuid.UUID) ([]model.Payment, error) {
	var out []model.Payment
	err := r.db.WithContext(ctx).Where("requirement_id = ?", requirementID).
		Order("payment_number").Order("created_at").Find(&out).Error
	return out, err
}

func (r *paymentRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Payment{}).Where("id = ?", id).Updates(fields).Error
}

func (r *paymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Payment{}).Error
}

func (r *paymentRepo) DeleteByRequirement(ctx context.Context, requirementID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("requirement_id = ?", requirementID).Delete(&model.Payment{}).Error
}
