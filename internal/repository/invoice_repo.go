package repository

import (
	"context"

	"miscompras/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceFilter struct {
	Year   int
	Status string
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, f InvoiceFilter) ([]model.Invoice, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	UnlinkRequirement(ctx context.Context, requirementID uuid.UUID) error
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	return r.db.WithContext(ctx).Omit("Supplier", "Requirement").Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Preload("Supplier").Preload("Requirement").Where("id = ?", id).First(&inv).Error
	return &inv, err
}

func (r *invoiceRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Clauses(lockForUpdate).Where("id = ?", id).First(&inv).Error
	return &inv, err
}

func (r *invoiceRepo) List(ctx context.Context, f InvoiceFilter) ([]model.Invoice, error) {
	var out []model.Invoice
	q := r.db.WithContext(ctx).Preload("Supplier")
	if f.Year > 0 {
		q = q.Where("year = ?", f.Year)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	err := q.Order("created_at DESC").Find(&out).Error
	return out, err
}

func (r *invoiceRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Invoice{}).Where("id = ?", id).Updates(fields).Error
}

func (r *invoiceRepo) UnlinkRequirement(ctx context.Context, requirementID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Invoice{}).Where("requirement_id = ?", requirementID).
		Update("requirement_id", nil).Error
}
