package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MaxPaymentsPerRequirement caps installments regardless of HasMultiplePayments.
const MaxPaymentsPerRequirement = 12

// Payment is one installment against a requirement.
type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RequirementID uuid.UUID       `gorm:"type:uuid;not null;index" json:"requirementId"`
	PaymentNumber int             `gorm:"not null" json:"paymentNumber"`
	Amount        decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"amount"`
	InvoiceNumber *string         `json:"invoiceNumber,omitempty"`
	PaymentDate   time.Time       `gorm:"not null" json:"paymentDate"`
	Observations  *string         `json:"observations,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (p *Payment) BeforeCreate(*gorm.DB) error { ensureID(&p.ID); return nil }

// Invoice is a supplier bill tracked independently of the requirement until paid.
type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"not null;index" json:"invoiceNumber"`
	SupplierID    *uuid.UUID      `gorm:"type:uuid" json:"supplierId,omitempty"`
	RequirementID *uuid.UUID      `gorm:"type:uuid;index" json:"requirementId,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"amount"`
	IssueDate     *time.Time      `json:"issueDate,omitempty"`
	DueDate       *time.Time      `json:"dueDate,omitempty"`
	Year          int             `gorm:"not null;index" json:"year"`
	Status        string          `gorm:"type:varchar(20);not null;index" json:"status"`
	Notes         *string         `json:"notes,omitempty"`
	FileURL       *string         `json:"fileUrl,omitempty"`
	CreatedByID   uuid.UUID       `gorm:"type:uuid;not null" json:"createdById"`
	VerifiedAt    *time.Time      `json:"verifiedAt,omitempty"`
	ApprovedAt    *time.Time      `json:"approvedAt,omitempty"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	Supplier    *Supplier    `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Requirement *Requirement `gorm:"foreignKey:RequirementID" json:"requirement,omitempty"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error { ensureID(&i.ID); return nil }
