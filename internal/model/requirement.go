package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Requirement is a single purchase request. Status tracks approval and
// ProcurementStatus tracks fulfillment; the two move independently.
type Requirement struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Year               int        `gorm:"not null;index" json:"year"`
	Title              string     `gorm:"not null" json:"title"`
	Description        *string    `json:"description,omitempty"`
	Quantity           int        `gorm:"not null;default:1" json:"quantity"`
	ProjectID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"projectId"`
	AreaID             uuid.UUID  `gorm:"type:uuid;not null;index" json:"areaId"`
	BudgetID           *uuid.UUID `gorm:"type:uuid;index" json:"budgetId,omitempty"`
	CategoryID         *uuid.UUID `gorm:"type:uuid" json:"categoryId,omitempty"`
	SupplierID         *uuid.UUID `gorm:"type:uuid" json:"supplierId,omitempty"`
	ManualSupplierName *string    `json:"manualSupplierName,omitempty"`
	CreatedByID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"createdById"`
	GroupID            *uuid.UUID `gorm:"type:uuid;index" json:"groupId,omitempty"`
	IsAsiento          bool       `gorm:"not null;default:false" json:"isAsiento"`
	// TotalAmount zero means unset; payment caps then fall back to ActualAmount.
	TotalAmount            decimal.Decimal     `gorm:"type:decimal(16,2);not null;default:0" json:"totalAmount"`
	ActualAmount           decimal.NullDecimal `gorm:"type:decimal(16,2)" json:"actualAmount"`
	Status                 string              `gorm:"type:varchar(30);not null;index" json:"status"`
	ProcurementStatus      string              `gorm:"type:varchar(20);not null;default:'PENDIENTE'" json:"procurementStatus"`
	HasMultiplePayments    bool                `gorm:"not null;default:false" json:"hasMultiplePayments"`
	PurchaseOrderNumber    *string             `json:"purchaseOrderNumber,omitempty"`
	InvoiceNumber          *string             `json:"invoiceNumber,omitempty"`
	Observations           *string             `json:"observations,omitempty"`
	Remarks                *string             `json:"remarks,omitempty"`
	CoordinatorApproval    bool                `gorm:"not null;default:false" json:"coordinatorApproval"`
	CoordinatorComment     *string             `json:"coordinatorComment,omitempty"`
	DirectorApproval       bool                `gorm:"not null;default:false" json:"directorApproval"`
	DirectorComment        *string             `json:"directorComment,omitempty"`
	ReceivedAtSatisfaction *bool               `json:"receivedAtSatisfaction,omitempty"`
	SatisfactionComments   *string             `json:"satisfactionComments,omitempty"`
	CreatedAt              time.Time           `json:"createdAt"`
	UpdatedAt              time.Time           `json:"updatedAt"`

	Project     *Project     `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Area        *Area        `gorm:"foreignKey:AreaID" json:"area,omitempty"`
	Budget      *Budget      `gorm:"foreignKey:BudgetID" json:"budget,omitempty"`
	Supplier    *Supplier    `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	CreatedBy   *User        `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	Attachments []Attachment `gorm:"foreignKey:RequirementID" json:"attachments,omitempty"`
	Payments    []Payment    `gorm:"foreignKey:RequirementID" json:"payments,omitempty"`
}

func (r *Requirement) BeforeCreate(*gorm.DB) error { ensureID(&r.ID); return nil }

// PayableTotal is the cap used for payments: TotalAmount, else ActualAmount, else zero.
func (r *Requirement) PayableTotal() decimal.Decimal {
	if r.TotalAmount.IsPositive() {
		return r.TotalAmount
	}
	if r.ActualAmount.Valid {
		return r.ActualAmount.Decimal
	}
	return decimal.Zero
}

// RequirementGroup batches requirements submitted together.
type RequirementGroup struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedByID uuid.UUID `gorm:"type:uuid;not null" json:"createdById"`
	PdfURL      *string   `json:"pdfUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	CreatedBy    *User         `gorm:"foreignKey:CreatedByID" json:"createdBy,omitempty"`
	Requirements []Requirement `gorm:"foreignKey:GroupID" json:"requirements,omitempty"`
}

func (g *RequirementGroup) BeforeCreate(*gorm.DB) error { ensureID(&g.ID); return nil }

// Attachment is a file linked to a requirement. FilePath is the on-disk
// location, FileURL the public one.
type Attachment struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequirementID uuid.UUID `gorm:"type:uuid;not null;index" json:"requirementId"`
	FileName      string    `gorm:"not null" json:"fileName"`
	FileURL       string    `gorm:"not null" json:"fileUrl"`
	FilePath      string    `json:"-"`
	MimeType      *string   `json:"mimeType,omitempty"`
	Size          int64     `json:"size"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (a *Attachment) BeforeCreate(*gorm.DB) error { ensureID(&a.ID); return nil }
