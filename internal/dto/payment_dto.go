package dto

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// Amount is checked by the service so a non-positive value reports INVALID_AMOUNT.
type CreatePaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	InvoiceNumber *string         `json:"invoiceNumber"`
	PaymentDate   *Date           `json:"paymentDate"`
	Observations  *string         `json:"observations"`
}

type UpdatePaymentRequest struct {
	Amount        Optional[decimal.Decimal] `json:"amount"`
	InvoiceNumber Optional[string]          `json:"invoiceNumber"`
	PaymentDate   Optional[Date]            `json:"paymentDate"`
	Observations  Optional[string]          `json:"observations"`
}

type ToggleMultiplePaymentsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// ─── Invoices ────────────────────────────────────────────────────────────────

type CreateInvoiceRequest struct {
	InvoiceNumber string          `json:"invoiceNumber" validate:"required"`
	SupplierID    *uuid.UUID      `json:"supplierId"`
	RequirementID *uuid.UUID      `json:"requirementId"`
	Amount        decimal.Decimal `json:"amount"        validate:"required,gt=0"`
	IssueDate     *Date           `json:"issueDate"`
	DueDate       *Date           `json:"dueDate"`
	Notes         *string         `json:"notes"`
	FileURL       *string         `json:"fileUrl"`
}

// VerifyInvoiceRequest links the invoice to a purchase order. RequirementID
// may be omitted when the invoice was created already linked.
type VerifyInvoiceRequest struct {
	RequirementID *uuid.UUID `json:"requirementId"`
}

type InvoiceFilter struct {
	Year   int    `form:"year"`
	Status string `form:"status"`
}

// ─── Budgets ─────────────────────────────────────────────────────────────────

type CreateBudgetRequest struct {
	Code        *string         `json:"code"`
	Description *string         `json:"description"`
	Year        int             `json:"year"        validate:"omitempty,min=2000,max=2100"`
	ProjectID   uuid.UUID       `json:"projectId"`
	AreaID      uuid.UUID       `json:"areaId"`
	CategoryID  *uuid.UUID      `json:"categoryId"`
	Amount      decimal.Decimal `json:"amount"      validate:"required,gt=0"`
}

type BudgetFilter struct {
	Year      int    `form:"year"`
	ProjectID string `form:"projectId"`
	AreaID    string `form:"areaId"`
}
