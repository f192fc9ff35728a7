package dto

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"miscompras/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CreateRequirementRequest is shared by the single, asiento and mass-create flows.
type CreateRequirementRequest struct {
	Title               string           `json:"title"               validate:"required,min=2"`
	Description         *string          `json:"description"`
	Quantity            int              `json:"quantity"            validate:"min=0"`
	ProjectID           uuid.UUID        `json:"projectId"`
	AreaID              uuid.UUID        `json:"areaId"`
	BudgetID            *uuid.UUID       `json:"budgetId"`
	CategoryID          *uuid.UUID       `json:"categoryId"`
	SupplierID          *uuid.UUID       `json:"supplierId"`
	ManualSupplierName  *string          `json:"manualSupplierName"`
	TotalAmount         decimal.Decimal  `json:"totalAmount"         validate:"min=0"`
	ActualAmount        *decimal.Decimal `json:"actualAmount"`
	PurchaseOrderNumber *string          `json:"purchaseOrderNumber"`
	Observations        *string          `json:"observations"`
	HasMultiplePayments bool             `json:"hasMultiplePayments"`
}

// nonStringCreateFields are cleared by "" as well as by "null", matching the
// multipart decoding of the same form.
var nonStringCreateFields = map[string]bool{
	"quantity": true, "projectId": true, "areaId": true, "budgetId": true,
	"categoryId": true, "supplierId": true, "totalAmount": true, "actualAmount": true,
	"hasMultiplePayments": true,
}

// UnmarshalJSON treats the string "null" as JSON null so JSON and form
// clients clear optional fields the same way.
func (r *CreateRequirementRequest) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		v = bytes.TrimSpace(v)
		if bytes.Equal(v, []byte(`"null"`)) || (nonStringCreateFields[k] && bytes.Equal(v, []byte(`""`))) {
			raw[k] = json.RawMessage("null")
		}
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	type plain CreateRequirementRequest
	var out plain
	if err := json.Unmarshal(normalized, &out); err != nil {
		return err
	}
	*r = CreateRequirementRequest(out)
	return nil
}

type MassCreateRequest struct {
	Requirements []CreateRequirementRequest `json:"requirements" validate:"required,min=1,dive"`
}

// UpdateStatusRequest is a sparse patch: nil fields keep their stored value.
type UpdateStatusRequest struct {
	Status                 *string `json:"status"`
	ProcurementStatus      *string `json:"procurementStatus"`
	Remarks                string  `json:"remarks"`
	ReceivedAtSatisfaction *bool   `json:"receivedAtSatisfaction"`
	SatisfactionComments   *string `json:"satisfactionComments"`
}

type UpdateRequirementRequest struct {
	Title               Optional[string]          `json:"title"`
	Description         Optional[string]          `json:"description"`
	Quantity            Optional[int]             `json:"quantity"`
	BudgetID            Optional[uuid.UUID]       `json:"budgetId"`
	CategoryID          Optional[uuid.UUID]       `json:"categoryId"`
	SupplierID          Optional[uuid.UUID]       `json:"supplierId"`
	ManualSupplierName  Optional[string]          `json:"manualSupplierName"`
	TotalAmount         Optional[decimal.Decimal] `json:"totalAmount"`
	ActualAmount        Optional[decimal.Decimal] `json:"actualAmount"`
	PurchaseOrderNumber Optional[string]          `json:"purchaseOrderNumber"`
	InvoiceNumber       Optional[string]          `json:"invoiceNumber"`
	Observations        Optional[string]          `json:"observations"`
	RemoveAttachmentIDs []uuid.UUID               `json:"attachmentsToDelete"`
}

// FileUpload is a file received with a request, not yet stored.
type FileUpload struct {
	Name     string
	MimeType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// RequirementFilter narrows list queries. Year 0 means the current year.
type RequirementFilter struct {
	Year              int    `form:"year"`
	Status            string `form:"status"`
	ProcurementStatus string `form:"procurementStatus"`
	Mine              bool   `form:"mine"`
}

type GroupDecisionRequest struct {
	Comments string `json:"comments"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type GroupCreator struct {
	ID    *uuid.UUID `json:"id,omitempty"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
}

// PendingGroup is one entry of the pending-approval view. ID "0" is the
// synthetic bucket of requirements submitted individually.
type PendingGroup struct {
	ID           string              `json:"id"`
	CreatedBy    GroupCreator        `json:"createdBy"`
	PdfURL       *string             `json:"pdfUrl"`
	CreatedAt    time.Time           `json:"createdAt"`
	Requirements []model.Requirement `json:"requirements"`
}

type MassCreateResponse struct {
	Group        model.RequirementGroup `json:"group"`
	Requirements []model.Requirement    `json:"requirements"`
	PdfURL       string                 `json:"pdfUrl"`
}

type GroupDecisionResponse struct {
	Message     string `json:"message"`
	AllApproved bool   `json:"allApproved"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
