package service

import (
	"context"
	"fmt"
	"time"

	"miscompras/internal/apierror"
	"miscompras/internal/dto"
	"miscompras/internal/model"
	"miscompras/internal/policy"
	"miscompras/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// InvoiceService moves supplier invoices through
// RECEIVED → VERIFIED → APPROVED → PAID.
type InvoiceService interface {
	Create(ctx context.Context, actor Actor, req dto.CreateInvoiceRequest) (*model.Invoice, error)
	Verify(ctx context.Context, actor Actor, id uuid.UUID, req dto.VerifyInvoiceRequest) (*model.Invoice, error)
	Approve(ctx context.Context, actor Actor, id uuid.UUID) (*model.Invoice, error)
	Pay(ctx context.Context, actor Actor, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, actor Actor, f dto.InvoiceFilter) ([]model.Invoice, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Invoice, error)
}

type invoiceService struct {
	store *repository.Store
	now   func() time.Time
}

func NewInvoiceService(store *repository.Store) InvoiceService {
	return &invoiceService{store: store, now: time.Now}
}

func (s *invoiceService) Create(ctx context.Context, actor Actor, req dto.CreateInvoiceRequest) (*model.Invoice, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apierror.InvalidInputCode(apierror.CodeInvalidAmount, "El monto de la factura debe ser mayor a cero")
	}
	if req.RequirementID != nil {
		if _, err := s.store.Requirements.FindByID(ctx, *req.RequirementID); err != nil {
			return nil, notFoundOr(err, "Requerimiento no encontrado")
		}
	}
	inv := &model.Invoice{
		InvoiceNumber: req.InvoiceNumber,
		SupplierID:    req.SupplierID,
		RequirementID: req.RequirementID,
		Amount:        req.Amount,
		Year:          s.now().Year(),
		Status:        model.InvoiceReceived,
		Notes:         req.Notes,
		FileURL:       req.FileURL,
		CreatedByID:   actor.ID,
	}
	if req.IssueDate != nil {
		inv.IssueDate = &req.IssueDate.Time
		inv.Year = req.IssueDate.Year()
	}
	if req.DueDate != nil {
		inv.DueDate = &req.DueDate.Time
	}
	if err := s.store.Invoices.Create(ctx, inv); err != nil {
		return nil, internal("registrar factura", err)
	}
	return s.get(ctx, inv.ID)
}

// requireStatus enforces the ordered invoice pipeline.
func requireStatus(inv *model.Invoice, want string) error {
	if inv.Status != want {
		return apierror.BusinessRule(apierror.CodeInvalidTransition,
			fmt.Sprintf("La factura esta en estado %s; se requiere %s", inv.Status, want))
	}
	return nil
}

// Verify links the invoice to its purchase order, which must be APPROVED.
func (s *invoiceService) Verify(ctx context.Context, actor Actor, id uuid.UUID, req dto.VerifyInvoiceRequest) (*model.Invoice, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		inv, err := r.Invoices.FindForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "Factura no encontrada")
		}
		if err := requireStatus(inv, model.InvoiceReceived); err != nil {
			return err
		}
		target := inv.RequirementID
		if req.RequirementID != nil {
			target = req.RequirementID
		}
		if target == nil {
			return apierror.InvalidInput("Debe indicar la orden de compra (requirementId)")
		}
		rq, err := r.Requirements.FindByID(ctx, *target)
		if err != nil {
			return notFoundOr(err, "Orden de compra no encontrada")
		}
		if rq.Status != model.StatusApproved {
			return apierror.BusinessRule(apierror.CodePurchaseOrderNotApproved,
				"La orden de compra no esta aprobada")
		}
		return internal("verificar factura", r.Invoices.UpdateFields(ctx, id, map[string]interface{}{
			"status":         model.InvoiceVerified,
			"requirement_id": *target,
			"verified_at":    s.now(),
		}))
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

func (s *invoiceService) Approve(ctx context.Context, actor Actor, id uuid.UUID) (*model.Invoice, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.can(policy.ApproveInvoice) {
		return nil, apierror.Forbidden("No tiene permisos para aprobar facturas")
	}
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		inv, err := r.Invoices.FindForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "Factura no encontrada")
		}
		if err := requireStatus(inv, model.InvoiceVerified); err != nil {
			return err
		}
		return internal("aprobar factura", r.Invoices.UpdateFields(ctx, id, map[string]interface{}{
			"status":      model.InvoiceApproved,
			"approved_at": s.now(),
		}))
	})
	if err != nil {
		return nil, err
	}
	return s.get(ctx, id)
}

// Pay marks the invoice PAID and books it as payment number 1 of the linked
// requirement, without consulting the payments already registered.
func (s *invoiceService) Pay(ctx context.Context, actor Actor, id uuid.UUID) (*model.Invoice, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		inv, err := r.Invoices.FindForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "Factura no encontrada")
		}
		if err := requireStatus(inv, model.InvoiceApproved); err != nil {
			return err
		}
		if inv.RequirementID == nil {
			return apierror.NotFound("La factura no tiene un requerimiento vinculado")
		}
		if _, err := r.Requirements.FindForUpdate(ctx, *inv.RequirementID); err != nil {
			return notFoundOr(err, "Requerimiento vinculado no encontrado")
		}
		now := s.now()
		if err := r.Invoices.UpdateFields(ctx, id, map[string]interface{}{
			"status":  model.InvoicePaid,
			"paid_at": now,
		}); err != nil {
			return internal("pagar factura", err)
		}
		p := &model.Payment{
			RequirementID: *inv.RequirementID,
			PaymentNumber: 1,
			Amount:        inv.Amount,
			InvoiceNumber: strPtr(inv.InvoiceNumber),
			PaymentDate:   now,
			Observations:  strPtr("Pago de factura " + inv.InvoiceNumber),
		}
		if err := r.Payments.Create(ctx, p); err != nil {
			return internal("registrar pago de factura", err)
		}
		return logRequirement(ctx, r, *inv.RequirementID, model.ActionInvoicePaid,
			fmt.Sprintf("Factura %s pagada por %s (%s)", inv.InvoiceNumber, fmtMoney(inv.Amount), actorLabel(actor)), actor)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("invoice_id", id.String()).Msg("invoice paid")
	return s.get(ctx, id)
}

func (s *invoiceService) List(ctx context.Context, actor Actor, f dto.InvoiceFilter) ([]model.Invoice, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.can(policy.ViewAll) {
		return nil, apierror.Forbidden("No tiene permisos para ver facturas")
	}
	out, err := s.store.Invoices.List(ctx, repository.InvoiceFilter{Year: f.Year, Status: f.Status})
	return out, internal("listar facturas", err)
}

func (s *invoiceService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Invoice, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	inv, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.can(policy.ViewAll) && inv.CreatedByID != actor.ID {
		return nil, apierror.Forbidden("No tiene acceso a esta factura")
	}
	return inv, nil
}

func (s *invoiceService) get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, err := s.store.Invoices.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Factura no encontrada")
	}
	return inv, nil
}
