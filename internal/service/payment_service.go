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
	"github.com/shopspring/decimal"
)

// PaymentService is the Payment Account of a requirement: installments,
// their caps and the procurement status they drive.
type PaymentService interface {
	Create(ctx context.Context, actor Actor, requirementID uuid.UUID, req dto.CreatePaymentRequest) (*model.Payment, error)
	Update(ctx context.Context, actor Actor, paymentID uuid.UUID, req dto.UpdatePaymentRequest) (*model.Payment, error)
	Delete(ctx context.Context, actor Actor, paymentID uuid.UUID) error
	ToggleMultiple(ctx context.Context, actor Actor, requirementID uuid.UUID, enabled bool) (*model.Requirement, error)
	List(ctx context.Context, actor Actor, requirementID uuid.UUID) ([]model.Payment, error)
}

type paymentService struct {
	store *repository.Store
	now   func() time.Time
}

func NewPaymentService(store *repository.Store) PaymentService {
	return &paymentService{store: store, now: time.Now}
}

func (s *paymentService) Create(ctx context.Context, actor Actor, requirementID uuid.UUID, req dto.CreatePaymentRequest) (*model.Payment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apierror.InvalidInputCode(apierror.CodeInvalidAmount, "El monto del pago debe ser mayor a cero")
	}

	var p *model.Payment
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		rq, err := r.Requirements.FindForUpdate(ctx, requirementID)
		if err != nil {
			return notFoundOr(err, "Requerimiento no encontrado")
		}
		existing, err := r.Payments.ListByRequirement(ctx, requirementID)
		if err != nil {
			return internal("listar pagos", err)
		}
		if !rq.HasMultiplePayments && len(existing) > 0 {
			return apierror.BusinessRule(apierror.CodeMultiplePaymentsDisabled,
				"El requerimiento no admite pagos multiples")
		}
		if len(existing) >= model.MaxPaymentsPerRequirement {
			return apierror.BusinessRule(apierror.CodeMaxPaymentsReached,
				fmt.Sprintf("Se alcanzo el maximo de %d pagos", model.MaxPaymentsPerRequirement))
		}

		total := rq.PayableTotal()
		paid := sumPayments(existing, uuid.Nil).Add(req.Amount)
		if err := checkWithinTotal(paid, total); err != nil {
			return err
		}

		p = &model.Payment{
			RequirementID: requirementID,
			PaymentNumber: len(existing) + 1,
			Amount:        req.Amount,
			InvoiceNumber: req.InvoiceNumber,
			PaymentDate:   s.now(),
			Observations:  req.Observations,
		}
		if req.PaymentDate != nil {
			p.PaymentDate = req.PaymentDate.Time
		}
		if err := r.Payments.Create(ctx, p); err != nil {
			return internal("registrar pago", err)
		}

		if total.IsPositive() {
			if err := reconcileProcurement(ctx, r, rq, paid.GreaterThanOrEqual(total), actor); err != nil {
				return err
			}
		}
		return logRequirement(ctx, r, requirementID, model.ActionPaymentRegistered, joinDetails([]string{
			fmt.Sprintf("Pago #%d por %s", p.PaymentNumber, fmtMoney(p.Amount)),
			"Factura: " + orDefault(deref(p.InvoiceNumber), "-"),
			"Registrado por " + actorLabel(actor),
		}), actor)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// reconcileProcurement moves the requirement to FINALIZADO when fully paid,
// EN_TRAMITE otherwise. It writes STATUS_UPDATED only on an actual change.
func reconcileProcurement(ctx context.Context, r repository.Repos, rq *model.Requirement, fullyPaid bool, actor Actor) error {
	next := model.ProcurementEnTramite
	if fullyPaid {
		next = model.ProcurementFinalizado
	}
	if next == rq.ProcurementStatus {
		return nil
	}
	if err := r.Requirements.UpdateFields(ctx, rq.ID, map[string]interface{}{"procurement_status": next}); err != nil {
		return internal("actualizar estado de compra", err)
	}
	prev := rq.ProcurementStatus
	rq.ProcurementStatus = next
	return logRequirement(ctx, r, rq.ID, model.ActionStatusUpdated,
		fmt.Sprintf("Estado de compra: %s -> %s (por pagos)", prev, next), actor)
}

func sumPayments(ps []model.Payment, exclude uuid.UUID) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range ps {
		if p.ID != exclude {
			sum = sum.Add(p.Amount)
		}
	}
	return sum
}

func checkWithinTotal(paid, total decimal.Decimal) error {
	if total.IsPositive() && paid.GreaterThan(total) {
		return apierror.BusinessRule(apierror.CodeAmountExceedsRequirement,
			fmt.Sprintf("La suma de pagos (%s) supera el total del requerimiento (%s)", fmtMoney(paid), fmtMoney(total)))
	}
	return nil
}

func (s *paymentService) Update(ctx context.Context, actor Actor, paymentID uuid.UUID, req dto.UpdatePaymentRequest) (*model.Payment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if req.Amount.Set && (req.Amount.Null || !req.Amount.Value.IsPositive()) {
		return nil, apierror.InvalidInputCode(apierror.CodeInvalidAmount, "El monto del pago debe ser mayor a cero")
	}
	if req.PaymentDate.Set && req.PaymentDate.Null {
		return nil, apierror.InvalidInput("La fecha de pago no puede quedar vacia")
	}

	var p *model.Payment
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		var err error
		if p, err = r.Payments.FindByID(ctx, paymentID); err != nil {
			return notFoundOr(err, "Pago no encontrado")
		}
		rq, err := r.Requirements.FindForUpdate(ctx, p.RequirementID)
		if err != nil {
			return notFoundOr(err, "Requerimiento no encontrado")
		}

		fields := map[string]interface{}{}
		if req.Amount.HasValue() {
			existing, err := r.Payments.ListByRequirement(ctx, rq.ID)
			if err != nil {
				return internal("listar pagos", err)
			}
			paid := sumPayments(existing, p.ID).Add(req.Amount.Value)
			if err := checkWithinTotal(paid, rq.PayableTotal()); err != nil {
				return err
			}
			fields["amount"] = req.Amount.Value
			p.Amount = req.Amount.Value
		}
		if req.InvoiceNumber.Set {
			fields["invoice_number"] = req.InvoiceNumber.Ptr()
			p.InvoiceNumber = req.InvoiceNumber.Ptr()
		}
		if req.PaymentDate.HasValue() {
			fields["payment_date"] = req.PaymentDate.Value.Time
			p.PaymentDate = req.PaymentDate.Value.Time
		}
		if req.Observations.Set {
			fields["observations"] = req.Observations.Ptr()
			p.Observations = req.Observations.Ptr()
		}
		if len(fields) == 0 {
			return nil
		}
		if err := r.Payments.UpdateFields(ctx, p.ID, fields); err != nil {
			return internal("actualizar pago", err)
		}
		return logRequirement(ctx, r, rq.ID, model.ActionPaymentUpdated,
			fmt.Sprintf("Pago #%d actualizado por %s (monto %s)", p.PaymentNumber, actorLabel(actor), fmtMoney(p.Amount)), actor)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *paymentService) Delete(ctx context.Context, actor Actor, paymentID uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.can(policy.DeletePayment) {
		return apierror.Forbidden("No tiene permisos para eliminar pagos")
	}
	return s.store.WithinTx(ctx, func(r repository.Repos) error {
		p, err := r.Payments.FindByID(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "Pago no encontrado")
		}
		if err := r.Payments.Delete(ctx, p.ID); err != nil {
			return internal("eliminar pago", err)
		}
		return logRequirement(ctx, r, p.RequirementID, model.ActionPaymentDeleted,
			fmt.Sprintf("Pago #%d por %s eliminado por %s", p.PaymentNumber, fmtMoney(p.Amount), actorLabel(actor)), actor)
	})
}

func (s *paymentService) ToggleMultiple(ctx context.Context, actor Actor, requirementID uuid.UUID, enabled bool) (*model.Requirement, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	err := s.store.Requirements.UpdateFields(ctx, requirementID, map[string]interface{}{"has_multiple_payments": enabled})
	if err != nil {
		return nil, notFoundOr(err, "Requerimiento no encontrado")
	}
	rq, err := s.store.Requirements.FindByID(ctx, requirementID)
	if err != nil {
		return nil, notFoundOr(err, "Requerimiento no encontrado")
	}
	return rq, nil
}

func (s *paymentService) List(ctx context.Context, actor Actor, requirementID uuid.UUID) ([]model.Payment, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if _, err := s.store.Requirements.FindByID(ctx, requirementID); err != nil {
		return nil, notFoundOr(err, "Requerimiento no encontrado")
	}
	out, err := s.store.Payments.ListByRequirement(ctx, requirementID)
	return out, internal("listar pagos", err)
}
