package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"miscompras/internal/apierror"
	"miscompras/internal/dto"
	"miscompras/internal/model"
	"miscompras/internal/policy"
	"miscompras/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// RequirementService owns the lifecycle of a single requirement: its status,
// its procurement status and the budget reconciliation of actualAmount.
type RequirementService interface {
	Create(ctx context.Context, actor Actor, req dto.CreateRequirementRequest, files []dto.FileUpload) (*model.Requirement, error)
	CreateAsiento(ctx context.Context, actor Actor, req dto.CreateRequirementRequest, files []dto.FileUpload) (*model.Requirement, error)
	UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateStatusRequest) (*model.Requirement, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateRequirementRequest, files []dto.FileUpload) (*model.Requirement, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Requirement, error)
	List(ctx context.Context, actor Actor, f dto.RequirementFilter) ([]model.Requirement, error)
	History(ctx context.Context, actor Actor, id uuid.UUID) ([]model.HistoryLog, error)
}

type requirementService struct {
	store    *repository.Store
	files    FileStore
	notifier NotificationService
	now      func() time.Time
}

func NewRequirementService(store *repository.Store, files FileStore, notifier NotificationService) RequirementService {
	return &requirementService{store: store, files: files, notifier: notifier, now: time.Now}
}

// validateDraft checks the fields every creation path requires.
func validateDraft(req dto.CreateRequirementRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return apierror.InvalidInput("El titulo es obligatorio")
	}
	if req.ProjectID == uuid.Nil || req.AreaID == uuid.Nil {
		return apierror.InvalidInput("projectId y areaId son obligatorios")
	}
	if req.TotalAmount.IsNegative() {
		return apierror.InvalidInputCode(apierror.CodeInvalidAmount, "totalAmount no puede ser negativo")
	}
	if req.ActualAmount != nil && req.ActualAmount.IsNegative() {
		return apierror.InvalidInputCode(apierror.CodeInvalidAmount, "actualAmount no puede ser negativo")
	}
	return nil
}

// newRequirement maps a draft onto a PENDING_APPROVAL requirement.
func newRequirement(req dto.CreateRequirementRequest, creatorID uuid.UUID, year int) *model.Requirement {
	qty := req.Quantity
	if qty <= 0 {
		qty = 1
	}
	rq := &model.Requirement{
		Year:                year,
		Title:               strings.TrimSpace(req.Title),
		Description:         req.Description,
		Quantity:            qty,
		ProjectID:           req.ProjectID,
		AreaID:              req.AreaID,
		CategoryID:          req.CategoryID,
		SupplierID:          req.SupplierID,
		ManualSupplierName:  req.ManualSupplierName,
		CreatedByID:         creatorID,
		TotalAmount:         req.TotalAmount,
		Status:              model.StatusPendingApproval,
		ProcurementStatus:   model.ProcurementPendiente,
		HasMultiplePayments: req.HasMultiplePayments,
		PurchaseOrderNumber: req.PurchaseOrderNumber,
		Observations:        req.Observations,
	}
	if req.ActualAmount != nil {
		rq.ActualAmount = decimal.NewNullDecimal(*req.ActualAmount)
	}
	return rq
}

func (s *requirementService) Create(ctx context.Context, actor Actor, req dto.CreateRequirementRequest, files []dto.FileUpload) (*model.Requirement, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := validateDraft(req); err != nil {
		return nil, err
	}
	saved, err := saveUploads(ctx, s.files, files)
	if err != nil {
		return nil, err
	}

	var created *model.Requirement
	err = s.store.WithinTx(ctx, func(r repository.Repos) error {
		year := s.now().Year()
		budgetID, err := resolveBudgetID(ctx, r, req.BudgetID, req.ProjectID, req.AreaID, year)
		if err != nil {
			return err
		}
		rq := newRequirement(req, actor.ID, year)
		rq.BudgetID = budgetID
		if err := r.Requirements.Create(ctx, rq); err != nil {
			return internal("crear requerimiento", err)
		}
		// a known cost at creation is charged like any later actualAmount edit
		if rq.BudgetID != nil && rq.ActualAmount.Valid {
			if err := decrementBudget(ctx, r, *rq.BudgetID, rq.ActualAmount.Decimal); err != nil {
				return err
			}
		}
		if err := attachStored(ctx, r, rq.ID, saved); err != nil {
			return err
		}
		created = rq
		return logRequirement(ctx, r, rq.ID, model.ActionCreated,
			fmt.Sprintf("Requerimiento creado por %s", actorLabel(actor)), actor)
	})
	if err != nil {
		removeFiles(s.files, saved)
		return nil, err
	}

	s.notifier.NotifyRoles(ctx, policy.Roles(policy.NotifyOnCreate), nil, NotificationDraft{
		Title:         "Nuevo requerimiento",
		Message:       fmt.Sprintf("%s registro el requerimiento \"%s\"", actorLabel(actor), created.Title),
		Type:          model.NotificationInfo,
		RequirementID: &created.ID,
	})
	return s.detail(ctx, created.ID)
}

func (s *requirementService) CreateAsiento(ctx context.Context, actor Actor, req dto.CreateRequirementRequest, files []dto.FileUpload) (*model.Requirement, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.can(policy.CreateAsiento) {
		return nil, apierror.Forbidden("No tiene permisos para registrar asientos")
	}
	if err := validateDraft(req); err != nil {
		return nil, err
	}
	if !req.TotalAmount.IsPositive() {
		return nil, apierror.InvalidInputCode(apierror.CodeInvalidAmount, "totalAmount debe ser mayor a cero")
	}
	saved, err := saveUploads(ctx, s.files, files)
	if err != nil {
		return nil, err
	}

	var created *model.Requirement
	err = s.store.WithinTx(ctx, func(r repository.Repos) error {
		year := s.now().Year()
		budgetID, err := resolveBudgetID(ctx, r, req.BudgetID, req.ProjectID, req.AreaID, year)
		if err != nil {
			return err
		}
		if budgetID == nil {
			return apierror.InvalidInput("Un asiento requiere un presupuesto")
		}
		rq := newRequirement(req, actor.ID, year)
		rq.BudgetID = budgetID
		rq.IsAsiento = true
		rq.Status = model.StatusApproved
		rq.ProcurementStatus = model.ProcurementEnTramite
		if !rq.ActualAmount.Valid {
			rq.ActualAmount = decimal.NewNullDecimal(req.TotalAmount)
		}
		if err := r.Requirements.Create(ctx, rq); err != nil {
			return internal("crear asiento", err)
		}
		if err := decrementBudget(ctx, r, *budgetID, req.TotalAmount); err != nil {
			return err
		}
		if err := attachStored(ctx, r, rq.ID, saved); err != nil {
			return err
		}
		created = rq
		return logRequirement(ctx, r, rq.ID, model.ActionAsientoCreated,
			fmt.Sprintf("Asiento registrado por %s por %s", actorLabel(actor), fmtMoney(req.TotalAmount)), actor)
	})
	if err != nil {
		removeFiles(s.files, saved)
		return nil, err
	}
	return s.detail(ctx, created.ID)
}

func (s *requirementService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateStatusRequest) (*model.Requirement, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.can(policy.UpdateStatus) {
		return nil, apierror.Forbidden("No tiene permisos para cambiar el estado")
	}
	if req.Status != nil && !model.IsValidStatus(*req.Status) {
		return nil, apierror.InvalidInput("Estado invalido: " + *req.Status)
	}
	if req.ProcurementStatus != nil && !model.IsValidProcurementStatus(*req.ProcurementStatus) {
		return nil, apierror.InvalidInput("Estado de compra invalido: " + *req.ProcurementStatus)
	}

	var rq *model.Requirement
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		var err error
		rq, err = r.Requirements.FindForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "Requerimiento no encontrado")
		}
		fields := map[string]interface{}{}
		if req.Status != nil {
			fields["status"] = *req.Status
			rq.Status = *req.Status
		}
		if req.ProcurementStatus != nil {
			fields["procurement_status"] = *req.ProcurementStatus
			rq.ProcurementStatus = *req.ProcurementStatus
		}
		if req.ReceivedAtSatisfaction != nil {
			fields["received_at_satisfaction"] = *req.ReceivedAtSatisfaction
		}
		if req.SatisfactionComments != nil {
			fields["satisfaction_comments"] = *req.SatisfactionComments
		}
		if strings.TrimSpace(req.Remarks) != "" {
			fields["remarks"] = req.Remarks
		}
		if len(fields) > 0 {
			if err := r.Requirements.UpdateFields(ctx, id, fields); err != nil {
				return internal("actualizar estado", err)
			}
		}
		details := joinDetails([]string{
			"Estado: " + rq.Status,
			"Estado de compra: " + rq.ProcurementStatus,
			"Actualizado por " + actorLabel(actor),
			"Comentario: " + orDefault(req.Remarks, "Sin comentarios"),
		})
		return logRequirement(ctx, r, id, model.ActionStatusUpdated, details, actor)
	})
	if err != nil {
		return nil, err
	}

	typ := model.NotificationInfo
	if rq.Status == model.StatusRejected {
		typ = model.NotificationError
	}
	s.notifier.NotifyUsers(ctx, []uuid.UUID{rq.CreatedByID}, NotificationDraft{
		Title:         "Actualizacion de requerimiento",
		Message:       fmt.Sprintf("Su requerimiento \"%s\" ahora esta en estado %s (%s)", rq.Title, rq.Status, rq.ProcurementStatus),
		Type:          typ,
		RequirementID: &id,
	})
	return s.detail(ctx, id)
}

func (s *requirementService) Update(ctx context.Context, actor Actor, id uuid.UUID, req dto.UpdateRequirementRequest, files []dto.FileUpload) (*model.Requirement, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.can(policy.EditRequirement) {
		return nil, apierror.Forbidden("No tiene permisos para editar requerimientos")
	}
	if err := validatePatch(req); err != nil {
		return nil, err
	}
	saved, err := saveUploads(ctx, s.files, files)
	if err != nil {
		return nil, err
	}

	var removed []model.Attachment
	err = s.store.WithinTx(ctx, func(r repository.Repos) error {
		rq, err := r.Requirements.FindForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, "Requerimiento no encontrado")
		}

		fields := map[string]interface{}{}
		patchString(fields, "title", req.Title)
		patchString(fields, "description", req.Description)
		patchString(fields, "manual_supplier_name", req.ManualSupplierName)
		patchString(fields, "invoice_number", req.InvoiceNumber)
		patchString(fields, "observations", req.Observations)
		patchUUID(fields, "budget_id", req.BudgetID)
		patchUUID(fields, "category_id", req.CategoryID)
		patchUUID(fields, "supplier_id", req.SupplierID)
		if req.Quantity.HasValue() {
			fields["quantity"] = req.Quantity.Value
		}
		if req.TotalAmount.Set {
			fields["total_amount"] = decimal.Zero
			if req.TotalAmount.HasValue() {
				fields["total_amount"] = req.TotalAmount.Value
			}
		}

		var changes []string
		nextBudget := rq.BudgetID
		if req.BudgetID.Set {
			if req.BudgetID.HasValue() {
				if _, err := r.Budgets.FindByID(ctx, req.BudgetID.Value); err != nil {
					return notFoundOr(err, "Presupuesto no encontrado")
				}
			}
			nextBudget = req.BudgetID.Ptr()
		}
		nextActual := rq.ActualAmount
		if req.ActualAmount.Set {
			nextActual = decimal.NullDecimal{}
			if req.ActualAmount.HasValue() {
				nextActual = decimal.NewNullDecimal(req.ActualAmount.Value)
			}
			if !sameAmount(rq.ActualAmount, nextActual) {
				fields["actual_amount"] = nextActual
				changes = append(changes, fmt.Sprintf("Valor real: %s -> %s",
					fmtMoney(amountOrZero(rq.ActualAmount)), fmtMoney(amountOrZero(nextActual))))
			}
		}
		if err := moveCharge(ctx, r, rq.BudgetID, nextBudget, amountOrZero(rq.ActualAmount), amountOrZero(nextActual)); err != nil {
			return err
		}
		if !sameUUID(rq.BudgetID, nextBudget) {
			changes = append(changes, fmt.Sprintf("Presupuesto: %s -> %s", budgetLabel(rq.BudgetID), budgetLabel(nextBudget)))
		}
		if req.PurchaseOrderNumber.Set {
			next := req.PurchaseOrderNumber.Ptr()
			if !sameString(rq.PurchaseOrderNumber, next) {
				fields["purchase_order_number"] = next
				changes = append(changes, fmt.Sprintf("Orden de compra: %s -> %s",
					orDefault(deref(rq.PurchaseOrderNumber), "-"), orDefault(deref(next), "-")))
			}
		}

		if len(fields) > 0 {
			if err := r.Requirements.UpdateFields(ctx, id, fields); err != nil {
				return internal("actualizar requerimiento", err)
			}
		}

		if len(req.RemoveAttachmentIDs) > 0 {
			removed, err = r.Attachments.FindForRequirement(ctx, id, req.RemoveAttachmentIDs)
			if err != nil {
				return internal("buscar adjuntos", err)
			}
			ids := make([]uuid.UUID, 0, len(removed))
			for _, a := range removed {
				ids = append(ids, a.ID)
			}
			if err := r.Attachments.DeleteByIDs(ctx, ids); err != nil {
				return internal("eliminar adjuntos", err)
			}
			if len(removed) > 0 {
				changes = append(changes, fmt.Sprintf("Adjuntos eliminados: %d", len(removed)))
			}
		}
		if err := attachStored(ctx, r, id, saved); err != nil {
			return err
		}
		if len(saved) > 0 {
			changes = append(changes, fmt.Sprintf("Adjuntos agregados: %d", len(saved)))
		}

		if len(changes) == 0 {
			return nil
		}
		changes = append(changes, "Editado por "+actorLabel(actor))
		return logRequirement(ctx, r, id, model.ActionUpdated, joinDetails(changes), actor)
	})
	if err != nil {
		removeFiles(s.files, saved)
		return nil, err
	}
	removeAttachmentFiles(ctx, s.files, s.store.Attachments, removed)
	return s.detail(ctx, id)
}

func validatePatch(req dto.UpdateRequirementRequest) error {
	if req.Title.Set && (req.Title.Null || strings.TrimSpace(req.Title.Value) == "") {
		return apierror.InvalidInput("El titulo no puede quedar vacio")
	}
	if req.Quantity.Set && (req.Quantity.Null || req.Quantity.Value < 1) {
		return apierror.InvalidInput("La cantidad debe ser al menos 1")
	}
	if req.TotalAmount.HasValue() && req.TotalAmount.Value.IsNegative() {
		return apierror.InvalidInputCode(apierror.CodeInvalidAmount, "totalAmount no puede ser negativo")
	}
	if req.ActualAmount.HasValue() && req.ActualAmount.Value.IsNegative() {
		return apierror.InvalidInputCode(apierror.CodeInvalidAmount, "actualAmount no puede ser negativo")
	}
	return nil
}

func (s *requirementService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.can(policy.DeleteRequirement) {
		return apierror.Forbidden("No tiene permisos para eliminar requerimientos")
	}

	var attachments []model.Attachment
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		if _, err := r.Requirements.FindForUpdate(ctx, id); err != nil {
			return notFoundOr(err, "Requerimiento no encontrado")
		}
		var err error
		if attachments, err = r.Attachments.ListByRequirement(ctx, id); err != nil {
			return internal("listar adjuntos", err)
		}
		steps := []struct {
			what string
			fn   func(context.Context, uuid.UUID) error
		}{
			{"historial", r.History.DeleteByRequirement},
			{"adjuntos", r.Attachments.DeleteByRequirement},
			{"notificaciones", r.Notifications.DeleteByRequirement},
			{"pagos", r.Payments.DeleteByRequirement},
			{"facturas", r.Invoices.UnlinkRequirement},
			{"requerimiento", r.Requirements.Delete},
		}
		for _, st := range steps {
			if err := st.fn(ctx, id); err != nil {
				return internal("eliminar "+st.what, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	removeAttachmentFiles(ctx, s.files, s.store.Attachments, attachments)
	log.Info().Str("requirement_id", id.String()).Str("actor", actorLabel(actor)).Msg("requirement deleted")
	return nil
}

func (s *requirementService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*model.Requirement, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	rq, err := s.detail(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisible(ctx, actor, rq); err != nil {
		return nil, err
	}
	return rq, nil
}

func (s *requirementService) checkVisible(ctx context.Context, actor Actor, rq *model.Requirement) error {
	if rq.CreatedByID == actor.ID {
		return nil
	}
	vis, err := resolveVisibility(ctx, s.store.Catalog, actor)
	if err != nil {
		return err
	}
	if vis.All {
		return nil
	}
	for _, a := range vis.AreaIDs {
		if a == rq.AreaID {
			return nil
		}
	}
	return apierror.Forbidden("No tiene acceso a este requerimiento")
}

func (s *requirementService) List(ctx context.Context, actor Actor, f dto.RequirementFilter) ([]model.Requirement, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	vis, err := resolveVisibility(ctx, s.store.Catalog, actor)
	if err != nil {
		return nil, err
	}
	rf := repository.RequirementFilter{
		Year:              f.Year,
		Status:            f.Status,
		ProcurementStatus: f.ProcurementStatus,
	}
	if rf.Year == 0 {
		rf.Year = s.now().Year()
	}
	if f.Mine {
		rf.CreatedBy = &actor.ID
	}
	out, err := s.store.Requirements.List(ctx, rf, vis)
	return out, internal("listar requerimientos", err)
}

func (s *requirementService) History(ctx context.Context, actor Actor, id uuid.UUID) ([]model.HistoryLog, error) {
	rq, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	out, err := s.store.History.ListForRequirement(ctx, id, rq.GroupID)
	return out, internal("listar historial", err)
}

func (s *requirementService) detail(ctx context.Context, id uuid.UUID) (*model.Requirement, error) {
	rq, err := s.store.Requirements.FindDetail(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Requerimiento no encontrado")
	}
	return rq, nil
}

// ── patch helpers ─────────────────────────────────────────────────────────────

func patchString(fields map[string]interface{}, col string, o dto.Optional[string]) {
	if o.Set {
		fields[col] = o.Ptr()
	}
}

func patchUUID(fields map[string]interface{}, col string, o dto.Optional[uuid.UUID]) {
	if o.Set {
		fields[col] = o.Ptr()
	}
}

// moveCharge reconciles the actualAmount charged against a budget. On the same
// budget only the delta moves; when the budget changes the old one gets its
// charge back and the new one is charged in full.
func moveCharge(ctx context.Context, r repository.Repos, from, to *uuid.UUID, charged, next decimal.Decimal) error {
	if sameUUID(from, to) {
		if to == nil {
			return nil
		}
		return decrementBudget(ctx, r, *to, next.Sub(charged))
	}
	if from != nil {
		if err := decrementBudget(ctx, r, *from, charged.Neg()); err != nil {
			return err
		}
	}
	if to != nil {
		return decrementBudget(ctx, r, *to, next)
	}
	return nil
}

func sameUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func budgetLabel(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}

func amountOrZero(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}

func sameAmount(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
