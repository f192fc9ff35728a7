package service

import (
	"context"
	"fmt"
	"time"

	"miscompras/internal/apierror"
	"miscompras/internal/dto"
	"miscompras/internal/infra"
	"miscompras/internal/model"
	"miscompras/internal/policy"
	"miscompras/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GroupService creates requirement batches and drives their collective
// approval.
type GroupService interface {
	Create(ctx context.Context, actor Actor, drafts []dto.CreateRequirementRequest) (*dto.MassCreateResponse, error)
	Approve(ctx context.Context, actor Actor, groupID uuid.UUID, comments string) (*dto.GroupDecisionResponse, error)
	Reject(ctx context.Context, actor Actor, groupID uuid.UUID, comments string) (*dto.MessageResponse, error)
	ListPending(ctx context.Context, actor Actor, year int) ([]dto.PendingGroup, error)
}

type groupService struct {
	store    *repository.Store
	files    FileStore
	renderer DocumentRenderer
	notifier NotificationService
	now      func() time.Time
}

func NewGroupService(store *repository.Store, files FileStore, renderer DocumentRenderer, notifier NotificationService) GroupService {
	return &groupService{store: store, files: files, renderer: renderer, notifier: notifier, now: time.Now}
}

// Create stores the group, its requirements, the summary PDF and one
// attachment per requirement in a single transaction.
func (s *groupService) Create(ctx context.Context, actor Actor, drafts []dto.CreateRequirementRequest) (*dto.MassCreateResponse, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, apierror.InvalidInput("Debe enviar al menos un requerimiento")
	}
	for i, d := range drafts {
		if err := validateDraft(d); err != nil {
			return nil, apierror.InvalidInputCode(apierror.CodeOf(err), fmt.Sprintf("Requerimiento %d: %v", i+1, err))
		}
	}

	var (
		resp dto.MassCreateResponse
		pdf  *storedUpload
	)
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		group := &model.RequirementGroup{CreatedByID: actor.ID}
		if err := r.Groups.Create(ctx, group); err != nil {
			return internal("crear grupo", err)
		}

		year := s.now().Year()
		created := make([]model.Requirement, 0, len(drafts))
		for _, d := range drafts {
			budgetID, err := resolveBudgetID(ctx, r, d.BudgetID, d.ProjectID, d.AreaID, year)
			if err != nil {
				return err
			}
			rq := newRequirement(d, actor.ID, year)
			rq.BudgetID = budgetID
			rq.GroupID = &group.ID
			if err := r.Requirements.Create(ctx, rq); err != nil {
				return internal("crear requerimiento del grupo", err)
			}
			if rq.BudgetID != nil && rq.ActualAmount.Valid {
				if err := decrementBudget(ctx, r, *rq.BudgetID, rq.ActualAmount.Decimal); err != nil {
					return err
				}
			}
			created = append(created, *rq)
		}

		creator, err := r.Users.FindByID(ctx, actor.ID)
		if err != nil {
			return notFoundOr(err, "Usuario creador no encontrado")
		}

		summary, err := s.summary(ctx, r, group, creator, created)
		if err != nil {
			return err
		}
		stored, err := s.renderer.RenderGroupSummary(ctx, summary)
		if err != nil {
			return apierror.Dependency("No se pudo generar el PDF del grupo", err)
		}
		pdf = &storedUpload{StoredFile: stored, MimeType: "application/pdf"}
		if err := r.Groups.SetPdfURL(ctx, group.ID, stored.URL); err != nil {
			return internal("guardar PDF del grupo", err)
		}
		group.PdfURL = strPtr(stored.URL)

		ids := make([]uuid.UUID, 0, len(created))
		for _, rq := range created {
			if err := attachStored(ctx, r, rq.ID, []storedUpload{*pdf}); err != nil {
				return err
			}
			if err := logRequirement(ctx, r, rq.ID, model.ActionCreated,
				fmt.Sprintf("Requerimiento creado en solicitud grupal por %s", actorLabel(actor)), actor); err != nil {
				return err
			}
			ids = append(ids, rq.ID)
		}
		if err := logGroup(ctx, r, group.ID, ids, model.ActionGroupCreated,
			fmt.Sprintf("Solicitud grupal de %d requerimientos creada por %s", len(ids), actorLabel(actor)), actor); err != nil {
			return err
		}

		resp.Group = *group
		resp.Requirements = created
		resp.PdfURL = stored.URL
		return nil
	})
	if err != nil {
		if pdf != nil {
			removePath(s.files, pdf.Path)
		}
		return nil, err
	}

	log.Info().Str("group_id", resp.Group.ID.String()).Int("requirements", len(resp.Requirements)).Msg("requirement group created")
	s.notifier.NotifyRoles(ctx, policy.Roles(policy.NotifyOnGroupCreate), nil, NotificationDraft{
		Title:   "Nueva solicitud grupal",
		Message: fmt.Sprintf("%s envio %d requerimientos para aprobacion", actorLabel(actor), len(resp.Requirements)),
		Type:    model.NotificationInfo,
	})
	return &resp, nil
}

func (s *groupService) summary(ctx context.Context, r repository.Repos, g *model.RequirementGroup, creator *model.User, reqs []model.Requirement) (infra.GroupSummary, error) {
	areas, err := r.Catalog.ListAreas(ctx)
	if err != nil {
		return infra.GroupSummary{}, internal("listar areas", err)
	}
	names := make(map[uuid.UUID]string, len(areas))
	for _, a := range areas {
		names[a.ID] = a.Name
	}
	out := infra.GroupSummary{
		GroupID:      g.ID.String(),
		CreatorName:  creator.Name,
		CreatorEmail: creator.Email,
		CreatedAt:    s.now(),
	}
	for _, rq := range reqs {
		out.Items = append(out.Items, infra.GroupSummaryItem{
			Title:       rq.Title,
			Description: deref(rq.Description),
			Area:        orDefault(names[rq.AreaID], "N/A"),
			Amount:      rq.TotalAmount,
		})
	}
	return out, nil
}

func (s *groupService) Approve(ctx context.Context, actor Actor, groupID uuid.UUID, comments string) (*dto.GroupDecisionResponse, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.can(policy.ReviewGroup) {
		return nil, apierror.Forbidden("No tiene permisos para revisar solicitudes grupales")
	}

	var fields map[string]interface{}
	switch {
	case actor.can(policy.CoordinatorApproval):
		fields = map[string]interface{}{"coordinator_approval": true, "coordinator_comment": strPtr(comments)}
	case actor.can(policy.SeniorApproval):
		fields = map[string]interface{}{"director_approval": true, "director_comment": strPtr(comments)}
	default:
		return nil, apierror.Forbidden("Su rol no puede aprobar solicitudes grupales")
	}

	var (
		allApproved bool
		creators    []uuid.UUID
	)
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		members, err := s.members(ctx, r, groupID)
		if err != nil {
			return err
		}
		if err := r.Requirements.UpdateByGroup(ctx, groupID, fields); err != nil {
			return internal("aprobar grupo", err)
		}
		if members, err = r.Requirements.FindByGroup(ctx, groupID); err != nil {
			return internal("releer grupo", err)
		}
		allApproved = policy.IsGroupFullyApproved(members, actor.Role)
		if allApproved {
			if err := r.Requirements.UpdateByGroup(ctx, groupID, map[string]interface{}{"status": model.StatusApproved}); err != nil {
				return internal("aprobar grupo", err)
			}
		}
		creators = creatorIDs(members)
		details := []string{
			"Aprobado por " + actorLabel(actor) + " (" + actor.Role + ")",
			"Comentario: " + orDefault(comments, "Sin comentarios"),
		}
		if allApproved {
			details = append(details, "Grupo aprobado completamente")
		}
		return logGroup(ctx, r, groupID, memberIDs(members), model.ActionGroupApproved, joinDetails(details), actor)
	})
	if err != nil {
		return nil, err
	}

	msg := "Aprobacion registrada; pendiente de la otra instancia"
	if allApproved {
		msg = "Solicitud grupal aprobada"
		s.notifier.NotifyUsers(ctx, creators, NotificationDraft{
			Title:   "Solicitud grupal aprobada",
			Message: fmt.Sprintf("Su solicitud grupal fue aprobada por %s", actorLabel(actor)),
			Type:    model.NotificationSuccess,
		})
	}
	return &dto.GroupDecisionResponse{Message: msg, AllApproved: allApproved}, nil
}

func (s *groupService) Reject(ctx context.Context, actor Actor, groupID uuid.UUID, comments string) (*dto.MessageResponse, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.can(policy.ReviewGroup) {
		return nil, apierror.Forbidden("No tiene permisos para revisar solicitudes grupales")
	}
	commentCol := "director_comment"
	if actor.Role == model.RoleCoordinator {
		commentCol = "coordinator_comment"
	}

	var creators []uuid.UUID
	err := s.store.WithinTx(ctx, func(r repository.Repos) error {
		members, err := s.members(ctx, r, groupID)
		if err != nil {
			return err
		}
		fields := map[string]interface{}{"status": model.StatusRejected, commentCol: strPtr(comments)}
		if err := r.Requirements.UpdateByGroup(ctx, groupID, fields); err != nil {
			return internal("rechazar grupo", err)
		}
		creators = creatorIDs(members)
		return logGroup(ctx, r, groupID, memberIDs(members), model.ActionGroupRejected, joinDetails([]string{
			"Rechazado por " + actorLabel(actor) + " (" + actor.Role + ")",
			"Comentario: " + orDefault(comments, "Sin comentarios"),
		}), actor)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyUsers(ctx, creators, NotificationDraft{
		Title:   "Solicitud grupal rechazada",
		Message: fmt.Sprintf("Su solicitud grupal fue rechazada: %s", orDefault(comments, "Sin comentarios")),
		Type:    model.NotificationError,
	})
	return &dto.MessageResponse{Message: "Solicitud grupal rechazada"}, nil
}

// members loads the group and its requirements, NOT_FOUND if either is missing.
func (s *groupService) members(ctx context.Context, r repository.Repos, groupID uuid.UUID) ([]model.Requirement, error) {
	if _, err := r.Groups.FindByID(ctx, groupID); err != nil {
		return nil, notFoundOr(err, "Solicitud grupal no encontrada")
	}
	members, err := r.Requirements.FindByGroup(ctx, groupID)
	if err != nil {
		return nil, internal("listar requerimientos del grupo", err)
	}
	if len(members) == 0 {
		return nil, apierror.NotFound("La solicitud grupal no tiene requerimientos")
	}
	return members, nil
}

// ListPending groups the visible PENDING_APPROVAL requirements of year by
// groupId. Ungrouped ones go to the synthetic group "0", emitted last.
func (s *groupService) ListPending(ctx context.Context, actor Actor, year int) ([]dto.PendingGroup, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if year == 0 {
		year = s.now().Year()
	}
	vis, err := resolveVisibility(ctx, s.store.Catalog, actor)
	if err != nil {
		return nil, err
	}
	reqs, err := s.store.Requirements.List(ctx, repository.RequirementFilter{Year: year, Status: model.StatusPendingApproval}, vis)
	if err != nil {
		return nil, internal("listar pendientes", err)
	}

	var (
		order      []uuid.UUID
		byGroup    = map[uuid.UUID][]model.Requirement{}
		individual []model.Requirement
	)
	for _, rq := range reqs {
		if rq.GroupID == nil {
			individual = append(individual, rq)
			continue
		}
		if _, ok := byGroup[*rq.GroupID]; !ok {
			order = append(order, *rq.GroupID)
		}
		byGroup[*rq.GroupID] = append(byGroup[*rq.GroupID], rq)
	}

	groups, err := s.store.Groups.FindByIDs(ctx, order)
	if err != nil {
		return nil, internal("listar grupos", err)
	}
	rows := make(map[uuid.UUID]model.RequirementGroup, len(groups))
	for _, g := range groups {
		rows[g.ID] = g
	}

	out := make([]dto.PendingGroup, 0, len(order)+1)
	for _, id := range order {
		members := byGroup[id]
		first := members[0]
		pg := dto.PendingGroup{ID: id.String(), CreatedAt: first.CreatedAt, Requirements: members}
		if g, ok := rows[id]; ok {
			pg.CreatedAt = g.CreatedAt
			pg.PdfURL = g.PdfURL
			pg.CreatedBy = groupCreator(g.CreatedBy, g.CreatedByID)
		} else {
			pg.CreatedBy = groupCreator(first.CreatedBy, first.CreatedByID)
		}
		out = append(out, pg)
	}
	if len(individual) > 0 {
		out = append(out, dto.PendingGroup{
			ID:           "0",
			CreatedBy:    dto.GroupCreator{Name: "Solicitudes Individuales", Email: ""},
			CreatedAt:    individual[0].CreatedAt,
			Requirements: individual,
		})
	}
	return out, nil
}

func groupCreator(u *model.User, id uuid.UUID) dto.GroupCreator {
	gc := dto.GroupCreator{ID: &id}
	if u != nil {
		gc.Name, gc.Email = u.Name, u.Email
	}
	return gc
}

func memberIDs(reqs []model.Requirement) []uuid.UUID {
	out := make([]uuid.UUID, len(reqs))
	for i, rq := range reqs {
		out[i] = rq.ID
	}
	return out
}

func creatorIDs(reqs []model.Requirement) []uuid.UUID {
	out := make([]uuid.UUID, 0, 1)
	seen := map[uuid.UUID]bool{}
	for _, rq := range reqs {
		if !seen[rq.CreatedByID] {
			seen[rq.CreatedByID] = true
			out = append(out, rq.CreatedByID)
		}
	}
	return out
}
