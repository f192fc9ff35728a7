package handler

import (
	"net/http"

	"miscompras/internal/dto"
	"miscompras/internal/service"

	"github.com/gin-gonic/gin"
)

type GroupsHandler struct{ svc service.GroupService }

func NewGroupsHandler(svc service.GroupService) *GroupsHandler { return &GroupsHandler{svc: svc} }

// MassCreate godoc
// @Summary Crear varios requerimientos en un solo envío
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MassCreateRequest true "Requerimientos"
// @Success 201 {object} dto.MassCreateResponse
// @Failure 422 {object} apierror.APIError
// @Failure 502 {object} apierror.APIError
// @Router /v1/requirements/mass [post]
func (h *GroupsHandler) MassCreate(c *gin.Context) {
	var req dto.MassCreateRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), actor(c), req.Requirements)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Approve godoc
// @Summary Aprobar grupo de requerimientos
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Param body body dto.GroupDecisionRequest false "Comentarios"
// @Success 200 {object} dto.GroupDecisionResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/groups/{id}/approve [post]
func (h *GroupsHandler) Approve(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, ok := bindDecision(c)
	if !ok {
		return
	}
	resp, err := h.svc.Approve(c.Request.Context(), actor(c), id, req.Comments)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reject godoc
// @Summary Rechazar grupo de requerimientos
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Param body body dto.GroupDecisionRequest false "Comentarios"
// @Success 200 {object} dto.MessageResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/groups/{id}/reject [post]
func (h *GroupsHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, ok := bindDecision(c)
	if !ok {
		return
	}
	resp, err := h.svc.Reject(c.Request.Context(), actor(c), id, req.Comments)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListPending godoc
// @Summary Grupos pendientes de aprobación
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param year query int false "Año"
// @Success 200 {array} dto.PendingGroup
// @Router /v1/groups/pending [get]
func (h *GroupsHandler) ListPending(c *gin.Context) {
	year, ok := queryYear(c)
	if !ok {
		return
	}
	resp, err := h.svc.ListPending(c.Request.Context(), actor(c), year)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// bindDecision tolerates an empty body.
func bindDecision(c *gin.Context) (dto.GroupDecisionRequest, bool) {
	var req dto.GroupDecisionRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	return req, bindAndValidate(c, &req)
}
