package handler

import (
	"net/http"

	"miscompras/internal/apierror"
	"miscompras/internal/dto"
	"miscompras/internal/service"

	"github.com/gin-gonic/gin"
)

type RequirementsHandler struct {
	svc       service.RequirementService
	maxUpload int64
}

// NewRequirementsHandler builds the handler. maxUpload bounds multipart bodies in bytes.
func NewRequirementsHandler(svc service.RequirementService, maxUpload int64) *RequirementsHandler {
	return &RequirementsHandler{svc: svc, maxUpload: maxUpload}
}

// bindCreate accepts either a JSON body or a multipart form with files.
func (h *RequirementsHandler) bindCreate(c *gin.Context) (dto.CreateRequirementRequest, []dto.FileUpload, bool) {
	var req dto.CreateRequirementRequest
	if !isMultipart(c) {
		return req, nil, bindAndValidate(c, &req)
	}
	form, err := readMultipart(c, h.maxUpload)
	if err != nil {
		fail(c, err)
		return req, nil, false
	}
	req, err = createRequestFromForm(form.Value)
	if err != nil {
		fail(c, err)
		return req, nil, false
	}
	if !validateStruct(c, &req) {
		return req, nil, false
	}
	return req, uploadsFrom(form.File[uploadField]), true
}

// Create godoc
// @Summary Crear requerimiento
// @Tags requirements
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateRequirementRequest true "Requerimiento"
// @Success 201 {object} model.Requirement
// @Failure 422 {object} apierror.APIError
// @Router /v1/requirements [post]
func (h *RequirementsHandler) Create(c *gin.Context) {
	req, files, ok := h.bindCreate(c)
	if !ok {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), actor(c), req, files)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CreateAsiento godoc
// @Summary Registrar asiento (requerimiento aprobado directamente)
// @Tags requirements
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateRequirementRequest true "Asiento"
// @Success 201 {object} model.Requirement
// @Failure 403 {object} apierror.APIError
// @Router /v1/requirements/asiento [post]
func (h *RequirementsHandler) CreateAsiento(c *gin.Context) {
	req, files, ok := h.bindCreate(c)
	if !ok {
		return
	}
	resp, err := h.svc.CreateAsiento(c.Request.Context(), actor(c), req, files)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// UpdateStatus godoc
// @Summary Actualizar estado del requerimiento
// @Tags requirements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Requirement ID"
// @Param body body dto.UpdateStatusRequest true "Cambios"
// @Success 200 {object} model.Requirement
// @Failure 404 {object} apierror.APIError
// @Router /v1/requirements/{id}/status [patch]
func (h *RequirementsHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.UpdateStatus(c.Request.Context(), actor(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary Editar requerimiento
// @Tags requirements
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Requirement ID"
// @Param body body dto.UpdateRequirementRequest true "Campos a modificar"
// @Success 200 {object} model.Requirement
// @Failure 404 {object} apierror.APIError
// @Router /v1/requirements/{id} [put]
func (h *RequirementsHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var (
		req   dto.UpdateRequirementRequest
		files []dto.FileUpload
	)
	if isMultipart(c) {
		form, err := readMultipart(c, h.maxUpload)
		if err != nil {
			fail(c, err)
			return
		}
		if req, err = updateRequestFromForm(form.Value); err != nil {
			fail(c, err)
			return
		}
		files = uploadsFrom(form.File[uploadField])
	} else if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), actor(c), id, req, files)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary Eliminar requerimiento
// @Tags requirements
// @Security BearerAuth
// @Param id path string true "Requirement ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/requirements/{id} [delete]
func (h *RequirementsHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Requerimiento eliminado"})
}

// Get godoc
// @Summary Obtener requerimiento
// @Tags requirements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Requirement ID"
// @Success 200 {object} model.Requirement
// @Failure 404 {object} apierror.APIError
// @Router /v1/requirements/{id} [get]
func (h *RequirementsHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// List godoc
// @Summary Listar requerimientos visibles
// @Tags requirements
// @Produce json
// @Security BearerAuth
// @Param year query int false "Año"
// @Param status query string false "Estado"
// @Param procurementStatus query string false "Estado de compra"
// @Param mine query bool false "Solo propios"
// @Success 200 {array} model.Requirement
// @Router /v1/requirements [get]
func (h *RequirementsHandler) List(c *gin.Context) {
	var f dto.RequirementFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), actor(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History godoc
// @Summary Historial del requerimiento
// @Tags requirements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Requirement ID"
// @Success 200 {array} model.HistoryLog
// @Router /v1/requirements/{id}/history [get]
func (h *RequirementsHandler) History(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.History(c.Request.Context(), actor(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
