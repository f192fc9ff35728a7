package handler

import (
	"net/http"

	"miscompras/internal/dto"
	"miscompras/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentsHandler struct{ svc service.PaymentService }

func NewPaymentsHandler(svc service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{svc: svc}
}

// Create godoc
// @Summary Registrar pago de un requerimiento
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Requirement ID"
// @Param body body dto.CreatePaymentRequest true "Pago"
// @Success 201 {object} model.Payment
// @Failure 409 {object} apierror.APIError
// @Router /v1/requirements/{id}/payments [post]
func (h *PaymentsHandler) Create(c *gin.Context) {
	reqID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CreatePaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), actor(c), reqID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary Pagos de un requerimiento
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Requirement ID"
// @Success 200 {array} model.Payment
// @Router /v1/requirements/{id}/payments [get]
func (h *PaymentsHandler) List(c *gin.Context) {
	reqID, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), actor(c), reqID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Update godoc
// @Summary Modificar pago
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Param body body dto.UpdatePaymentRequest true "Campos a modificar"
// @Success 200 {object} model.Payment
// @Failure 409 {object} apierror.APIError
// @Router /v1/payments/{id} [put]
func (h *PaymentsHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdatePaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary Eliminar pago
// @Tags payments
// @Security BearerAuth
// @Param id path string true "Payment ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/payments/{id} [delete]
func (h *PaymentsHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actor(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Pago eliminado"})
}

// ToggleMultiple godoc
// @Summary Habilitar o deshabilitar pagos en cuotas
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Requirement ID"
// @Param body body dto.ToggleMultiplePaymentsRequest true "Estado"
// @Success 200 {object} model.Requirement
// @Router /v1/requirements/{id}/multiple-payments [patch]
func (h *PaymentsHandler) ToggleMultiple(c *gin.Context) {
	reqID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ToggleMultiplePaymentsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.ToggleMultiple(c.Request.Context(), actor(c), reqID, *req.Enabled)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
