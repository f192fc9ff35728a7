package handler

import (
	"net/http"

	"miscompras/internal/apierror"
	"miscompras/internal/dto"
	"miscompras/internal/service"

	"github.com/gin-gonic/gin"
)

type BudgetsHandler struct{ svc service.BudgetService }

func NewBudgetsHandler(svc service.BudgetService) *BudgetsHandler { return &BudgetsHandler{svc: svc} }

// Create godoc
// @Summary Crear presupuesto
// @Tags budgets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateBudgetRequest true "Presupuesto"
// @Success 201 {object} model.Budget
// @Failure 403 {object} apierror.APIError
// @Router /v1/budgets [post]
func (h *BudgetsHandler) Create(c *gin.Context) {
	var req dto.CreateBudgetRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *BudgetsHandler) List(c *gin.Context) {
	var f dto.BudgetFilter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BudgetsHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
