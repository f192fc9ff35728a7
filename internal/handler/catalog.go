package handler

import (
	"context"
	"net/http"

	"miscompras/internal/service"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves the read-only lists used by the UI forms.
type CatalogHandler struct{ svc service.CatalogService }

func NewCatalogHandler(svc service.CatalogService) *CatalogHandler { return &CatalogHandler{svc: svc} }

func listing[T any](fn func(context.Context) ([]T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp, err := fn(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (h *CatalogHandler) Areas() gin.HandlerFunc      { return listing(h.svc.Areas) }
func (h *CatalogHandler) Projects() gin.HandlerFunc   { return listing(h.svc.Projects) }
func (h *CatalogHandler) Categories() gin.HandlerFunc { return listing(h.svc.Categories) }
func (h *CatalogHandler) Suppliers() gin.HandlerFunc  { return listing(h.svc.Suppliers) }
