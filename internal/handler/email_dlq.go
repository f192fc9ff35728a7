package handler

import (
	"net/http"
	"strconv"

	"miscompras/internal/apierror"
	"miscompras/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const maxDLQBatch = 100

// EmailDLQHandler lets administrators inspect and retry notification emails
// the worker pool gave up on.
type EmailDLQHandler struct{ rdb *redis.Client }

func NewEmailDLQHandler(rdb *redis.Client) *EmailDLQHandler { return &EmailDLQHandler{rdb: rdb} }

// List godoc
// @Summary Correos no entregados
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Máximo de entradas (1-100)"
// @Success 200 {array} worker.DLQEntry
// @Router /v1/admin/email-dlq [get]
func (h *EmailDLQHandler) List(c *gin.Context) {
	limit, ok := batchLimit(c)
	if !ok {
		return
	}
	entries, err := worker.DLQPeek(c.Request.Context(), h.rdb, worker.QueueEmail, int64(limit))
	if err != nil {
		fail(c, apierror.Dependency("No se pudo leer la cola de errores", err))
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Requeue godoc
// @Summary Reintentar correos no entregados
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Máximo de correos a reintentar (1-100)"
// @Success 200 {object} map[string]int
// @Router /v1/admin/email-dlq/requeue [post]
func (h *EmailDLQHandler) Requeue(c *gin.Context) {
	limit, ok := batchLimit(c)
	if !ok {
		return
	}
	n, err := worker.DLQRequeue(c.Request.Context(), h.rdb, worker.QueueEmail, limit)
	if err != nil {
		fail(c, apierror.Dependency("No se pudieron reencolar los correos", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"requeued": n})
}

func batchLimit(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("limit", "50")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxDLQBatch {
		fail(c, apierror.InvalidInput("limit debe estar entre 1 y 100"))
		return 0, false
	}
	return n, true
}
