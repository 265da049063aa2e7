package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	audit := router.Group("/api/audit-logs")
	{
		audit.GET("", h.ListAuditLogs)
	}
}

// ListAuditLogs returns the audit trail, admin only
// @Summary      List audit logs
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default: 1)"
// @Param        limit   query     int     false  "Items per page (default: 20)"
// @Param        action  query     string  false  "Filter by action"
// @Success      200     {object}  response.Response
// @Failure      403     {object}  response.Response
// @Router       /api/audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	actor := middleware.Actor(c)
	if actor == nil || !actor.IsAdmin() {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied"))
		return
	}

	p := pagination.Parse(c)
	action := c.Query("action")

	logs, total, err := h.auditService.List(c.Request.Context(), action, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.Envelope(logs, total, p)))
}
