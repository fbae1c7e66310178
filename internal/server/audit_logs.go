package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"github.com/smallbiznis/karat/pkg/db/pagination"
)

type listAuditLogsQuery struct {
	Limit     string `form:"limit"`
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Action    string `form:"action"`
}

// ListAuditLogs serves either the most recent entries (limit) or a cursor page.
func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	limit, err := parseOptionalInt(query.Limit)
	if err != nil || (limit != nil && *limit <= 0) {
		AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
		return
	}

	if limit != nil && strings.TrimSpace(query.PageToken) == "" && strings.TrimSpace(query.Action) == "" {
		logs, err := s.auditSvc.ListRecent(c.Request.Context(), *limit)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if logs == nil {
			logs = []auditdomain.AuditLog{}
		}
		c.JSON(http.StatusOK, gin.H{"data": logs})
		return
	}

	pageSize := query.PageSize
	if pageSize == 0 && limit != nil {
		pageSize = *limit
	}
	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  pageSize,
		},
		Action: strings.TrimSpace(query.Action),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp.AuditLogs == nil {
		resp.AuditLogs = []auditdomain.AuditLog{}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
}

func (s *Server) ClearAuditLogs(c *gin.Context) {
	if err := s.auditSvc.Clear(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
