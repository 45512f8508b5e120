package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/property-flow/internal/auth"
	"github.com/mautops/property-flow/internal/model"
	"github.com/mautops/property-flow/internal/service"
)

// NotificationLister 通知查询
type NotificationLister interface {
	List(ctx context.Context, recipientID string, unreadOnly bool) ([]*model.NotificationModel, error)
}

// QueryController 只读查询控制器
type QueryController struct {
	notifications NotificationLister
	statistics    service.StatisticsService
	audit         service.AuditLogService
}

// NewQueryController 创建查询控制器
func NewQueryController(notifications NotificationLister, statistics service.StatisticsService, audit service.AuditLogService) *QueryController {
	return &QueryController{
		notifications: notifications,
		statistics:    statistics,
		audit:         audit,
	}
}

// ListNotifications 当前用户的通知
// @Summary      我的通知
// @Tags         通知
// @Produce      json
// @Param        unread query bool false "只返回未读"
// @Success      200  {object}  Response
// @Router       /notifications [get]
// @Security     BearerAuth
func (qc *QueryController) ListNotifications(c *gin.Context) {
	items, err := qc.notifications.List(c.Request.Context(), auth.UserID(c), c.Query("unread") == "true")
	if err != nil {
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, CodeInternal, "failed to list notifications", "")
		return
	}
	Success(c, items)
}

// Statistics 流程统计
// @Summary      流程统计
// @Tags         统计
// @Produce      json
// @Success      200  {object}  Response
// @Router       /statistics [get]
// @Security     BearerAuth
func (qc *QueryController) Statistics(c *gin.Context) {
	stats, err := qc.statistics.GetProcessStatistics(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, CodeInternal, "failed to get statistics", "")
		return
	}
	Success(c, stats)
}

// AuditLogs 流程审计日志
// @Summary      流程审计日志
// @Tags         流程
// @Produce      json
// @Param        id path string true "流程实例 ID"
// @Success      200  {object}  Response
// @Router       /processes/{id}/audit-logs [get]
// @Security     BearerAuth
func (qc *QueryController) AuditLogs(c *gin.Context) {
	logs, err := qc.audit.List(c.Request.Context(), "process", c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, CodeInternal, "failed to list audit logs", "")
		return
	}
	Success(c, logs)
}
