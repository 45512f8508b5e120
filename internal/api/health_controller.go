package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/property-flow/internal/database"
	"gorm.io/gorm"
)

// HealthChecker 外部依赖健康检查
type HealthChecker interface {
	CheckHealth(ctx context.Context) bool
}

// HealthController 健康检查控制器
type HealthController struct {
	db      *gorm.DB
	openfga HealthChecker
}

// NewHealthController 创建健康检查控制器,openfga 未启用时传 nil
func NewHealthController(db *gorm.DB, openfga HealthChecker) *HealthController {
	return &HealthController{db: db, openfga: openfga}
}

// Check 健康检查
// @Summary      健康检查
// @Tags         系统
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthController) Check(c *gin.Context) {
	ctx := c.Request.Context()
	healthy := true
	checks := map[string]string{}

	if database.CheckHealth(ctx, h.db) {
		checks["database"] = "healthy"
	} else {
		healthy = false
		checks["database"] = "unhealthy"
	}

	if h.openfga == nil {
		checks["openfga"] = "not configured"
	} else if h.openfga.CheckHealth(ctx) {
		checks["openfga"] = "healthy"
	} else {
		healthy = false
		checks["openfga"] = "unhealthy"
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}
