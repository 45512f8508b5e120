package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/property-flow/internal/auth"
	"github.com/mautops/property-flow/internal/config"
	"github.com/mautops/property-flow/internal/metrics"
	"github.com/mautops/property-flow/internal/websocket"
	"github.com/sirupsen/logrus"
)

// RouterDeps 路由依赖
// Tracing、Hub 为空时不注册对应中间件和路由
type RouterDeps struct {
	Config            *config.Config
	Logger            logrus.FieldLogger
	Validator         auth.TokenValidator
	Tracing           *Tracing
	Hub               *websocket.Hub
	HealthController  *HealthController
	ProcessController *ProcessController
	QueryController   *QueryController
}

// SetupRoutes 配置路由
func SetupRoutes(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if deps.Tracing != nil {
		router.Use(deps.Tracing.Middleware())
	}
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware(deps.Logger))
	router.Use(SecurityHeadersMiddleware(config.IsProduction(cfg)))
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(ErrorHandlerMiddleware())
	if cfg.RateLimit.Enabled {
		router.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	router.GET("/health", deps.HealthController.Check)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	if deps.Hub != nil {
		upgrader := websocket.NewUpgrader(cfg.CORS.AllowedOrigins)
		router.GET("/ws/notifications", websocket.NotificationHandler(deps.Hub, deps.Validator, upgrader))
	}

	v1 := router.Group("/api/v1")
	v1.Use(auth.KeycloakAuthMiddleware(deps.Validator))
	{
		processes := v1.Group("/processes")
		{
			processes.GET("/:id", deps.ProcessController.Get)
			processes.POST("/:id/recalc", deps.ProcessController.Recalc)
			processes.POST("/:id/auto-complete", deps.ProcessController.AutoComplete)
			processes.POST("/:id/transitions", deps.ProcessController.Transition)
			processes.GET("/:id/audit-logs", deps.QueryController.AuditLogs)
		}

		v1.POST("/subtasks/:id/toggle", deps.ProcessController.ToggleSubtask)

		tasks := v1.Group("/tasks")
		{
			tasks.POST("/:id/complete", deps.ProcessController.CompleteTask)
			tasks.POST("/:id/bypass", deps.ProcessController.BypassTask)
		}

		v1.GET("/notifications", deps.QueryController.ListNotifications)
		v1.GET("/statistics", deps.QueryController.Statistics)
	}

	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "ROUTE_NOT_FOUND", "route not found", c.Request.URL.Path)
	})

	return router
}
