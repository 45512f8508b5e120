package container

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/property-flow/internal/api"
	"github.com/mautops/property-flow/internal/auth"
	"github.com/mautops/property-flow/internal/config"
	"github.com/mautops/property-flow/internal/database"
	"github.com/mautops/property-flow/internal/metrics"
	"github.com/mautops/property-flow/internal/notify"
	"github.com/mautops/property-flow/internal/repository"
	"github.com/mautops/property-flow/internal/service"
	"github.com/mautops/property-flow/internal/websocket"
	"github.com/mautops/property-flow/internal/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const metricsInterval = 30 * time.Second

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、流程引擎、服务、客户端等
type Container struct {
	cfg       *config.Config
	logger    logrus.FieldLogger
	db        *gorm.DB
	fgaClient *auth.OpenFGAClient
	roles     *auth.CachedRoleResolver
	validator auth.TokenValidator
	hub       *websocket.Hub
	emitter   *notify.Emitter
	engine    *workflow.Engine
	collector *metrics.Collector

	processService    service.ProcessService
	auditLogService   service.AuditLogService
	statisticsService service.StatisticsService
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, logger logrus.FieldLogger) (*Container, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// 1. 初始化数据库(带重试机制)
	// 默认重试 3 次,初始间隔 1 秒,指数退避
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	c := &Container{cfg: cfg, logger: logger, db: db}
	if err := database.Migrate(db); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 初始化角色来源
	source, err := c.roleSource()
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	c.roles = auth.NewCachedRoleResolver(source, cfg.Workflow.RoleCacheTTL)

	// 3. 初始化通知推送
	c.hub = websocket.NewHub(logger)
	c.emitter = notify.NewEmitter(db, c.hub, logger)

	// 4. 初始化流程引擎
	c.engine = workflow.NewEngine(db, c.roles, c.emitter, workflow.Options{
		PrivilegedRoles:    cfg.Workflow.PrivilegedRoles,
		MinReasonLength:    cfg.Workflow.MinReasonLength,
		MaxConflictRetries: cfg.Workflow.MaxConflictRetries,
		Logger:             logger,
	})

	// 5. 初始化服务
	c.auditLogService = service.NewAuditLogService(repository.NewAuditLogRepository(db))
	c.processService = service.NewProcessService(c.engine, c.auditLogService, logger)
	c.statisticsService = service.NewStatisticsService(db)

	// 6. 初始化 Token 验证器
	// 配置了共享密钥时使用 HS256,仅用于本地开发
	if cfg.Keycloak.Secret != "" {
		c.validator = auth.NewSharedSecretValidator(cfg.Keycloak.Issuer, cfg.Keycloak.Secret)
	} else {
		c.validator = auth.NewKeycloakTokenValidator(cfg.Keycloak.Issuer, cfg.Keycloak.JWKSURL)
	}

	// 7. 初始化指标收集器
	c.collector = metrics.NewCollector(db, repository.NewProcessRepository(db), metricsInterval, logger)

	return c, nil
}

// roleSource 按 workflow.role_source 选择角色来源
func (c *Container) roleSource() (auth.RoleResolver, error) {
	switch c.cfg.Workflow.RoleSource {
	case "openfga":
		// 默认重试 3 次,初始间隔 1 秒,指数退避
		client, err := auth.NewOpenFGAClientWithRetry(c.cfg.OpenFGA.APIURL, c.cfg.OpenFGA.StoreID, c.cfg.OpenFGA.ModelID, 3, time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenFGA client: %w", err)
		}
		c.fgaClient = client
		return auth.NewOpenFGARoleResolver(client, c.cfg.Workflow.PrivilegedRoles), nil
	case "file":
		resolver, err := auth.LoadStaticRoleResolver(c.cfg.Workflow.RoleFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load role file: %w", err)
		}
		return resolver, nil
	default:
		return repository.NewUserRoleRepository(c.db), nil
	}
}

// Router 构建 HTTP 路由,tracing 可为空
func (c *Container) Router(tracing *api.Tracing) *gin.Engine {
	var fga api.HealthChecker
	if c.fgaClient != nil {
		fga = c.fgaClient
	}
	return api.SetupRoutes(api.RouterDeps{
		Config:            c.cfg,
		Logger:            c.logger,
		Validator:         c.validator,
		Tracing:           tracing,
		Hub:               c.hub,
		HealthController:  api.NewHealthController(c.db, fga),
		ProcessController: api.NewProcessController(c.processService),
		QueryController:   api.NewQueryController(c.emitter, c.statisticsService, c.auditLogService),
	})
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Engine 获取流程引擎
func (c *Container) Engine() *workflow.Engine {
	return c.engine
}

// Roles 获取带缓存的角色解析器
func (c *Container) Roles() *auth.CachedRoleResolver {
	return c.roles
}

// Hub 获取通知推送 Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Collector 获取指标收集器
func (c *Container) Collector() *metrics.Collector {
	return c.collector
}

// OpenFGAClient 获取 OpenFGA 客户端,role_source 不是 openfga 时为空
func (c *Container) OpenFGAClient() *auth.OpenFGAClient {
	return c.fgaClient
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
