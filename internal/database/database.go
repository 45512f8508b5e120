package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/property-flow/internal/config"
	"github.com/mautops/property-flow/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 从配置读取连接池参数,未设置的取默认值
func GetPoolConfig(cfg config.DatabaseConfig) *PoolConfig {
	pool := &PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if pool.MaxIdleConns == 0 {
		pool.MaxIdleConns = 10
	}
	if pool.MaxOpenConns == 0 {
		pool.MaxOpenConns = 100
	}
	if pool.ConnMaxLifetime == 0 {
		pool.ConnMaxLifetime = 3600
	}
	if pool.ConnMaxIdleTime == 0 {
		pool.ConnMaxIdleTime = 600
	}
	return pool
}

// Open 按驱动打开数据库
func Open(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		return postgres.Open(BuildDSN(cfg)), nil
	case "sqlite":
		// sqlite 同一时间只允许一个写入方,等待锁而不是直接报错
		return sqlite.Open(fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", cfg.Path)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Open(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	pool := GetPoolConfig(cfg)
	if cfg.Driver == "sqlite" {
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
	}
	sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// Models 需要迁移的全部模型
func Models() []interface{} {
	return []interface{}{
		&model.ProcessInstanceModel{},
		&model.StageModel{},
		&model.TaskModel{},
		&model.SubtaskModel{},
		&model.DocumentModel{},
		&model.PropertyModel{},
		&model.PropertyOwnerModel{},
		&model.StateHistoryModel{},
		&model.NotificationModel{},
		&model.UserRoleModel{},
		&model.AuditLogModel{},
	}
}

// Migrate 执行数据库迁移
// JSON 内容统一存为 text,postgres 与 sqlite 共用 AutoMigrate
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// CreateIndexes 创建组合索引
func CreateIndexes(db *gorm.DB) error {
	indexes := []struct {
		name string
		ddl  string
	}{
		{"idx_tasks_instance_stage", "CREATE INDEX IF NOT EXISTS idx_tasks_instance_stage ON process_tasks(proc_instance_id, stage_order_index, order_index)"},
		{"idx_tasks_instance_status_type", "CREATE INDEX IF NOT EXISTS idx_tasks_instance_status_type ON process_tasks(proc_instance_id, status, action_type)"},
		{"idx_subtasks_task_order", "CREATE INDEX IF NOT EXISTS idx_subtasks_task_order ON process_subtasks(task_id, order_index)"},
		{"idx_documents_property_status", "CREATE INDEX IF NOT EXISTS idx_documents_property_status ON documents(property_id, status)"},
		{"idx_documents_owner_status", "CREATE INDEX IF NOT EXISTS idx_documents_owner_status ON documents(owner_id, status)"},
		{"idx_history_instance_created", "CREATE INDEX IF NOT EXISTS idx_history_instance_created ON process_state_history(proc_instance_id, created_at)"},
		{"idx_notifications_recipient_read", "CREATE INDEX IF NOT EXISTS idx_notifications_recipient_read ON notifications(recipient_id, read_at)"},
		{"idx_audit_resource", "CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)"},
	}

	for _, idx := range indexes {
		if err := db.Exec(idx.ddl).Error; err != nil {
			return fmt.Errorf("failed to create %s: %w", idx.name, err)
		}
	}
	return nil
}

// ConnectWithRetry 带重试的数据库连接,重试间隔指数退避
func ConnectWithRetry(cfg config.DatabaseConfig, maxRetries int, retryInterval time.Duration, logger logrus.FieldLogger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = Connect(cfg)
		if err == nil {
			return db, nil
		}

		if i < maxRetries-1 {
			logger.WithError(err).WithField("attempt", i+1).Warn("database connection failed, retrying")
			time.Sleep(retryInterval)
			retryInterval *= 2
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(ctx context.Context, db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx) == nil
}
