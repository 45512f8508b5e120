package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Env       string          `mapstructure:"env"` // 环境: development, production
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	OpenFGA   OpenFGAConfig   `mapstructure:"openfga"`
	Keycloak  KeycloakConfig  `mapstructure:"keycloak"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Workflow  WorkflowConfig  `mapstructure:"workflow"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"` // postgres, sqlite
	Path            string `mapstructure:"path"`   // sqlite 文件路径
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 秒
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 秒
}

// OpenFGAConfig OpenFGA 配置
type OpenFGAConfig struct {
	APIURL  string `mapstructure:"api_url"`
	StoreID string `mapstructure:"store_id"`
	ModelID string `mapstructure:"model_id"`
}

// KeycloakConfig Keycloak 配置
type KeycloakConfig struct {
	Issuer  string `mapstructure:"issuer"`
	JWKSURL string `mapstructure:"jwks_url"`
	Secret  string `mapstructure:"secret"` // HS256 共享密钥,仅用于本地开发
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error
	Format string `mapstructure:"format"` // 日志格式: json, text
	Output string `mapstructure:"output"` // 输出位置: stdout, file, both
	File   string `mapstructure:"file"`   // output 为 file/both 时的文件路径
}

// WorkflowConfig 流程引擎配置
type WorkflowConfig struct {
	PrivilegedRoles    []string      `mapstructure:"privileged_roles"`     // 允许执行生命周期转换和跳过任务的角色
	MinReasonLength    int           `mapstructure:"min_reason_length"`    // 驳回/退回原因最少字符数
	MaxConflictRetries int           `mapstructure:"max_conflict_retries"` // 乐观锁冲突最多重试次数
	RoleSource         string        `mapstructure:"role_source"`          // database, openfga, file
	RoleFile           string        `mapstructure:"role_file"`            // role_source=file 时的角色文件
	RoleCacheTTL       time.Duration `mapstructure:"role_cache_ttl"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"` // Jaeger collector 地址
	ServiceName string `mapstructure:"service_name"`
}

// Load 加载配置,支持配置文件和环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.property-flow")
		// 配置文件不存在时使用默认值
		_ = v.ReadInConfig()
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Workflow.RoleSource {
	case "database", "openfga", "file":
	default:
		return fmt.Errorf("unsupported workflow.role_source %q", c.Workflow.RoleSource)
	}
	if c.Workflow.RoleSource == "file" && c.Workflow.RoleFile == "" {
		return fmt.Errorf("workflow.role_file is required when role_source is file")
	}
	if c.Workflow.MinReasonLength < 0 {
		return fmt.Errorf("workflow.min_reason_length must not be negative")
	}
	return nil
}

// IsProduction 判断是否为生产环境
func IsProduction(cfg *Config) bool {
	if cfg == nil {
		return false
	}
	return cfg.Env == "production"
}

// Default 返回默认配置
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	v.SetDefault("env", env)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.path", "property-flow.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "property_flow")
	v.SetDefault("database.sslmode", "disable")

	// 连接池(按环境区分)
	if env == "production" {
		v.SetDefault("database.max_idle_conns", 20)
		v.SetDefault("database.max_open_conns", 200)
		v.SetDefault("database.conn_max_lifetime", 3600)
		v.SetDefault("database.conn_max_idle_time", 300)
	} else {
		v.SetDefault("database.max_idle_conns", 10)
		v.SetDefault("database.max_open_conns", 100)
		v.SetDefault("database.conn_max_lifetime", 3600)
		v.SetDefault("database.conn_max_idle_time", 600)
	}

	v.SetDefault("openfga.api_url", "http://localhost:8081")
	v.SetDefault("openfga.store_id", "")
	v.SetDefault("openfga.model_id", "")

	v.SetDefault("keycloak.issuer", "")
	v.SetDefault("keycloak.jwks_url", "")
	v.SetDefault("keycloak.secret", "")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})
	v.SetDefault("cors.max_age", 86400)

	if env == "production" {
		v.SetDefault("log.level", "warn")
		v.SetDefault("log.format", "json")
	} else {
		v.SetDefault("log.level", "debug")
		v.SetDefault("log.format", "text")
	}
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/property-flow.log")

	v.SetDefault("workflow.privileged_roles", []string{"admin", "manager"})
	v.SetDefault("workflow.min_reason_length", 10)
	v.SetDefault("workflow.max_conflict_retries", 3)
	v.SetDefault("workflow.role_source", "database")
	v.SetDefault("workflow.role_file", "")
	v.SetDefault("workflow.role_cache_ttl", "1m")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", "property-flow")
}
