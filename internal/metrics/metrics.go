package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

const namespace = "property_flow"

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 生命周期转换数
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "process_transitions_total",
			Help:      "Total number of process lifecycle transitions",
		},
		[]string{"action", "to_status"},
	)

	// 进度重算次数
	progressRecalcTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_recalculations_total",
			Help:      "Total number of explicit progress recalculations",
		},
	)

	// 自动完成的任务数
	tasksAutoCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_auto_completed_total",
			Help:      "Total number of tasks completed from existing documents",
		},
		[]string{"source"}, // existing_document, owner_existing_document
	)

	// 子任务勾选次数
	subtaskTogglesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subtask_toggles_total",
			Help:      "Total number of manual subtask toggles",
		},
		[]string{"completed"},
	)

	// 乐观锁冲突次数
	versionConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_conflicts_total",
			Help:      "Total number of optimistic lock conflicts that triggered a retry",
		},
		[]string{"operation"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_active",
			Help:      "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_idle",
			Help:      "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "database_connections_max",
			Help:      "Maximum number of database connections",
		},
	)

	// 流程状态分布
	processesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processes_by_status",
			Help:      "Number of process instances by status",
		},
		[]string{"status"},
	)
)

var (
	once sync.Once
)

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDuration,
		transitionsTotal,
		progressRecalcTotal,
		tasksAutoCompletedTotal,
		subtaskTogglesTotal,
		versionConflictsTotal,
		databaseConnectionsActive,
		databaseConnectionsIdle,
		databaseConnectionsMax,
		processesByStatus,
	)

	// Go 运行时指标只注册一次,已注册时忽略错误
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	apiRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTransition 记录生命周期转换
func RecordTransition(action, toStatus string) {
	transitionsTotal.WithLabelValues(action, toStatus).Inc()
}

// RecordProgressRecalc 记录一次显式进度重算
func RecordProgressRecalc() {
	progressRecalcTotal.Inc()
}

// RecordTaskAutoCompleted 记录自动完成的任务
func RecordTaskAutoCompleted(source string) {
	tasksAutoCompletedTotal.WithLabelValues(source).Inc()
}

// RecordSubtaskToggle 记录子任务勾选
func RecordSubtaskToggle(completed bool) {
	subtaskTogglesTotal.WithLabelValues(strconv.FormatBool(completed)).Inc()
}

// RecordVersionConflict 记录乐观锁冲突
func RecordVersionConflict(operation string) {
	versionConflictsTotal.WithLabelValues(operation).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.InUse))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateProcessesByStatus 更新流程状态分布指标
func UpdateProcessesByStatus(counts map[string]int64) {
	processesByStatus.Reset()
	for status, count := range counts {
		processesByStatus.WithLabelValues(status).Set(float64(count))
	}
}
