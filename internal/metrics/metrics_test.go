package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type staticCounter struct {
	counts map[string]int64
	err    error
}

func (c *staticCounter) CountByStatus() (map[string]int64, error) {
	return c.counts, c.err
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(3)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// TestCollector_CollectOnce 测试采集状态分布和连接数
func TestCollector_CollectOnce(t *testing.T) {
	log, _ := test.NewNullLogger()
	counter := &staticCounter{counts: map[string]int64{"active": 4, "on_hold": 1}}
	collector := NewCollector(openDB(t), counter, time.Minute, log)

	collector.CollectOnce()
	assert.Equal(t, float64(4), testutil.ToFloat64(processesByStatus.WithLabelValues("active")))
	assert.Equal(t, float64(1), testutil.ToFloat64(processesByStatus.WithLabelValues("on_hold")))
	assert.Equal(t, float64(3), testutil.ToFloat64(databaseConnectionsMax))

	// 状态消失后旧值被清除
	counter.counts = map[string]int64{"completed": 5}
	collector.CollectOnce()
	assert.Equal(t, 1, testutil.CollectAndCount(processesByStatus))
	assert.Equal(t, float64(5), testutil.ToFloat64(processesByStatus.WithLabelValues("completed")))
}

// TestCollector_CountError 测试统计失败时保留上一次结果
func TestCollector_CountError(t *testing.T) {
	log, hook := test.NewNullLogger()
	UpdateProcessesByStatus(map[string]int64{"active": 2})

	collector := NewCollector(openDB(t), &staticCounter{err: errors.New("db down")}, time.Minute, log)
	collector.CollectOnce()

	assert.Equal(t, float64(2), testutil.ToFloat64(processesByStatus.WithLabelValues("active")))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "failed to count processes by status", hook.LastEntry().Message)
}

// TestCollector_StartStop 测试启动后立即采集并可停止
func TestCollector_StartStop(t *testing.T) {
	log, _ := test.NewNullLogger()
	collector := NewCollector(openDB(t), &staticCounter{counts: map[string]int64{"returned": 7}}, time.Hour, log)

	collector.Start()
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(processesByStatus.WithLabelValues("returned")) == 7
	}, time.Second, 10*time.Millisecond)
	collector.Stop()
}

// TestRecorders 测试领域计数器
func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(transitionsTotal.WithLabelValues("approve", "active"))
	RecordTransition("approve", "active")
	assert.Equal(t, before+1, testutil.ToFloat64(transitionsTotal.WithLabelValues("approve", "active")))

	before = testutil.ToFloat64(subtaskTogglesTotal.WithLabelValues("true"))
	RecordSubtaskToggle(true)
	assert.Equal(t, before+1, testutil.ToFloat64(subtaskTogglesTotal.WithLabelValues("true")))

	before = testutil.ToFloat64(versionConflictsTotal.WithLabelValues("toggle subtask"))
	RecordVersionConflict("toggle subtask")
	assert.Equal(t, before+1, testutil.ToFloat64(versionConflictsTotal.WithLabelValues("toggle subtask")))
}

// TestHandler 测试指标导出
func TestHandler(t *testing.T) {
	RecordTaskAutoCompleted("owner_existing_document")
	RecordProgressRecalc()
	RecordAPIRequest(http.MethodPost, "/api/v1/processes/:id/recalc", http.StatusOK, 0.01)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `property_flow_tasks_auto_completed_total{source="owner_existing_document"}`))
	assert.True(t, strings.Contains(body, "property_flow_progress_recalculations_total"))
	assert.True(t, strings.Contains(body, `property_flow_api_requests_total{method="POST",path="/api/v1/processes/:id/recalc",status="200"}`))
}
