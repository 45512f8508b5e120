package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mautops/property-flow/internal/api"
	"github.com/mautops/property-flow/internal/auth"
	"github.com/mautops/property-flow/internal/config"
	"github.com/mautops/property-flow/internal/database"
	"github.com/mautops/property-flow/internal/model"
	"github.com/mautops/property-flow/internal/notify"
	"github.com/mautops/property-flow/internal/repository"
	"github.com/mautops/property-flow/internal/service"
	"github.com/mautops/property-flow/internal/workflow"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testIssuer = "https://sso.example.com/realms/agency"
	testSecret = "dev-secret"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// testServer 路由测试环境
type testServer struct {
	db      *gorm.DB
	router  *gin.Engine
	emitter *notify.Emitter
	logs    *test.Hook
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

// setupServer 组装与生产一致的路由,限流关闭
func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	log, hook := test.NewNullLogger()

	roles := repository.NewUserRoleRepository(db)
	require.NoError(t, roles.Grant("admin-1", "admin"))
	require.NoError(t, roles.Grant("agent-1", "agent"))

	cfg := config.Default()
	cfg.RateLimit.Enabled = false

	emitter := notify.NewEmitter(db, nil, log)
	engine := workflow.NewEngine(db, roles, emitter, workflow.Options{
		PrivilegedRoles: []string{"admin"},
		Logger:          log,
	})
	audit := service.NewAuditLogService(repository.NewAuditLogRepository(db))

	router := api.SetupRoutes(api.RouterDeps{
		Config:            cfg,
		Logger:            log,
		Validator:         auth.NewSharedSecretValidator(testIssuer, testSecret),
		HealthController:  api.NewHealthController(db, nil),
		ProcessController: api.NewProcessController(service.NewProcessService(engine, audit, log)),
		QueryController:   api.NewQueryController(emitter, service.NewStatisticsService(db), audit),
	})
	return &testServer{db: db, router: router, emitter: emitter, logs: hook}
}

func token(t *testing.T, subject string) string {
	t.Helper()
	claims := &auth.KeycloakClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    testIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do 发送请求,user 为空时不带 token
func (s *testServer) do(t *testing.T, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, user))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// seedProcess 待审批流程,包含一个手工任务
func (s *testServer) seedProcess(t *testing.T) {
	t.Helper()
	require.NoError(t, repository.NewPropertyRepository(s.db).Create(&model.PropertyModel{
		ID: "prop-1", Status: workflow.PropertyPendingApproval, CreatedAt: baseTime, UpdatedAt: baseTime,
	}))
	require.NoError(t, repository.NewProcessRepository(s.db).Create(&model.ProcessInstanceModel{
		ID: "proc-1", TemplateID: "tpl-sale", PropertyID: "prop-1", RequestedBy: "requester-1",
		CurrentStatus: string(workflow.StatusPendingApproval), CreatedAt: baseTime, UpdatedAt: baseTime,
	}))
	require.NoError(t, repository.NewTaskRepository(s.db).Create(&model.TaskModel{
		ID: "task-1", ProcInstanceID: "proc-1", StageOrderIndex: 1, StageName: "Mandate",
		Title: "Sign mandate", ActionType: string(workflow.ActionManual),
		Status: string(workflow.TaskPending), IsMandatory: true, CreatedAt: baseTime, UpdatedAt: baseTime,
	}))
}

// successBody 解析成功响应的 data
func successBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Code int                    `json:"code"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 0, resp.Code)
	return resp.Data
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}
