package workflow_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/property-flow/internal/database"
	"github.com/mautops/property-flow/internal/model"
	"github.com/mautops/property-flow/internal/repository"
	"github.com/mautops/property-flow/internal/workflow"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// recordingNotifier 记录发出的通知
type recordingNotifier struct {
	mu   sync.Mutex
	sent []workflow.Notification
	err  error
}

func (n *recordingNotifier) Create(_ context.Context, notification workflow.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return n.err
}

func (n *recordingNotifier) Sent() []workflow.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]workflow.Notification(nil), n.sent...)
}

// testEnv 引擎测试环境
type testEnv struct {
	db       *gorm.DB
	engine   *workflow.Engine
	notifier *recordingNotifier
	logs     *test.Hook
}

// setupTestDB 创建独立的内存数据库
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

func setupEngine(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	roles := repository.NewUserRoleRepository(db)
	require.NoError(t, roles.Grant("admin-1", "admin"))
	require.NoError(t, roles.Grant("agent-1", "agent"))

	// 每次取时间前进一秒,保证历史记录按写入顺序排列
	var mu sync.Mutex
	ticks := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		ticks++
		return fixedNow.Add(time.Duration(ticks) * time.Second)
	}

	notifier := &recordingNotifier{}
	engine := workflow.NewEngine(db, roles, notifier, workflow.Options{
		PrivilegedRoles: []string{"admin", "manager"},
		Logger:          log,
		Now:             clock,
	})
	return &testEnv{db: db, engine: engine, notifier: notifier, logs: hook}
}

func (env *testEnv) admin(t *testing.T) workflow.Actor {
	t.Helper()
	actor, err := env.engine.ResolveActor(context.Background(), "admin-1")
	require.NoError(t, err)
	require.True(t, actor.Privileged)
	return actor
}

func (env *testEnv) agent(t *testing.T) workflow.Actor {
	t.Helper()
	actor, err := env.engine.ResolveActor(context.Background(), "agent-1")
	require.NoError(t, err)
	require.False(t, actor.Privileged)
	return actor
}

func (env *testEnv) createProperty(t *testing.T, id, status string, owners ...string) {
	t.Helper()
	repo := repository.NewPropertyRepository(env.db)
	require.NoError(t, repo.Create(&model.PropertyModel{
		ID:        id,
		Reference: "REF-" + id,
		Status:    status,
		CreatedAt: fixedNow,
		UpdatedAt: fixedNow,
	}))
	for _, owner := range owners {
		require.NoError(t, repo.AddOwner(id, owner))
	}
}

func (env *testEnv) createProcess(t *testing.T, id string, status workflow.ProcessStatus, propertyID string) {
	t.Helper()
	require.NoError(t, repository.NewProcessRepository(env.db).Create(&model.ProcessInstanceModel{
		ID:            id,
		TemplateID:    "tpl-sale",
		ExternalRef:   "PROC-" + id,
		PropertyID:    propertyID,
		RequestedBy:   "requester-1",
		CurrentStatus: string(status),
		CreatedAt:     fixedNow,
		UpdatedAt:     fixedNow,
	}))
}

// taskSpec 测试任务定义
type taskSpec struct {
	id        string
	stage     int
	action    workflow.ActionType
	status    workflow.TaskStatus
	config    string
	mandatory bool
	bypassed  bool
}

func (env *testEnv) createTasks(t *testing.T, procID string, specs ...taskSpec) {
	t.Helper()
	repo := repository.NewTaskRepository(env.db)
	for i, s := range specs {
		action := s.action
		if action == "" {
			action = workflow.ActionManual
		}
		status := s.status
		if status == "" {
			status = workflow.TaskPending
		}
		task := &model.TaskModel{
			ID:              s.id,
			ProcInstanceID:  procID,
			StageOrderIndex: s.stage,
			StageName:       fmt.Sprintf("Stage %d", s.stage),
			Title:           "Task " + s.id,
			OrderIndex:      i,
			ActionType:      string(action),
			Status:          string(status),
			IsMandatory:     s.mandatory,
			Config:          s.config,
			CreatedAt:       fixedNow,
			UpdatedAt:       fixedNow,
		}
		if status == workflow.TaskCompleted {
			task.CompletedAt = &fixedNow
		}
		require.NoError(t, repo.Create(task))
		if s.bypassed {
			// 创建时 is_bypassed 取列默认值,单独更新
			task.IsBypassed = true
			require.NoError(t, repo.UpdateWithVersion(task))
		}
	}
}

func (env *testEnv) createSubtask(t *testing.T, id, taskID string, mandatory bool, checkType workflow.CheckType) {
	t.Helper()
	require.NoError(t, repository.NewSubtaskRepository(env.db).Create(&model.SubtaskModel{
		ID:          id,
		TaskID:      taskID,
		Title:       "Subtask " + id,
		IsMandatory: mandatory,
		CheckType:   string(checkType),
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}))
}

// docSpec 测试文档定义
type docSpec struct {
	id         string
	docType    string
	propertyID string
	ownerID    string
	status     string
	validUntil *time.Time
	createdAt  time.Time
}

func (env *testEnv) createDocument(t *testing.T, s docSpec) {
	t.Helper()
	doc := &model.DocumentModel{
		ID:         s.id,
		DocTypeID:  s.docType,
		FileName:   s.id + ".pdf",
		ValidUntil: s.validUntil,
		Status:     s.status,
		CreatedAt:  s.createdAt,
	}
	if doc.Status == "" {
		doc.Status = workflow.DocumentActive
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = fixedNow.Add(-24 * time.Hour)
	}
	if s.propertyID != "" {
		doc.PropertyID = &s.propertyID
	}
	if s.ownerID != "" {
		doc.OwnerID = &s.ownerID
	}
	require.NoError(t, repository.NewDocumentRepository(env.db).Create(doc))
}

func (env *testEnv) process(t *testing.T, id string) *model.ProcessInstanceModel {
	t.Helper()
	proc, err := repository.NewProcessRepository(env.db).FindByID(id)
	require.NoError(t, err)
	return proc
}

func (env *testEnv) task(t *testing.T, id string) *model.TaskModel {
	t.Helper()
	task, err := repository.NewTaskRepository(env.db).FindByID(id)
	require.NoError(t, err)
	return task
}

func (env *testEnv) property(t *testing.T, id string) *model.PropertyModel {
	t.Helper()
	property, err := repository.NewPropertyRepository(env.db).FindByID(id)
	require.NoError(t, err)
	return property
}

func (env *testEnv) history(t *testing.T, procID string) []*model.StateHistoryModel {
	t.Helper()
	history, err := repository.NewStateHistoryRepository(env.db).FindByProcessID(procID)
	require.NoError(t, err)
	return history
}

func timeAt(t time.Time) *time.Time {
	return &t
}
