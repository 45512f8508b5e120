package workflow_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/mautops/property-flow/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// bumpVersionOnUpdate 在 table 的行写入前模拟另一个写入方修改了版本号
// 前 times 次生效
func bumpVersionOnUpdate(t *testing.T, db *gorm.DB, table, id string, times int32) *int32 {
	t.Helper()
	var fired int32
	err := db.Callback().Update().Before("gorm:update").Register("test:concurrent_writer", func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}
		if atomic.AddInt32(&fired, 1) > times {
			return
		}
		tx.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE "+table+" SET version = version + 1 WHERE id = ?", id)
	})
	require.NoError(t, err)
	return &fired
}

// TestOptimisticLock_RetrySucceeds 测试版本冲突后重新读取并重算
func TestOptimisticLock_RetrySucceeds(t *testing.T) {
	env := setupEngine(t)
	env.createProcess(t, "proc-1", workflow.StatusActive, "")
	env.createTasks(t, "proc-1",
		taskSpec{id: "t1", stage: 1, status: workflow.TaskCompleted},
		taskSpec{id: "t2", stage: 2},
	)
	fired := bumpVersionOnUpdate(t, env.db, "process_instances", "proc-1", 1)

	result, err := env.engine.RecalcProgress(context.Background(), "proc-1")
	require.NoError(t, err)
	assert.Equal(t, 50, result.PercentComplete)
	assert.Equal(t, int32(2), atomic.LoadInt32(fired))

	proc := env.process(t, "proc-1")
	assert.Equal(t, 50, proc.PercentComplete)
	// 第一次尝试整体回滚,版本只增加一次
	assert.Equal(t, 2, proc.Version)

	var warned bool
	for _, entry := range env.logs.AllEntries() {
		if entry.Data["op"] == "recalculate progress" {
			warned = true
		}
	}
	assert.True(t, warned)
}

// TestOptimisticLock_RetriesExhausted 测试持续冲突时返回 Conflict 且不留下部分写入
func TestOptimisticLock_RetriesExhausted(t *testing.T) {
	env := setupEngine(t)
	env.createProcess(t, "proc-1", workflow.StatusActive, "")
	env.createTasks(t, "proc-1", taskSpec{id: "t1", stage: 1, mandatory: true})
	env.createSubtask(t, "s1", "t1", true, workflow.CheckManual)
	fired := bumpVersionOnUpdate(t, env.db, "process_instances", "proc-1", 100)

	_, err := env.engine.ToggleSubtask(context.Background(), workflow.ToggleSubtaskRequest{
		SubtaskID:   "s1",
		IsCompleted: true,
		ActorID:     "agent-1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrConflict))
	assert.Equal(t, int32(3), atomic.LoadInt32(fired))

	// 子任务、任务、流程都没有提交
	task := env.task(t, "t1")
	assert.Equal(t, string(workflow.TaskPending), task.Status)
	assert.Equal(t, 1, task.Version)
	proc := env.process(t, "proc-1")
	assert.Equal(t, 0, proc.PercentComplete)
	assert.Equal(t, 1, proc.Version)
}

// TestOptimisticLock_SiblingToggleConflicts 测试任务状态不变时勾选子任务也参与任务版本检查
// 兄弟子任务被并发勾选时重新读取并推导状态
func TestOptimisticLock_SiblingToggleConflicts(t *testing.T) {
	env := setupEngine(t)
	env.createProcess(t, "proc-1", workflow.StatusActive, "")
	env.createTasks(t, "proc-1", taskSpec{id: "t1", stage: 1, mandatory: true})
	env.createSubtask(t, "s1", "t1", true, workflow.CheckManual)
	env.createSubtask(t, "s2", "t1", true, workflow.CheckManual)
	env.createSubtask(t, "s3", "t1", false, workflow.CheckManual)

	first, err := toggle(env, "s3", true)
	require.NoError(t, err)
	require.Equal(t, workflow.TaskInProgress, first.TaskStatus)
	require.Equal(t, 2, env.task(t, "t1").Version)

	fired := bumpVersionOnUpdate(t, env.db, "process_tasks", "t1", 1)

	result, err := toggle(env, "s1", true)
	require.NoError(t, err)
	assert.Equal(t, workflow.TaskInProgress, result.TaskStatus)
	assert.Equal(t, int32(2), atomic.LoadInt32(fired))

	task := env.task(t, "t1")
	assert.Equal(t, string(workflow.TaskInProgress), task.Status)
	assert.Equal(t, 3, task.Version)
	assert.Nil(t, task.CompletedAt)

	result, err = toggle(env, "s2", true)
	require.NoError(t, err)
	assert.Equal(t, workflow.TaskCompleted, result.TaskStatus)
	assert.Equal(t, 4, env.task(t, "t1").Version)
}
