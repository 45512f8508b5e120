package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mautops/property-flow/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRecalcProgress_BypassedCountsAsDone 测试跳过的任务计入完成
func TestRecalcProgress_BypassedCountsAsDone(t *testing.T) {
	env := setupEngine(t)
	env.createProcess(t, "proc-1", workflow.StatusActive, "")
	env.createTasks(t, "proc-1",
		taskSpec{id: "t1", stage: 1, status: workflow.TaskCompleted},
		taskSpec{id: "t2", stage: 1, status: workflow.TaskCompleted},
		taskSpec{id: "t3", stage: 2, bypassed: true},
		taskSpec{id: "t4", stage: 3},
	)

	result, err := env.engine.RecalcProgress(context.Background(), "proc-1")
	require.NoError(t, err)

	assert.Equal(t, 75, result.PercentComplete)
	assert.False(t, result.IsCompleted)
	assert.Equal(t, workflow.StatusActive, result.Status)
	require.NotNil(t, result.CurrentStageIndex)
	assert.Equal(t, 3, *result.CurrentStageIndex)

	proc := env.process(t, "proc-1")
	assert.Equal(t, 75, proc.PercentComplete)
	assert.Equal(t, string(workflow.StatusActive), proc.CurrentStatus)
	assert.Nil(t, proc.CompletedAt)
}

// TestRecalcProgress_Idempotent 测试重复计算结果一致且不重复写入
func TestRecalcProgress_Idempotent(t *testing.T) {
	env := setupEngine(t)
	env.createProcess(t, "proc-1", workflow.StatusActive, "")
	env.createTasks(t, "proc-1",
		taskSpec{id: "t1", stage: 1, status: workflow.TaskCompleted},
		taskSpec{id: "t2", stage: 1},
		taskSpec{id: "t3", stage: 2},
	)

	first, err := env.engine.RecalcProgress(context.Background(), "proc-1")
	require.NoError(t, err)
	versionAfterFirst := env.process(t, "proc-1").Version

	second, err := env.engine.RecalcProgress(context.Background(), "proc-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 33, second.PercentComplete)
	assert.Equal(t, versionAfterFirst, env.process(t, "proc-1").Version)
}

// TestRecalcProgress_NoTasks 测试没有任务时进度为 0
func TestRecalcProgress_NoTasks(t *testing.T) {
	env := setupEngine(t)
	env.createProcess(t, "proc-1", workflow.StatusActive, "")

	result, err := env.engine.RecalcProgress(context.Background(), "proc-1")
	require.NoError(t, err)

	assert.Equal(t, 0, result.PercentComplete)
	assert.Nil(t, result.CurrentStageIndex)
	assert.False(t, result.IsCompleted)
	assert.Equal(t, workflow.StatusActive, result.Status)
}

// TestRecalcProgress_CompletesAtHundred 测试全部完成时流程进入 completed
func TestRecalcProgress_CompletesAtHundred(t *testing.T) {
	env := setupEngine(t)
	env.createProcess(t, "proc-1", workflow.StatusActive, "")
	env.createTasks(t, "proc-1",
		taskSpec{id: "t1", stage: 1, status: workflow.TaskCompleted},
		taskSpec{id: "t2", stage: 2, bypassed: true},
	)

	result, err := env.engine.RecalcProgress(context.Background(), "proc-1")
	require.NoError(t, err)

	assert.Equal(t, 100, result.PercentComplete)
	assert.True(t, result.IsCompleted)
	assert.Equal(t, workflow.StatusCompleted, result.Status)
	assert.Nil(t, result.CurrentStageIndex)

	proc := env.process(t, "proc-1")
	assert.Equal(t, string(workflow.StatusCompleted), proc.CurrentStatus)
	require.NotNil(t, proc.CompletedAt)
	assert.True(t, proc.CompletedAt.After(fixedNow))

	history := env.history(t, "proc-1")
	require.Len(t, history, 1)
	assert.Equal(t, "complete", history[0].Action)
	assert.Equal(t, "system", history[0].Operator)
	assert.Equal(t, string(workflow.StatusActive), history[0].FromState)
	assert.Equal(t, string(workflow.StatusCompleted), history[0].ToState)
}

// TestRecalcProgress_TerminalStatusKept 测试终态流程只更新百分比不改状态
func TestRecalcProgress_TerminalStatusKept(t *testing.T) {
	env := setupEngine(t)
	env.createProcess(t, "proc-1", workflow.StatusCancelled, "")
	env.createTasks(t, "proc-1",
		taskSpec{id: "t1", stage: 1, status: workflow.TaskCompleted},
	)

	result, err := env.engine.RecalcProgress(context.Background(), "proc-1")
	require.NoError(t, err)

	assert.Equal(t, 100, result.PercentComplete)
	assert.Equal(t, workflow.StatusCancelled, result.Status)
	assert.Empty(t, env.history(t, "proc-1"))
}

// TestRecalcProgress_InProgressTaskIsNotCurrentStage 测试当前阶段只看 pending 任务
func TestRecalcProgress_InProgressTaskIsNotCurrentStage(t *testing.T) {
	env := setupEngine(t)
	env.createProcess(t, "proc-1", workflow.StatusActive, "")
	env.createTasks(t, "proc-1",
		taskSpec{id: "t1", stage: 1, status: workflow.TaskInProgress},
		taskSpec{id: "t2", stage: 2},
	)

	result, err := env.engine.RecalcProgress(context.Background(), "proc-1")
	require.NoError(t, err)

	assert.Equal(t, 0, result.PercentComplete)
	require.NotNil(t, result.CurrentStageIndex)
	assert.Equal(t, 2, *result.CurrentStageIndex)
}

// TestRecalcProgress_NotFound 测试流程不存在
func TestRecalcProgress_NotFound(t *testing.T) {
	env := setupEngine(t)

	_, err := env.engine.RecalcProgress(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrNotFound))
}

// TestRecalcProgress_OnlyActiveCompletes 测试待审批、暂停、退回的流程达到 100 时不完成
func TestRecalcProgress_OnlyActiveCompletes(t *testing.T) {
	for _, status := range []workflow.ProcessStatus{workflow.StatusPendingApproval, workflow.StatusOnHold, workflow.StatusReturned} {
		env := setupEngine(t)
		env.createProcess(t, "proc-1", status, "")
		env.createTasks(t, "proc-1", taskSpec{id: "t1", stage: 1, status: workflow.TaskCompleted})

		result, err := env.engine.RecalcProgress(context.Background(), "proc-1")
		require.NoError(t, err)
		assert.Equal(t, 100, result.PercentComplete, status)
		assert.True(t, result.IsCompleted, status)
		assert.Equal(t, status, result.Status)

		proc := env.process(t, "proc-1")
		assert.Equal(t, string(status), proc.CurrentStatus)
		assert.Nil(t, proc.CompletedAt)
		assert.Empty(t, env.history(t, "proc-1"))
	}
}
