package repository_test

import (
	"testing"

	"github.com/mautops/property-flow/internal/model"
	"github.com/mautops/property-flow/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcess(id, status string) *model.ProcessInstanceModel {
	return &model.ProcessInstanceModel{
		ID:            id,
		TemplateID:    "tpl-sale",
		PropertyID:    "property-1",
		CurrentStatus: status,
		CreatedAt:     baseTime,
		UpdatedAt:     baseTime,
	}
}

// TestProcessRepository_Create 测试创建流程实例
func TestProcessRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewProcessRepository(db)

	proc := newProcess("proc-001", "pending_approval")
	require.NoError(t, repo.Create(proc))
	assert.Equal(t, 1, proc.Version)

	found, err := repo.FindByID("proc-001")
	require.NoError(t, err)
	assert.Equal(t, "pending_approval", found.CurrentStatus)
	assert.Equal(t, 1, found.Version)

	// 缺少模板时拒绝写入
	invalid := newProcess("proc-002", "pending_approval")
	invalid.TemplateID = ""
	assert.Error(t, repo.Create(invalid))
}

// TestProcessRepository_UpdateWithVersion 测试乐观锁更新
func TestProcessRepository_UpdateWithVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewProcessRepository(db)
	require.NoError(t, repo.Create(newProcess("proc-001", "active")))

	first, err := repo.FindByID("proc-001")
	require.NoError(t, err)
	stale, err := repo.FindByID("proc-001")
	require.NoError(t, err)

	first.PercentComplete = 40
	stage := 2
	first.CurrentStageIndex = &stage
	require.NoError(t, repo.UpdateWithVersion(first))
	assert.Equal(t, 2, first.Version)

	// 基于旧版本的写入被拒绝
	stale.PercentComplete = 90
	err = repo.UpdateWithVersion(stale)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	assert.Equal(t, 1, stale.Version)

	saved, err := repo.FindByID("proc-001")
	require.NoError(t, err)
	assert.Equal(t, 40, saved.PercentComplete)
	require.NotNil(t, saved.CurrentStageIndex)
	assert.Equal(t, 2, *saved.CurrentStageIndex)
	assert.Equal(t, 2, saved.Version)
}

// TestProcessRepository_UpdateWithVersion_ClearsFields 测试空指针字段也会写入
func TestProcessRepository_UpdateWithVersion_ClearsFields(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewProcessRepository(db)

	proc := newProcess("proc-001", "completed")
	proc.CompletedAt = &baseTime
	require.NoError(t, repo.Create(proc))

	proc.CurrentStatus = "active"
	proc.CompletedAt = nil
	require.NoError(t, repo.UpdateWithVersion(proc))

	saved, err := repo.FindByID("proc-001")
	require.NoError(t, err)
	assert.Nil(t, saved.CompletedAt)
	assert.Equal(t, "active", saved.CurrentStatus)
}

// TestProcessRepository_CountByStatus 测试按状态统计
func TestProcessRepository_CountByStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewProcessRepository(db)

	require.NoError(t, repo.Create(newProcess("proc-001", "active")))
	require.NoError(t, repo.Create(newProcess("proc-002", "active")))
	require.NoError(t, repo.Create(newProcess("proc-003", "completed")))

	counts, err := repo.CountByStatus()
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"active": 2, "completed": 1}, counts)
}
