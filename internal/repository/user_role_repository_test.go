package repository_test

import (
	"context"
	"testing"

	"github.com/mautops/property-flow/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUserRoleRepository 测试角色授予、收回与解析
func TestUserRoleRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewUserRoleRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Grant("user-1", "manager"))
	require.NoError(t, repo.Grant("user-1", "agent"))
	require.NoError(t, repo.Grant("user-2", "admin"))

	roles, err := repo.ResolveRoles(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"agent", "manager"}, roles)

	// 重复授予违反主键
	assert.Error(t, repo.Grant("user-1", "agent"))

	require.NoError(t, repo.Revoke("user-1", "manager"))
	roles, err = repo.ResolveRoles(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"agent"}, roles)

	// 收回不存在的角色不报错
	assert.NoError(t, repo.Revoke("user-1", "manager"))

	none, err := repo.ResolveRoles(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}
