package repository

import (
	"context"
	"time"

	"github.com/mautops/property-flow/internal/model"
	"gorm.io/gorm"
)

// UserRoleRepository 用户角色仓储,同时作为默认的角色解析器
type UserRoleRepository struct {
	db *gorm.DB
}

// NewUserRoleRepository 创建用户角色仓储
func NewUserRoleRepository(db *gorm.DB) *UserRoleRepository {
	return &UserRoleRepository{db: db}
}

// Grant 授予角色
func (r *UserRoleRepository) Grant(userID string, role string) error {
	return r.db.Create(&model.UserRoleModel{
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now(),
	}).Error
}

// Revoke 收回角色
func (r *UserRoleRepository) Revoke(userID string, role string) error {
	return r.db.Where("user_id = ? AND role = ?", userID, role).Delete(&model.UserRoleModel{}).Error
}

// ResolveRoles 查询用户的角色集合
func (r *UserRoleRepository) ResolveRoles(ctx context.Context, userID string) ([]string, error) {
	var roles []string
	err := r.db.WithContext(ctx).
		Model(&model.UserRoleModel{}).
		Where("user_id = ?", userID).
		Order("role ASC").
		Pluck("role", &roles).Error
	return roles, err
}
