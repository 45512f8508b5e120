package auth

// GetPermissionModel 获取 OpenFGA 权限模型定义
// 引擎只需要 "用户是否属于某角色",特权角色由配置决定
func GetPermissionModel() string {
	return `model
  schema 1.1

type user

type role
  relations
    define member: [user]`
}
