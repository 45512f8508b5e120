package auth

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// roleFile 角色文件格式
//
//	users:
//	  alice: [admin]
//	  bob: [agent]
type roleFile struct {
	Users map[string][]string `yaml:"users"`
}

// StaticRoleResolver 从 YAML 文件读取用户角色,用于本地开发和离线部署
type StaticRoleResolver struct {
	users map[string][]string
}

// LoadStaticRoleResolver 读取角色文件
func LoadStaticRoleResolver(path string) (*StaticRoleResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read role file: %w", err)
	}
	return ParseStaticRoles(data)
}

// ParseStaticRoles 解析 YAML 角色定义
func ParseStaticRoles(data []byte) (*StaticRoleResolver, error) {
	var f roleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse role file: %w", err)
	}
	if f.Users == nil {
		f.Users = map[string][]string{}
	}
	return &StaticRoleResolver{users: f.Users}, nil
}

// ResolveRoles 返回文件中配置的角色,未配置的用户没有角色
func (r *StaticRoleResolver) ResolveRoles(_ context.Context, userID string) ([]string, error) {
	return r.users[userID], nil
}
