package auth

import (
	"context"
	"sync"
	"time"
)

// RoleResolver 解析用户的角色集合
type RoleResolver interface {
	ResolveRoles(ctx context.Context, userID string) ([]string, error)
}

// roleEntry 缓存条目
type roleEntry struct {
	roles     []string
	expiresAt time.Time
}

// CachedRoleResolver 带 TTL 缓存的角色解析器
// 角色变更最多延迟一个 TTL 生效,需要立即生效时调用 Invalidate
type CachedRoleResolver struct {
	next  RoleResolver
	ttl   time.Duration
	cache *sync.Map
	now   func() time.Time
}

// NewCachedRoleResolver 创建带缓存的角色解析器,ttl <= 0 时不缓存
func NewCachedRoleResolver(next RoleResolver, ttl time.Duration) *CachedRoleResolver {
	return &CachedRoleResolver{
		next:  next,
		ttl:   ttl,
		cache: &sync.Map{},
		now:   time.Now,
	}
}

// ResolveRoles 解析角色(带缓存),解析失败不写缓存
func (c *CachedRoleResolver) ResolveRoles(ctx context.Context, userID string) ([]string, error) {
	if c.ttl <= 0 {
		return c.next.ResolveRoles(ctx, userID)
	}

	if val, ok := c.cache.Load(userID); ok {
		entry := val.(*roleEntry)
		if c.now().Before(entry.expiresAt) {
			return entry.roles, nil
		}
		c.cache.Delete(userID)
	}

	roles, err := c.next.ResolveRoles(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.cache.Store(userID, &roleEntry{
		roles:     roles,
		expiresAt: c.now().Add(c.ttl),
	})
	return roles, nil
}

// Invalidate 清除单个用户的缓存
func (c *CachedRoleResolver) Invalidate(userID string) {
	c.cache.Delete(userID)
}

// Clear 清空缓存
func (c *CachedRoleResolver) Clear() {
	c.cache.Range(func(key, _ interface{}) bool {
		c.cache.Delete(key)
		return true
	})
}
