// Package utils 确认令牌缓存
package utils

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// ConfirmCache 破坏性操作的一次性确认令牌
type ConfirmCache struct {
	mu    sync.Mutex // Consume 的查找和删除必须原子
	cache *cache.Cache
	ttl   time.Duration
}

// NewConfirmCache 创建确认令牌缓存，令牌在 ttl 后失效
func NewConfirmCache(ttl time.Duration) *ConfirmCache {
	return &ConfirmCache{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Issue 为 action 签发令牌
func (c *ConfirmCache) Issue(action string) string {
	token := uuid.NewString()
	c.cache.Set(token, action, c.ttl)
	return token
}

// Consume 校验并作废令牌，令牌必须是为同一个 action 签发的
func (c *ConfirmCache) Consume(token, action string) bool {
	if token == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	val, found := c.cache.Get(token)
	if !found {
		return false
	}
	c.cache.Delete(token)
	return val.(string) == action
}

// TTL 令牌有效期
func (c *ConfirmCache) TTL() time.Duration {
	return c.ttl
}
