// 包 rediscache：Redis 后端的结果缓存，多实例与边缘部署共享命中
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"ip-query/internal/cache"
	"ip-query/internal/geo"
	"ip-query/internal/logger"
)

const keyPrefix = "ipinfo:"

// 文档注释：Redis 缓存实现
// 背景：值为 JSON 序列化的结果信封，TTL 交由 Redis 过期机制保证；
// 键空间与旧版部署保持 ipinfo: 前缀，便于灰度共存。
// 约束：Redis 异常一律降级为未命中/放弃写入并记录日志，不影响请求主流程。
type Cache struct {
	rc  *redis.Client
	ttl time.Duration
}

var _ cache.Store = (*Cache)(nil)

func New(rc *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rc: rc, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) (geo.Result, bool) {
	s, err := c.rc.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return geo.Result{}, false
	}
	if err != nil {
		logger.L().Error("cache_redis_get_error", "key", key, "err", err)
		return geo.Result{}, false
	}
	var res geo.Result
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		logger.L().Error("cache_redis_decode_error", "key", key, "err", err)
		return geo.Result{}, false
	}
	return res, true
}

func (c *Cache) Set(ctx context.Context, key string, val geo.Result) {
	b, err := json.Marshal(val)
	if err != nil {
		logger.L().Error("cache_redis_encode_error", "key", key, "err", err)
		return
	}
	if err := c.rc.Set(ctx, keyPrefix+key, string(b), c.ttl).Err(); err != nil {
		logger.L().Error("cache_redis_set_error", "key", key, "err", err)
	}
}
