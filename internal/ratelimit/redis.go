package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ip-query/internal/logger"
)

// 文档注释：Redis 限流器（共享配额）
// 背景：多实例/边缘部署下各实例共享同一份配额计数；桶号写进键名，
// 过期由键 TTL 兜底，无需清理任务。
// 约束：读取与递增是两步操作，并发放行间隙内可能小幅超限（上限为同时在途的请求数），
// 属于平台键值存储下可接受的最终一致容忍；Redis 异常时放行并记录日志，避免基础设施
// 故障放大为全站拒绝。
type RedisLimiter struct {
	rc        *redis.Client
	perMinute int
	perHour   int
	now       func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedis(rc *redis.Client, perMinute, perHour int) *RedisLimiter {
	return &RedisLimiter{rc: rc, perMinute: perMinute, perHour: perHour, now: time.Now}
}

func (l *RedisLimiter) Admit(ctx context.Context, identity string) Decision {
	sec := l.now().Unix()
	mb, hb := sec/60, sec/3600
	mKey := "rl:m:" + identity + ":" + strconv.FormatInt(mb, 10)
	hKey := "rl:h:" + identity + ":" + strconv.FormatInt(hb, 10)

	vals, err := l.rc.MGet(ctx, mKey, hKey).Result()
	if err != nil {
		logger.L().Error("ratelimit_redis_read_error", "identity", identity, "err", err)
		return Decision{Allowed: true, Remaining: 0, ResetIn: int(60 - sec%60)}
	}
	mCount := toInt(vals[0])
	hCount := toInt(vals[1])
	if mCount >= l.perMinute {
		return Decision{Allowed: false, Remaining: 0, ResetIn: int(60 - sec%60)}
	}
	if hCount >= l.perHour {
		return Decision{Allowed: false, Remaining: 0, ResetIn: int(3600 - sec%3600)}
	}

	pipe := l.rc.Pipeline()
	mIncr := pipe.Incr(ctx, mKey)
	hIncr := pipe.Incr(ctx, hKey)
	pipe.Expire(ctx, mKey, 2*time.Minute)
	pipe.Expire(ctx, hKey, 2*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.L().Error("ratelimit_redis_incr_error", "identity", identity, "err", err)
		return Decision{Allowed: true, Remaining: 0, ResetIn: int(60 - sec%60)}
	}
	remaining := minInt(l.perMinute-int(mIncr.Val()), l.perHour-int(hIncr.Val()))
	if remaining < 0 {
		// 并发在途请求可能让计数略越过上限
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining, ResetIn: int(60 - sec%60)}
}

func toInt(v interface{}) int {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
