package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	minuteBucket int64
	minuteCount  int
	hourBucket   int64
	hourCount    int
}

// 文档注释：进程内限流器
// 背景：每个身份持有分钟桶与小时桶两个计数；互斥锁保证「比较-再递增」整体原子，
// 配额不会因并发而超限。
// 约束：时间源可注入以便测试固定时刻；长期不活跃的身份由 Sweep 回收。
type MemoryLimiter struct {
	mu        sync.Mutex
	perMinute int
	perHour   int
	clients   map[string]*counter
	now       func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

func NewMemory(perMinute, perHour int) *MemoryLimiter {
	return &MemoryLimiter{
		perMinute: perMinute,
		perHour:   perHour,
		clients:   make(map[string]*counter),
		now:       time.Now,
	}
}

// Admit：双窗口准入
// 顺序：先滚动桶，再比较分钟上限、小时上限，全部通过才同时递增两个计数
func (l *MemoryLimiter) Admit(_ context.Context, identity string) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	sec := l.now().Unix()
	mb, hb := sec/60, sec/3600
	c, ok := l.clients[identity]
	if !ok {
		c = &counter{minuteBucket: mb, hourBucket: hb}
		l.clients[identity] = c
	}
	if c.minuteBucket != mb {
		c.minuteBucket = mb
		c.minuteCount = 0
	}
	if c.hourBucket != hb {
		c.hourBucket = hb
		c.hourCount = 0
	}
	if c.minuteCount >= l.perMinute {
		return Decision{Allowed: false, Remaining: 0, ResetIn: int(60 - sec%60)}
	}
	if c.hourCount >= l.perHour {
		return Decision{Allowed: false, Remaining: 0, ResetIn: int(3600 - sec%3600)}
	}
	c.minuteCount++
	c.hourCount++
	return Decision{
		Allowed:   true,
		Remaining: minInt(l.perMinute-c.minuteCount, l.perHour-c.hourCount),
		ResetIn:   int(60 - sec%60),
	}
}

// Sweep：回收两个窗口都已翻转的身份记录，返回回收数量
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	sec := l.now().Unix()
	mb, hb := sec/60, sec/3600
	n := 0
	for id, c := range l.clients {
		if c.minuteBucket < mb && c.hourBucket < hb {
			delete(l.clients, id)
			n++
		}
	}
	return n
}
