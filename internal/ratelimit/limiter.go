// 包 ratelimit：按客户端身份的双窗口（分钟/小时）准入控制
package ratelimit

import "context"

// 文档注释：准入判定结果
// 背景：拒绝时 ResetIn 直接用于 Retry-After 与 X-RateLimit-Reset 头；
// 放行时 Remaining 取两个窗口剩余额度中的较小者。
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   int // 秒
}

// 文档注释：限流器抽象
// 背景：单机部署用进程内计数，多实例部署用 Redis 计数共享配额；管线只依赖本接口。
// 约束：这是配额计数而非令牌桶平滑——窗口内允许打满突发；拒绝不消耗计数；
// 窗口按 floor(now/窗长) 取桶，翻转时计数自然归零，无需显式清理。
type Limiter interface {
	Admit(ctx context.Context, identity string) Decision
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
