// 包 resolve：请求解析管线——特殊地址短路、缓存、限流准入、上游查询与缓存回填的总编排
package resolve

import (
	"context"
	"fmt"

	"ip-query/internal/cache"
	"ip-query/internal/classify"
	"ip-query/internal/geo"
	"ip-query/internal/logger"
	"ip-query/internal/metrics"
	"ip-query/internal/ratelimit"
)

// 文档注释：数据源抽象
// 背景：HTTP 上游与本地 MMDB 库同构接入，部署时二者择一；管线单次调用单次取数，
// 失败不回退到降级结果。
type Source interface {
	Fetch(ctx context.Context, ip string) geo.Result
}

// 文档注释：一次解析的产出
// 背景：除结果信封外，HTTP 层还需要缓存命中状态与限流判定来合成响应头。
// CacheStatus 为空表示本次未走缓存路径（特殊地址或 403 前置拒绝）。
type Outcome struct {
	Result      geo.Result
	Special     bool
	CacheStatus string // "HIT" | "MISS" | ""
	RateLimit   *ratelimit.Decision
}

// 文档注释：解析管线
// 背景：依赖全部构造注入，无包级可变状态；单测可用假存储与假数据源隔离验证。
// 约束：状态顺序固定——分类→缓存→准入→取数→回填；缓存命中不消耗配额，
// 分类命中既不进缓存也不计配额；仅 ret==200 的取数结果写缓存。
type Pipeline struct {
	store   cache.Store
	limiter ratelimit.Limiter
	source  Source
}

func New(store cache.Store, limiter ratelimit.Limiter, source Source) *Pipeline {
	return &Pipeline{store: store, limiter: limiter, source: source}
}

// Resolve：对单个目标 IP 执行完整解析
// 参数：queryIP 为已通过词法校验的查询目标；clientIP 为限流身份（可信代理层报告的来源地址）
func (p *Pipeline) Resolve(ctx context.Context, queryIP, clientIP string) Outcome {
	if res, ok := classify.Classify(queryIP); ok {
		metrics.SpecialHitsTotal.Inc()
		logger.L().Debug("resolve_special", "ip", queryIP)
		return Outcome{Result: res, Special: true}
	}

	if res, ok := p.store.Get(ctx, queryIP); ok {
		metrics.CacheHitsTotal.Inc()
		logger.L().Debug("resolve_cache_hit", "ip", queryIP)
		return Outcome{Result: res, CacheStatus: "HIT"}
	}
	metrics.CacheMissesTotal.Inc()

	d := p.limiter.Admit(ctx, clientIP)
	if !d.Allowed {
		metrics.RateLimitedTotal.Inc()
		logger.L().Info("resolve_rate_limited", "client", clientIP, "reset_in", d.ResetIn)
		return Outcome{
			Result:    geo.Fail(429, fmt.Sprintf("请求过于频繁，请在 %d 秒后重试", d.ResetIn)),
			RateLimit: &d,
		}
	}

	res := p.source.Fetch(ctx, queryIP)
	if res.Ret == 200 {
		p.store.Set(ctx, queryIP, res)
	}
	return Outcome{Result: res, CacheStatus: "MISS", RateLimit: &d}
}
