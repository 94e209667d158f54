package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipquery_requests_total",
		Help: "Total number of /api/query requests",
	})
	RequestDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ipquery_request_duration_ms",
		Help:    "Request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	SpecialHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipquery_special_hits_total",
		Help: "Total lookups answered by the special-address table",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipquery_cache_hits_total",
		Help: "Total cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipquery_cache_misses_total",
		Help: "Total cache misses",
	})
	ForbiddenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipquery_forbidden_total",
		Help: "Total requests rejected by the access guard",
	})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipquery_rate_limited_total",
		Help: "Total requests rejected by the rate limiter",
	})
	UpstreamRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipquery_upstream_requests_total",
		Help: "Total upstream provider requests",
	})
	UpstreamSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipquery_upstream_success_total",
		Help: "Total upstream provider successes",
	})
	UpstreamFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipquery_upstream_fail_total",
		Help: "Total upstream provider failures (timeout, transport, non-2xx)",
	})
	UpstreamDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ipquery_upstream_duration_ms",
		Help:    "Upstream provider call duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(SpecialHitsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ForbiddenTotal)
	prometheus.MustRegister(RateLimitedTotal)
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamSuccessTotal)
	prometheus.MustRegister(UpstreamFailTotal)
	prometheus.MustRegister(UpstreamDurationMs)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标，供 Prometheus 抓取；在主入口挂载到 API 前缀下。
func Handler() http.Handler { return promhttp.Handler() }
