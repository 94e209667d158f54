// 包 api：程序化查询面的路由注册与响应头合成
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"ip-query/internal/config"
	"ip-query/internal/geo"
	"ip-query/internal/guard"
	"ip-query/internal/metrics"
	"ip-query/internal/resolve"
)

// 文档注释：构建 API 路由
// 背景：独立 ServeMux 由主入口挂载到 API 前缀下；守卫与管线构造注入，
// 本包只负责 HTTP 进出参与响应头。
// 约束：403/429 以对应 HTTP 状态返回；上游失败（ret 500/504 等）按原始部署约定
// 以 HTTP 200 承载，信封内 ret 表达结果。
func BuildRoutes(cfg config.Config, g *guard.Guard, p *resolve.Pipeline) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		t0 := time.Now()
		metrics.RequestsTotal.Inc()
		origin := r.Header.Get("Origin")

		if r.Method == http.MethodOptions {
			// CORS 预检
			g.WriteSecurityHeaders(w.Header(), true, origin)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET, OPTIONS")
			writeJSON(w, g, origin, http.StatusMethodNotAllowed,
				geo.Fail(405, "方法不允许"))
			return
		}

		clientIP := visitorIP(r)
		queryIP := r.URL.Query().Get("ip")
		if queryIP == "" || !validIP(queryIP) {
			// 非法参数回退为访问者自身地址；提示语义属展示层，API 面静默处理
			queryIP = clientIP
		}

		if !g.Authorized(origin, r.Header.Get("Referer"), requestHost(r)) {
			metrics.ForbiddenTotal.Inc()
			writeJSON(w, g, origin, http.StatusForbidden,
				geo.Fail(403, "访问被拒绝：请从授权域名访问"))
			return
		}

		out := p.Resolve(r.Context(), queryIP, clientIP)
		h := w.Header()
		h.Set("Cache-Control", "no-cache")
		if out.CacheStatus != "" {
			h.Set("X-Cache-Status", out.CacheStatus)
		}
		if d := out.RateLimit; d != nil {
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.RatePerMinute))
			h.Set("X-RateLimit-Reset", strconv.Itoa(d.ResetIn))
			if d.Allowed {
				h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			} else {
				h.Set("X-RateLimit-Remaining", "0")
				h.Set("Retry-After", strconv.Itoa(d.ResetIn))
				writeJSON(w, g, origin, http.StatusTooManyRequests, out.Result)
				metrics.RequestDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
				return
			}
		}
		writeJSON(w, g, origin, http.StatusOK, out.Result)
		metrics.RequestDurationMs.Observe(float64(time.Since(t0).Milliseconds()))
	})
	return mux
}

func writeJSON(w http.ResponseWriter, g *guard.Guard, origin string, status int, res geo.Result) {
	g.WriteSecurityHeaders(w.Header(), true, origin)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}
