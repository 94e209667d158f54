// 包 upstream：上游地理位置提供方的 HTTP 客户端
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"ip-query/internal/geo"
	"ip-query/internal/logger"
	"ip-query/internal/metrics"
)

// 文档注释：上游查询客户端
// 背景：上游是计费限量接口，单次查询单次尝试，不做重试与退避——重查只会浪费配额；
// 限流器是面向上游的唯一背压手段。
// 约束：超时即取消并映射为 504；其他传输错误映射为 500；非 2xx 镜像上游状态码；
// 2xx 的信封原样透传，不在此处改写字段。
type Client struct {
	base    string
	path    string
	appCode string
	hc      *http.Client
}

func New(base, path, appCode string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:    base,
		path:    path,
		appCode: appCode,
		hc:      &http.Client{Timeout: timeout},
	}
}

// Fetch：查询单个 IP 的归属信息
// 返回：统一的结果信封；任何失败都折叠为信封内的 ret/msg，不向调用方抛错
func (c *Client) Fetch(ctx context.Context, ip string) geo.Result {
	q := url.Values{}
	q.Set("ip", ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+c.path+"?"+q.Encode(), nil)
	if err != nil {
		return geo.Fail(500, "网络错误: "+err.Error())
	}
	req.Header.Set("Authorization", "APPCODE "+c.appCode)

	t0 := time.Now()
	metrics.UpstreamRequestsTotal.Inc()
	logger.L().Debug("upstream_req", "ip", ip)
	resp, err := c.hc.Do(req)
	if err != nil {
		metrics.UpstreamFailTotal.Inc()
		if isTimeout(err) {
			logger.L().Error("upstream_timeout", "ip", ip, "err", err)
			return geo.Fail(504, "API 请求超时")
		}
		logger.L().Error("upstream_http_error", "ip", ip, "err", err)
		return geo.Fail(500, "网络错误: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.UpstreamFailTotal.Inc()
		logger.L().Error("upstream_bad_status", "ip", ip, "status", resp.StatusCode)
		return geo.Fail(resp.StatusCode, "API 请求失败: "+http.StatusText(resp.StatusCode))
	}
	var res geo.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		metrics.UpstreamFailTotal.Inc()
		logger.L().Error("upstream_decode_error", "ip", ip, "err", err)
		return geo.Fail(500, "响应解析失败: "+err.Error())
	}
	dur := time.Since(t0).Milliseconds()
	metrics.UpstreamDurationMs.Observe(float64(dur))
	metrics.UpstreamSuccessTotal.Inc()
	logger.L().Debug("upstream_resp", "ip", ip, "ret", res.Ret, "duration_ms", dur)
	return res
}

// isTimeout：判定传输错误是否为超时（客户端整体超时或上下文截止）
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
