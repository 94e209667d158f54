package api

import (
	"net"
	"net/http"
	"strings"
)

// 文档注释：获取访问者 IP（用于限流身份与缺省查询目标）
// 背景：部署在反向代理/边缘之后，优先取代理注入的头，最后回退直连地址；
// 头的可信性由前置代理层保证，这里不做反伪造处理。
// 约束：X-Forwarded-For 取第一跳；RemoteAddr 需剥离端口。
func visitorIP(r *http.Request) string {
	if x := r.Header.Get("X-Forwarded-For"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := r.Header.Get("X-Real-IP"); x != "" {
		return x
	}
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

// requestHost：请求主机名（剥离端口），用于 Referer 同源回退判定
func requestHost(r *http.Request) string {
	if h, _, err := net.SplitHostPort(r.Host); err == nil {
		return h
	}
	return r.Host
}

// validIP：查询参数的词法校验；非法参数由调用方回退到访问者自身地址
func validIP(ip string) bool { return net.ParseIP(ip) != nil }
